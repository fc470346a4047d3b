// Package pricing computes per-document line costs and order totals.
// All arithmetic is decimal so repeated recomputation never drifts.
package pricing

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places line costs are rounded to.
const Places int32 = 2

var (
	// ErrModeUnset is returned when a cost is requested for a document without a print mode
	ErrModeUnset = errors.New("print mode not set")

	// ErrNegativePages is returned for a negative page count
	ErrNegativePages = errors.New("page count cannot be negative")
)

// Mode is the print mode chosen for a document
type Mode string

const (
	ModeUnset      Mode = ""
	ModeMonochrome Mode = "mono"
	ModeColor      Mode = "color"
)

// IsValid returns true for Monochrome and Color
func (m Mode) IsValid() bool {
	return m == ModeMonochrome || m == ModeColor
}

// String returns the string representation of the mode
func (m Mode) String() string {
	if m == ModeUnset {
		return "unset"
	}
	return string(m)
}

// ParseMode converts a control argument into a Mode
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return ModeUnset, fmt.Errorf("unknown print mode %q", s)
	}
	return m, nil
}

// RateCard holds a provider's per-page rates
type RateCard struct {
	Monochrome decimal.Decimal `json:"monochrome"`
	Color      decimal.Decimal `json:"color"`
}

// Rate returns the per-page rate for the given mode
func (r RateCard) Rate(mode Mode) (decimal.Decimal, error) {
	switch mode {
	case ModeMonochrome:
		return r.Monochrome, nil
	case ModeColor:
		return r.Color, nil
	case ModeUnset:
		return decimal.Zero, ErrModeUnset
	default:
		return decimal.Zero, fmt.Errorf("unknown print mode %q", mode)
	}
}

// LineCost computes pages × rate(mode), rounded half away from zero to Places.
func LineCost(pages int, mode Mode, rates RateCard) (decimal.Decimal, error) {
	if pages < 0 {
		return decimal.Zero, ErrNegativePages
	}
	rate, err := rates.Rate(mode)
	if err != nil {
		return decimal.Zero, err
	}
	return rate.Mul(decimal.NewFromInt(int64(pages))).Round(Places), nil
}

// Line is one priced (or not yet priced) document
type Line struct {
	Pages int
	Cost  *decimal.Decimal
}

// Totals is the aggregate of all lines of an order
type Totals struct {
	Pages int             `json:"pages"`
	Price decimal.Decimal `json:"price"`
}

// Sum aggregates page counts and costs. Lines without a cost contribute pages only.
func Sum(lines []Line) Totals {
	totals := Totals{Price: decimal.Zero}
	for _, l := range lines {
		totals.Pages += l.Pages
		if l.Cost != nil {
			totals.Price = totals.Price.Add(*l.Cost)
		}
	}
	return totals
}

// Change returns tendered − total, or an error when tendered is below total.
func Change(tendered, total decimal.Decimal) (decimal.Decimal, error) {
	if tendered.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	if tendered.LessThan(total) {
		return decimal.Zero, ErrInsufficientAmount
	}
	return tendered.Sub(total), nil
}

var (
	// ErrNegativeAmount is returned for a negative tendered amount
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrInsufficientAmount is returned when the tendered amount is below the total
	ErrInsufficientAmount = errors.New("amount is less than the total")

	// ErrMalformedAmount is returned when an amount cannot be parsed
	ErrMalformedAmount = errors.New("amount is not a number")
)

// ParseAmount parses user-entered money, accepting a decimal comma.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := normalizeAmount(s)
	if cleaned == "" {
		return decimal.Zero, ErrMalformedAmount
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// ParseRates parses a provider's per-page prices: one amount for both modes,
// or black & white and color separated by whitespace ("0.25 0.50").
func ParseRates(s string) (RateCard, error) {
	fields := strings.Fields(s)
	if len(fields) == 2 && strings.ContainsFunc(fields[1], unicode.IsDigit) {
		mono, err := ParseAmount(fields[0])
		if err != nil {
			return RateCard{}, err
		}
		color, err := ParseAmount(fields[1])
		if err != nil {
			return RateCard{}, err
		}
		return RateCard{Monochrome: mono, Color: color}, nil
	}

	rate, err := ParseAmount(s)
	if err != nil {
		return RateCard{}, err
	}
	return RateCard{Monochrome: rate, Color: rate}, nil
}

// Format renders money with exactly two decimal places
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
