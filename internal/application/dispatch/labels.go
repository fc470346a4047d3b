package dispatch

import (
	"fmt"

	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
)

// ModeLabel renders a print mode for people
func ModeLabel(m pricing.Mode) string {
	switch m {
	case pricing.ModeMonochrome:
		return "black & white"
	case pricing.ModeColor:
		return "color"
	default:
		return "mode not chosen"
	}
}

// RequirementsLabel renders requirements, showing a "none" answer as given
func RequirementsLabel(text string) string {
	if text == "" {
		return "none"
	}
	return text
}

// PaymentLabel describes the requester's payment choice
func PaymentLabel(p entity.Payment) string {
	switch p.Method {
	case entity.PaymentCard:
		if p.CardRef == "" {
			return "card transfer (provider has no card on file)"
		}
		return fmt.Sprintf("card transfer to %s", p.CardRef)
	case entity.PaymentCash:
		if p.Tendered != nil && p.Change != nil {
			return fmt.Sprintf("cash, pays %s, change %s", pricing.Format(*p.Tendered), pricing.Format(*p.Change))
		}
		return "cash"
	default:
		return "not chosen"
	}
}
