// Package report exports provider statements as Excel workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/dorm-print/internal/domain/entity"
)

// Sheet names
const (
	SheetProfile = "Profile"
	SheetReviews = "Reviews"
)

// ContentType is the MIME type of a generated statement
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04"

// numFmtMoney is the builtin "0.00" number format
const numFmtMoney = 2

// StatementData is everything one provider statement shows
type StatementData struct {
	Provider    *entity.Provider
	Stats       *entity.ProviderStats
	Rating      *entity.RatingSummary
	Reviews     []*entity.Review
	GeneratedAt time.Time
}

// WriteStatement renders the statement workbook to w
func WriteStatement(w io.Writer, data StatementData) error {
	if data.Provider == nil {
		return fmt.Errorf("statement needs a provider")
	}

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SheetProfile); err != nil {
		return fmt.Errorf("failed to name profile sheet: %w", err)
	}
	if _, err := file.NewSheet(SheetReviews); err != nil {
		return fmt.Errorf("failed to add reviews sheet: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	money, err := file.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	if err := fillProfile(file, data, bold, money); err != nil {
		return fmt.Errorf("failed to fill profile: %w", err)
	}
	if err := fillReviews(file, data.Reviews, bold); err != nil {
		return fmt.Errorf("failed to fill reviews: %w", err)
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// fillProfile writes label/value pairs in columns A and B
func fillProfile(file *excelize.File, data StatementData, bold, money int) error {
	p := data.Provider
	rows := [][]interface{}{
		{"Provider", p.DisplayName},
		{"Chat ID", p.ID},
		{"Room", p.Room},
		{"Capability", p.Capability.Label()},
		{"Active", p.Active},
		{"Monochrome rate", p.Rates.Monochrome.InexactFloat64()},
		{"Color rate", p.Rates.Color.InexactFloat64()},
		{"Registered", formatTime(&p.RegisteredAt)},
	}
	moneyRows := map[int]bool{6: true, 7: true}

	if st := data.Stats; st != nil {
		rows = append(rows,
			[]interface{}{"Completed orders", st.Orders},
			[]interface{}{"Pages printed", st.Pages},
			[]interface{}{"Earnings", st.Earnings.InexactFloat64()},
			[]interface{}{"First order", formatTime(st.FirstOrderAt)},
			[]interface{}{"Last order", formatTime(st.LastOrderAt)},
		)
		moneyRows[11] = true
	}
	if r := data.Rating; r != nil {
		rows = append(rows,
			[]interface{}{"Reviews", r.Count},
			[]interface{}{"Average rating", fmt.Sprintf("%.1f", r.Average)},
		)
	}
	if !data.GeneratedAt.IsZero() {
		rows = append(rows, []interface{}{"Generated", data.GeneratedAt.Format(timeLayout)})
	}

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := file.SetSheetRow(SheetProfile, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		if moneyRows[i+1] {
			valueCell := fmt.Sprintf("B%d", i+1)
			if err := file.SetCellStyle(SheetProfile, valueCell, valueCell, money); err != nil {
				return fmt.Errorf("row %d style: %w", i+1, err)
			}
		}
	}

	if err := file.SetCellStyle(SheetProfile, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	return file.SetColWidth(SheetProfile, "A", "B", 22)
}

// fillReviews writes one review per row under a header, newest first
func fillReviews(file *excelize.File, reviews []*entity.Review, bold int) error {
	header := []interface{}{"Date", "Rating", "Comment"}
	if err := file.SetSheetRow(SheetReviews, "A1", &header); err != nil {
		return err
	}
	if err := file.SetCellStyle(SheetReviews, "A1", "C1", bold); err != nil {
		return err
	}

	for i, r := range reviews {
		row := []interface{}{r.CreatedAt.Format(timeLayout), r.Rating, r.Comment}
		if err := file.SetSheetRow(SheetReviews, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("review %d: %w", r.ID, err)
		}
	}

	if err := file.SetColWidth(SheetReviews, "A", "B", 18); err != nil {
		return err
	}
	return file.SetColWidth(SheetReviews, "C", "C", 60)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}
