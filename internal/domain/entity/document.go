package entity

import (
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/dorm-print/internal/domain/pricing"
)

// FileHandle references an uploaded binary on the messaging transport.
// OwnerID is the requester who uploaded it.
type FileHandle struct {
	OwnerID   string `json:"owner_id"`
	MessageID string `json:"message_id"`
	FileKey   string `json:"file_key"`
}

// DocumentEntry is one uploaded document of a session
type DocumentEntry struct {
	File        FileHandle       `json:"file"`
	DisplayName string           `json:"display_name"`
	PageCount   int              `json:"page_count"`
	PrintMode   pricing.Mode     `json:"print_mode"`
	LineCost    *decimal.Decimal `json:"line_cost,omitempty"`
}

// NewDocumentEntry validates an accepted upload. The print mode starts unset.
func NewDocumentEntry(file FileHandle, name string, pages int) (DocumentEntry, error) {
	if err := ValidateDocumentName(name); err != nil {
		return DocumentEntry{}, err
	}
	if pages <= 0 {
		return DocumentEntry{}, ErrZeroPages
	}
	return DocumentEntry{File: file, DisplayName: name, PageCount: pages}, nil
}

// ValidateDocumentName accepts file names with a .pdf extension
func ValidateDocumentName(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return ErrNotPDF
	}
	return nil
}

// HasMode reports whether a print mode has been chosen
func (d DocumentEntry) HasMode() bool {
	return d.PrintMode.IsValid() && d.LineCost != nil
}

func (d DocumentEntry) line() pricing.Line {
	return pricing.Line{Pages: d.PageCount, Cost: d.LineCost}
}

func (d DocumentEntry) clone() DocumentEntry {
	if d.LineCost != nil {
		cost := *d.LineCost
		d.LineCost = &cost
	}
	return d
}
