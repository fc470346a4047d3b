package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/dorm-print/internal/domain/pricing"
	"github.com/garyjia/dorm-print/internal/domain/workflow"
)

// BulkThreshold is the number of queued documents, none with a mode, at which
// the requester is offered one choice for all documents instead of per-file prompts
const BulkThreshold = 3

// PaymentMethod is how the requester settles with the provider
type PaymentMethod string

const (
	PaymentUnset PaymentMethod = ""
	PaymentCard  PaymentMethod = "card"
	PaymentCash  PaymentMethod = "cash"
)

// Payment describes the requester's self-reported payment
type Payment struct {
	Method   PaymentMethod    `json:"method"`
	CardRef  string           `json:"card_ref,omitempty"`
	Tendered *decimal.Decimal `json:"tendered,omitempty"`
	Change   *decimal.Decimal `json:"change,omitempty"`
}

// Session is the in-progress order of one requester
type Session struct {
	RequesterID  string          `json:"requester_id"`
	Nonce        string          `json:"nonce"`
	ProviderID   string          `json:"provider_id"`
	Documents    []DocumentEntry `json:"documents"`
	Requirements string          `json:"requirements"`
	Payment      Payment         `json:"payment"`
	Phase        workflow.State  `json:"phase"`
	Totals       pricing.Totals  `json:"totals"`

	// BulkOffered is set once the all-documents choice has been shown
	BulkOffered bool `json:"bulk_offered"`
	// BulkPending is true while that choice is unanswered
	BulkPending bool `json:"bulk_pending"`

	OrderID string `json:"order_id,omitempty"`
	Rating  int    `json:"rating,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession starts an order for the given provider
func NewSession(requesterID, providerID, nonce string, now time.Time) *Session {
	return &Session{
		RequesterID: requesterID,
		Nonce:       nonce,
		ProviderID:  providerID,
		Phase:       workflow.StateProviderSelected,
		Totals:      pricing.Totals{Price: decimal.Zero},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddDocument appends an accepted document and recomputes totals
func (s *Session) AddDocument(doc DocumentEntry) int {
	s.Documents = append(s.Documents, doc)
	s.recompute()
	return len(s.Documents) - 1
}

// AssignMode prices one document. It returns false when the document already
// has that mode, leaving its cost untouched.
func (s *Session) AssignMode(index int, mode pricing.Mode, rates pricing.RateCard) (bool, error) {
	if index < 0 || index >= len(s.Documents) {
		return false, fmt.Errorf("%w: %d", ErrDocumentIndex, index)
	}
	doc := &s.Documents[index]
	if doc.HasMode() && doc.PrintMode == mode {
		return false, nil
	}
	cost, err := pricing.LineCost(doc.PageCount, mode, rates)
	if err != nil {
		return false, err
	}
	doc.PrintMode = mode
	doc.LineCost = &cost
	s.recompute()
	return true, nil
}

// AssignAll prices every document with the same mode
func (s *Session) AssignAll(mode pricing.Mode, rates pricing.RateCard) error {
	for i := range s.Documents {
		if _, err := s.AssignMode(i, mode, rates); err != nil {
			return err
		}
	}
	s.BulkPending = false
	return nil
}

// AllModesSet reports whether every document has a print mode
func (s *Session) AllModesSet() bool {
	for _, d := range s.Documents {
		if !d.HasMode() {
			return false
		}
	}
	return true
}

// AnyModeSet reports whether at least one document has a print mode
func (s *Session) AnyModeSet() bool {
	for _, d := range s.Documents {
		if d.HasMode() {
			return true
		}
	}
	return false
}

// UnsetDocuments returns indexes of documents still waiting for a mode
func (s *Session) UnsetDocuments() []int {
	var out []int
	for i, d := range s.Documents {
		if !d.HasMode() {
			out = append(out, i)
		}
	}
	return out
}

// ShouldOfferBulk is true exactly once: when BulkThreshold documents are queued
// and none has a mode yet
func (s *Session) ShouldOfferBulk() bool {
	return !s.BulkOffered && len(s.Documents) >= BulkThreshold && !s.AnyModeSet()
}

// SetRequirements stores the requester's free text verbatim
func (s *Session) SetRequirements(text string) {
	s.Requirements = strings.TrimSpace(text)
}

// HasRequirements is false for empty text and for a "none" answer
func (s *Session) HasRequirements() bool {
	return !IsNoneAnswer(s.Requirements)
}

// IsNoneAnswer matches an explicit "nothing to add" reply
func IsNoneAnswer(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "-", "no", "none", "nothing", "нет":
		return true
	}
	return false
}

// Touch records activity on the session
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Clone returns a deep copy so callers can mutate without sharing state
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Documents = make([]DocumentEntry, len(s.Documents))
	for i, d := range s.Documents {
		c.Documents[i] = d.clone()
	}
	c.Payment = s.Payment.clone()
	return &c
}

// Snapshot freezes the session into an order for dispatch
func (s *Session) Snapshot(orderID string, now time.Time) *Order {
	c := s.Clone()
	return &Order{
		ID:           orderID,
		RequesterID:  c.RequesterID,
		ProviderID:   c.ProviderID,
		Documents:    c.Documents,
		Requirements: c.Requirements,
		Payment:      c.Payment,
		Totals:       c.Totals,
		CreatedAt:    now,
	}
}

func (s *Session) recompute() {
	lines := make([]pricing.Line, len(s.Documents))
	for i, d := range s.Documents {
		lines[i] = d.line()
	}
	s.Totals = pricing.Sum(lines)
}

func (p Payment) clone() Payment {
	if p.Tendered != nil {
		v := *p.Tendered
		p.Tendered = &v
	}
	if p.Change != nil {
		v := *p.Change
		p.Change = &v
	}
	return p
}
