package entity

import (
	"time"

	"github.com/garyjia/dorm-print/internal/domain/pricing"
)

// Outcome is the provider's decision on a dispatched order
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeRejected  Outcome = "rejected"
)

// Order is the immutable snapshot of a session handed to a provider
type Order struct {
	ID           string          `json:"id"`
	RequesterID  string          `json:"requester_id"`
	ProviderID   string          `json:"provider_id"`
	Documents    []DocumentEntry `json:"documents"`
	Requirements string          `json:"requirements"`
	Payment      Payment         `json:"payment"`
	Totals       pricing.Totals  `json:"totals"`
	CreatedAt    time.Time       `json:"created_at"`
}
