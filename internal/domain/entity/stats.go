package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderStats holds a provider's cumulative completed-order figures
type ProviderStats struct {
	ProviderID   string          `json:"provider_id"`
	Pages        int64           `json:"pages"`
	Earnings     decimal.Decimal `json:"earnings"`
	Orders       int64           `json:"orders"`
	FirstOrderAt *time.Time      `json:"first_order_at,omitempty"`
	LastOrderAt  *time.Time      `json:"last_order_at,omitempty"`
}

// Record adds one completed order to the totals
func (s *ProviderStats) Record(pages int, amount decimal.Decimal, at time.Time) {
	s.Pages += int64(pages)
	s.Earnings = s.Earnings.Add(amount)
	s.Orders++
	if s.FirstOrderAt == nil {
		first := at
		s.FirstOrderAt = &first
	}
	last := at
	s.LastOrderAt = &last
}
