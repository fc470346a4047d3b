package entity

import "time"

// Review is a requester's rating of a completed order
type Review struct {
	ID         int64     `json:"id"`
	ProviderID string    `json:"provider_id"`
	RaterID    string    `json:"rater_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// Star rating bounds
const (
	MinRating = 1
	MaxRating = 5
)

// ValidateRating checks the MinRating..MaxRating star range
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// RatingSummary aggregates a provider's reviews
type RatingSummary struct {
	ProviderID string  `json:"provider_id"`
	Average    float64 `json:"average"`
	Count      int     `json:"count"`
}
