package service

import (
	"errors"

	"github.com/garyjia/dorm-print/internal/domain/entity"
)

var (
	// ErrProviderNotFound is returned when an operation names an unregistered provider
	ErrProviderNotFound = errors.New("provider not found")

	// ErrInvalidProvider is returned when a profile fails validation
	ErrInvalidProvider = entity.ErrInvalidProvider

	// ErrInvalidRating is returned for a star rating outside 1..5
	ErrInvalidRating = entity.ErrInvalidRating

	// ErrInvalidReview is returned for an empty comment or a self-review
	ErrInvalidReview = errors.New("invalid review")
)
