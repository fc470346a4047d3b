package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/pkg/utils"
)

// DefaultReviewsPageSize is how many reviews one page holds
const DefaultReviewsPageSize = 15

// ReviewService stores reviews and aggregates ratings
type ReviewService interface {
	port.ReviewBook
}

type reviewServiceImpl struct {
	reviewRepo   port.ReviewRepository
	providerRepo port.ProviderRepository
	logger       Logger
	pageSize     int
	now          func() time.Time
}

// NewReviewService creates a new ReviewService. A non-positive pageSize
// falls back to DefaultReviewsPageSize.
func NewReviewService(
	reviewRepo port.ReviewRepository,
	providerRepo port.ProviderRepository,
	logger Logger,
	pageSize int,
) ReviewService {
	if pageSize <= 0 {
		pageSize = DefaultReviewsPageSize
	}
	return &reviewServiceImpl{
		reviewRepo:   reviewRepo,
		providerRepo: providerRepo,
		logger:       logger,
		pageSize:     pageSize,
		now:          time.Now,
	}
}

// SubmitReview appends one review. Reviews are never edited.
func (s *reviewServiceImpl) SubmitReview(ctx context.Context, providerID, raterID string, rating int, comment string) (*entity.Review, error) {
	if err := entity.ValidateRating(rating); err != nil {
		return nil, err
	}
	comment = utils.SanitizeText(comment)
	if comment == "" {
		return nil, fmt.Errorf("%w: comment is required", ErrInvalidReview)
	}
	if raterID == "" || raterID == providerID {
		return nil, fmt.Errorf("%w: rater must be another user", ErrInvalidReview)
	}

	p, err := s.providerRepo.GetByID(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("get provider %s: %w", providerID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerID)
	}

	review := &entity.Review{
		ProviderID: providerID,
		RaterID:    raterID,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  s.now(),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		s.logger.Error("Failed to save review",
			"provider_id", providerID,
			"rater_id", raterID,
			"error", err)
		return nil, fmt.Errorf("save review: %w", err)
	}

	s.logger.Info("Review submitted",
		"review_id", review.ID,
		"provider_id", providerID,
		"rating", rating)
	return review, nil
}

// GetAverageRating returns a zero summary for a provider without reviews
func (s *reviewServiceImpl) GetAverageRating(ctx context.Context, providerID string) (*entity.RatingSummary, error) {
	summary, err := s.reviewRepo.Summary(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("rating summary %s: %w", providerID, err)
	}
	return summary, nil
}

// GetReviews returns one newest-first page; pages are numbered from 1
func (s *reviewServiceImpl) GetReviews(ctx context.Context, providerID string, page int) ([]*entity.Review, error) {
	if page < 1 {
		page = 1
	}
	reviews, err := s.reviewRepo.ListByProvider(ctx, providerID, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list reviews %s: %w", providerID, err)
	}
	return reviews, nil
}
