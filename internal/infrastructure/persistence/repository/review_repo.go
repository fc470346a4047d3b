package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/infrastructure/persistence/sqldb"
)

// ReviewRepository implements port.ReviewRepository
type ReviewRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *sqldb.DB, logger *zap.Logger) port.ReviewRepository {
	return &ReviewRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a review and sets its ID
func (r *ReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	query := r.db.Rebind(`
		INSERT INTO reviews (provider_id, rater_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.Executor(ctx).QueryRowContext(ctx, query,
		review.ProviderID,
		review.RaterID,
		review.Rating,
		review.Comment,
		review.CreatedAt.UTC(),
	).Scan(&review.ID)
	if err != nil {
		r.logger.Error("Failed to create review",
			zap.String("provider_id", review.ProviderID),
			zap.String("rater_id", review.RaterID),
			zap.Error(err))
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// Summary returns the review count and average rating of a provider
func (r *ReviewRepository) Summary(ctx context.Context, providerID string) (*entity.RatingSummary, error) {
	query := r.db.Rebind(`
		SELECT COUNT(*), COALESCE(AVG(rating), 0)
		FROM reviews
		WHERE provider_id = ?
	`)

	summary := &entity.RatingSummary{ProviderID: providerID}
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, providerID).Scan(&summary.Count, &summary.Average)
	if err != nil {
		r.logger.Error("Failed to summarize reviews",
			zap.String("provider_id", providerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	return summary, nil
}

// ListByProvider returns reviews newest first
func (r *ReviewRepository) ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]*entity.Review, error) {
	query := r.db.Rebind(`
		SELECT id, provider_id, rater_id, rating, comment, created_at
		FROM reviews
		WHERE provider_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`)

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, providerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list reviews",
			zap.String("provider_id", providerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*entity.Review
	for rows.Next() {
		var review entity.Review
		if err := rows.Scan(
			&review.ID,
			&review.ProviderID,
			&review.RaterID,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, &review)
	}
	return reviews, rows.Err()
}
