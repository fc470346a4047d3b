package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/infrastructure/persistence/sqldb"
)

// StatsRepository implements port.StatsRepository
type StatsRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *sqldb.DB, logger *zap.Logger) port.StatsRepository {
	return &StatsRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the provider's totals, or zero totals without a row
func (r *StatsRepository) Get(ctx context.Context, providerID string) (*entity.ProviderStats, error) {
	query := r.db.Rebind(`
		SELECT pages, earnings, orders, first_order_at, last_order_at
		FROM provider_stats
		WHERE provider_id = ?
	`)

	stats := &entity.ProviderStats{ProviderID: providerID, Earnings: decimal.Zero}
	var first, last sql.NullTime
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, providerID).Scan(
		&stats.Pages,
		&stats.Earnings,
		&stats.Orders,
		&first,
		&last,
	)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		r.logger.Error("Failed to get provider stats",
			zap.String("provider_id", providerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get provider stats: %w", err)
	}

	if first.Valid {
		stats.FirstOrderAt = &first.Time
	}
	if last.Valid {
		stats.LastOrderAt = &last.Time
	}
	return stats, nil
}

// Save writes the provider's totals
func (r *StatsRepository) Save(ctx context.Context, stats *entity.ProviderStats) error {
	query := r.db.Rebind(`
		INSERT INTO provider_stats (provider_id, pages, earnings, orders, first_order_at, last_order_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider_id) DO UPDATE SET
			pages = excluded.pages,
			earnings = excluded.earnings,
			orders = excluded.orders,
			first_order_at = excluded.first_order_at,
			last_order_at = excluded.last_order_at
	`)

	var first, last sql.NullTime
	if stats.FirstOrderAt != nil {
		first = sql.NullTime{Time: stats.FirstOrderAt.UTC(), Valid: true}
	}
	if stats.LastOrderAt != nil {
		last = sql.NullTime{Time: stats.LastOrderAt.UTC(), Valid: true}
	}

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		stats.ProviderID,
		stats.Pages,
		stats.Earnings,
		stats.Orders,
		first,
		last,
	)
	if err != nil {
		r.logger.Error("Failed to save provider stats",
			zap.String("provider_id", stats.ProviderID),
			zap.Error(err))
		return fmt.Errorf("failed to save provider stats: %w", err)
	}
	return nil
}
