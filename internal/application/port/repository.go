package port

import (
	"context"

	"github.com/garyjia/dorm-print/internal/domain/entity"
)

// ProviderRepository defines persistence operations for Provider.
// Lookups return nil, nil when the provider does not exist.
type ProviderRepository interface {
	Upsert(ctx context.Context, provider *entity.Provider) error
	GetByID(ctx context.Context, id string) (*entity.Provider, error)
	ListActive(ctx context.Context) ([]*entity.Provider, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

// ReviewRepository defines persistence operations for Review
type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	Summary(ctx context.Context, providerID string) (*entity.RatingSummary, error)
	ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]*entity.Review, error)
}

// StatsRepository defines persistence operations for ProviderStats
type StatsRepository interface {
	// Get returns zero stats for a provider without completed orders
	Get(ctx context.Context, providerID string) (*entity.ProviderStats, error)
	Save(ctx context.Context, stats *entity.ProviderStats) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
