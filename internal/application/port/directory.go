package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
)

// ProviderDirectory is the order workflow's view of provider data.
// GetProvider returns nil, nil for an unknown provider.
type ProviderDirectory interface {
	ListActiveProviders(ctx context.Context, capability entity.Capability) ([]entity.ProviderSummary, error)
	GetProvider(ctx context.Context, id string) (*entity.Provider, error)
	SetProviderActive(ctx context.Context, id string, active bool) error
	RecordStats(ctx context.Context, id string, pages int, amount decimal.Decimal) error
	GetStats(ctx context.Context, id string) (*entity.ProviderStats, error)
}

// ProviderInput is a full provider profile as submitted for registration
type ProviderInput struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Room        string            `json:"room"`
	Rates       pricing.RateCard  `json:"rates"`
	Active      bool              `json:"active"`
	CardRef     string            `json:"card_ref"`
	Description string            `json:"description"`
	Capability  entity.Capability `json:"capability"`
}

// ProviderPatch changes selected profile fields; nil fields are kept
type ProviderPatch struct {
	DisplayName *string            `json:"display_name"`
	Room        *string            `json:"room"`
	Monochrome  *decimal.Decimal   `json:"monochrome"`
	Color       *decimal.Decimal   `json:"color"`
	CardRef     *string            `json:"card_ref"`
	Description *string            `json:"description"`
	Capability  *entity.Capability `json:"capability"`
}

// ProviderProfiles creates and edits provider profiles. Validation failures
// wrap entity.ErrInvalidProvider.
type ProviderProfiles interface {
	RegisterProvider(ctx context.Context, input ProviderInput) (*entity.Provider, error)
	UpdateProvider(ctx context.Context, id string, patch ProviderPatch) (*entity.Provider, error)
}

// ReviewBook stores and aggregates reviews
type ReviewBook interface {
	SubmitReview(ctx context.Context, providerID, raterID string, rating int, comment string) (*entity.Review, error)
	GetAverageRating(ctx context.Context, providerID string) (*entity.RatingSummary, error)
	GetReviews(ctx context.Context, providerID string, page int) ([]*entity.Review, error)
}

// SessionStore holds one session per requester. Update serializes calls for
// the same requester; fn receives a private copy (nil when absent) and returns
// the session to store, or nil to clear it. On error nothing is stored.
type SessionStore interface {
	Get(ctx context.Context, requesterID string) (*entity.Session, bool)
	Update(ctx context.Context, requesterID string, fn func(*entity.Session) (*entity.Session, error)) (*entity.Session, error)
	Clear(ctx context.Context, requesterID string)
	Snapshot(ctx context.Context) []*entity.Session
}

// SelectionRegistry remembers which provider each requester picked
type SelectionRegistry interface {
	Select(requesterID, providerID string)
	Selected(requesterID string) (string, bool)
	Forget(requesterID string)
}

// DialogStore holds at most one pending dialog per user
type DialogStore interface {
	Get(ctx context.Context, userID string) (*entity.Dialog, bool)
	Put(ctx context.Context, dialog *entity.Dialog)
	Clear(ctx context.Context, userID string)

	// Expire drops dialogs last updated before cutoff and returns their users
	Expire(ctx context.Context, cutoff time.Time) []string
}
