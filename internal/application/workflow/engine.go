package workflow

import (
	"context"
	"time"

	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/event"
)

// OrderEngine drives the order conversation of every requester
type OrderEngine interface {
	// HandleEvent processes one inbound chat event. Failures the user can act
	// on are answered in chat and not returned.
	HandleEvent(ctx context.Context, evt *event.Event) error

	// Reset unconditionally clears the requester's session and provider selection
	Reset(ctx context.Context, requesterID string)

	// ExpireIdle clears editable sessions untouched since cutoff and returns
	// the affected requesters
	ExpireIdle(ctx context.Context, cutoff time.Time) []string
}

// OrderSender hands a finalized order to its provider
type OrderSender interface {
	Send(ctx context.Context, order *entity.Order) error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
