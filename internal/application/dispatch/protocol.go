// Package dispatch packages finalized orders for providers and decodes
// their accept/reject replies.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
)

// BatchSize is the most documents grouped into one transmission
const BatchSize = 10

// Provider control actions
const (
	ActionAccept = "order_accept"
	ActionReject = "order_reject"
	ArgToken     = "token"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MentionFunc renders a chat participant reference inside message text
type MentionFunc func(userID string) string

// Protocol sends orders to providers
type Protocol struct {
	messenger port.Messenger
	mention   MentionFunc
	logger    Logger
}

// Option configures the protocol
type Option func(*Protocol)

// WithMention sets how the requester is referenced in the summary
func WithMention(fn MentionFunc) Option {
	return func(p *Protocol) {
		p.mention = fn
	}
}

// NewProtocol creates a dispatch protocol on top of a messenger
func NewProtocol(messenger port.Messenger, logger Logger, opts ...Option) *Protocol {
	p := &Protocol{
		messenger: messenger,
		mention:   func(id string) string { return id },
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send delivers the summary with accept/reject controls, then the documents
// in batches of BatchSize.
func (p *Protocol) Send(ctx context.Context, order *entity.Order) error {
	token := CorrelationToken{RequesterID: order.RequesterID, OrderID: order.ID}

	summary, err := p.summary(order, token)
	if err != nil {
		return err
	}
	if err := p.messenger.Send(ctx, order.ProviderID, summary); err != nil {
		return fmt.Errorf("failed to send order summary: %w", err)
	}

	docs := make([]port.OutboundDocument, len(order.Documents))
	for i, d := range order.Documents {
		docs[i] = port.OutboundDocument{File: d.File, Name: d.DisplayName}
	}

	batches := Chunk(docs, BatchSize)
	for i, batch := range batches {
		if err := p.messenger.SendDocuments(ctx, order.ProviderID, batch); err != nil {
			return fmt.Errorf("failed to send document batch %d/%d: %w", i+1, len(batches), err)
		}
	}

	p.logger.Info("Order dispatched",
		"order_id", order.ID,
		"requester_id", order.RequesterID,
		"provider_id", order.ProviderID,
		"documents", len(order.Documents),
		"batches", len(batches),
	)
	return nil
}

func (p *Protocol) summary(order *entity.Order, token CorrelationToken) (port.OutboundMessage, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "New order from %s\n\n", p.mention(order.RequesterID))
	b.WriteString("Documents:\n")
	for i, d := range order.Documents {
		fmt.Fprintf(&b, "%d. %s: %d pages, %s", i+1, d.DisplayName, d.PageCount, ModeLabel(d.PrintMode))
		if d.LineCost != nil {
			fmt.Fprintf(&b, ", %s", pricing.Format(*d.LineCost))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nTotal: %d pages, %s\n", order.Totals.Pages, pricing.Format(order.Totals.Price))
	fmt.Fprintf(&b, "Requirements: %s\n", RequirementsLabel(order.Requirements))
	fmt.Fprintf(&b, "Payment: %s", PaymentLabel(order.Payment))

	encoded, err := token.Encode()
	if err != nil {
		return port.OutboundMessage{}, err
	}
	return port.OutboundMessage{
		Text: b.String(),
		Buttons: [][]port.Button{{
			{Label: "Done, notify requester", Style: port.ButtonPrimary, Control: port.Control{
				Action: ActionAccept, Args: map[string]string{ArgToken: encoded},
			}},
			{Label: "Decline", Style: port.ButtonDanger, Control: port.Control{
				Action: ActionReject, Args: map[string]string{ArgToken: encoded},
			}},
		}},
	}, nil
}

// Response is a decoded provider decision
type Response struct {
	Outcome    entity.Outcome
	Token      CorrelationToken
	ProviderID string
}

// IsResponse reports whether the control belongs to the provider protocol
func IsResponse(c port.Control) bool {
	return c.Action == ActionAccept || c.Action == ActionReject
}

// DecodeResponse turns a provider button press into a Response
func DecodeResponse(providerID string, c port.Control) (Response, error) {
	var outcome entity.Outcome
	switch c.Action {
	case ActionAccept:
		outcome = entity.OutcomeCompleted
	case ActionReject:
		outcome = entity.OutcomeRejected
	default:
		return Response{}, fmt.Errorf("%w: unexpected action %q", ErrMalformedToken, c.Action)
	}

	token, err := DecodeToken(c.Arg(ArgToken))
	if err != nil {
		return Response{}, err
	}
	return Response{Outcome: outcome, Token: token, ProviderID: providerID}, nil
}

// Chunk splits items into consecutive groups of at most size
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
