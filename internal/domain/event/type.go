package event

// Type identifies the type of domain event
type Type string

const (
	// Inbound chat traffic, translated by the messaging adapter
	TypeDocumentReceived Type = "message.document"
	TypeTextReceived     Type = "message.text"
	TypeCommandReceived  Type = "message.command"
	TypeButtonPressed    Type = "message.button"
	TypeUnsupportedMedia Type = "message.unsupported"

	// Order lifecycle, published by the order engine
	TypeOrderDispatched Type = "order.dispatched"
	TypeOrderCompleted  Type = "order.completed"
	TypeOrderRejected   Type = "order.rejected"
	TypeReviewSubmitted Type = "review.submitted"
	TypeSessionCleared  Type = "session.cleared"

	// Provider onboarding, published by the order engine
	TypeProviderRegistered Type = "provider.registered"
)

// Inbound lists the event types that drive the order workflow
var Inbound = []Type{
	TypeDocumentReceived,
	TypeTextReceived,
	TypeCommandReceived,
	TypeButtonPressed,
	TypeUnsupportedMedia,
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeDocumentReceived,
		TypeTextReceived,
		TypeCommandReceived,
		TypeButtonPressed,
		TypeUnsupportedMedia,
		TypeOrderDispatched,
		TypeOrderCompleted,
		TypeOrderRejected,
		TypeReviewSubmitted,
		TypeSessionCleared,
		TypeProviderRegistered:
		return true
	default:
		return false
	}
}

// IsInbound reports whether the event originates from a chat participant
func (t Type) IsInbound() bool {
	for _, in := range Inbound {
		if in == t {
			return true
		}
	}
	return false
}
