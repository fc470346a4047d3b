package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by the adapter and the order engine
const (
	KeyFileKey   = "file_key"
	KeyMessageID = "message_id"
	KeyFileName  = "file_name"
	KeyText      = "text"
	KeyCommand   = "command"
	KeyArgs      = "args"
	KeyAction    = "action"
	KeyControl   = "control"
	KeyMediaType = "media_type"

	KeyOrderID    = "order_id"
	KeyProviderID = "provider_id"
	KeyPages      = "pages"
	KeyAmount     = "amount"
	KeyRating     = "rating"
	KeyReason     = "reason"
)

// Event is a domain event. SenderID is the chat participant the event came
// from, or the requester an engine-published event concerns.
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	SenderID      string                 `json:"sender_id"`
	ChatID        string                 `json:"chat_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, senderID string, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		SenderID:      senderID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, senderID string, payload map[string]interface{}, correlationID string) *Event {
	evt := NewEvent(eventType, senderID, payload)
	evt.CorrelationID = correlationID
	return evt
}

// WithPayload returns a copy of the event with one more payload entry
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	c := *e
	c.Payload = payload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if str, ok := e.Payload[key].(string); ok {
		return str
	}
	return ""
}

// GetPayloadInt retrieves an integer value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// GetPayloadStrings retrieves a string slice from the payload
func (e *Event) GetPayloadStrings(key string) []string {
	switch v := e.Payload[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// GetPayloadStringMap retrieves a string map (button arguments) from the payload
func (e *Event) GetPayloadStringMap(key string) map[string]string {
	switch v := e.Payload[key].(type) {
	case map[string]string:
		return v
	case map[string]interface{}:
		out := make(map[string]string, len(v))
		for k, item := range v {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}
