package dispatch

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedToken is returned when a provider control does not carry a valid token
var ErrMalformedToken = errors.New("malformed correlation token")

// CorrelationToken links a provider's reply to the requester's session. It is
// carried opaquely in the provider's buttons and echoed back unmodified.
type CorrelationToken struct {
	RequesterID string `json:"r"`
	OrderID     string `json:"o"`
}

// Encode renders the token as URL-safe base64 JSON
func (t CorrelationToken) Encode() (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to encode correlation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeToken parses an encoded token
func DecodeToken(s string) (CorrelationToken, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return CorrelationToken{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	var t CorrelationToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return CorrelationToken{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if t.RequesterID == "" || t.OrderID == "" {
		return CorrelationToken{}, fmt.Errorf("%w: missing requester or order", ErrMalformedToken)
	}
	return t, nil
}
