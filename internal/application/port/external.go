package port

import (
	"context"

	"github.com/garyjia/dorm-print/internal/domain/entity"
)

// Control is the data carried by a button. The transport echoes it back
// unmodified when the button is pressed.
type Control struct {
	Action string
	Args   map[string]string
}

// Arg returns one argument or ""
func (c Control) Arg(key string) string {
	return c.Args[key]
}

// ButtonStyle hints how prominently a button is rendered
type ButtonStyle string

const (
	ButtonDefault ButtonStyle = "default"
	ButtonPrimary ButtonStyle = "primary"
	ButtonDanger  ButtonStyle = "danger"
)

// Button is one inline control
type Button struct {
	Label   string
	Style   ButtonStyle
	Control Control
}

// OutboundMessage is a text with optional rows of buttons
type OutboundMessage struct {
	Text    string
	Buttons [][]Button
}

// Text builds a message without buttons
func Text(text string) OutboundMessage {
	return OutboundMessage{Text: text}
}

// OutboundDocument is one binary forwarded to a recipient
type OutboundDocument struct {
	File entity.FileHandle
	Name string
}

// Messenger delivers messages on the chat transport
type Messenger interface {
	Send(ctx context.Context, recipientID string, msg OutboundMessage) error

	// SendDocuments delivers one grouped transmission of at most one batch
	SendDocuments(ctx context.Context, recipientID string, docs []OutboundDocument) error
}

// DocumentFetcher returns the bytes of an uploaded document
type DocumentFetcher interface {
	Fetch(ctx context.Context, file entity.FileHandle) ([]byte, error)
}

// PageCounter counts the pages of an uploaded document
type PageCounter interface {
	CountPages(ctx context.Context, file entity.FileHandle) (int, error)
}
