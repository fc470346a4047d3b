package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/port"
)

// MessageSender is the subset of MessageAPI the messenger needs
type MessageSender interface {
	SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
	UploadFile(ctx context.Context, fileName string, data []byte) (string, error)
}

// Messenger implements port.Messenger on Lark IM
type Messenger struct {
	api     MessageSender
	fetcher port.DocumentFetcher
	logger  *zap.Logger
}

// NewMessenger creates a new Lark messenger. Forwarded documents are read
// through fetcher.
func NewMessenger(api MessageSender, fetcher port.DocumentFetcher, logger *zap.Logger) *Messenger {
	return &Messenger{
		api:     api,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Send delivers a plain text message, or an interactive card when the
// message has buttons.
func (m *Messenger) Send(ctx context.Context, recipientID string, msg port.OutboundMessage) error {
	if recipientID == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	msgType := MsgTypeText
	var payload interface{} = map[string]string{"text": msg.Text}
	if len(msg.Buttons) > 0 {
		msgType = MsgTypeInteractive
		payload = buildCard(msg)
	} else if msg.Text == "" {
		return fmt.Errorf("message to %s is empty", recipientID)
	}

	content, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s content: %w", msgType, err)
	}

	if _, err := m.api.SendMessage(ctx, receiveIDType(recipientID), recipientID, msgType, string(content)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendDocuments forwards each document as a file message, in order.
// Lark has no grouped media message, so a batch is consecutive messages and
// stops at the first failure.
func (m *Messenger) SendDocuments(ctx context.Context, recipientID string, docs []port.OutboundDocument) error {
	if recipientID == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	for i, doc := range docs {
		data, err := m.fetcher.Fetch(ctx, doc.File)
		if err != nil {
			return fmt.Errorf("failed to fetch document %d (%s): %w", i+1, doc.Name, err)
		}

		fileKey, err := m.api.UploadFile(ctx, doc.Name, data)
		if err != nil {
			return fmt.Errorf("failed to upload document %d (%s): %w", i+1, doc.Name, err)
		}

		content, err := json.Marshal(map[string]string{"file_key": fileKey})
		if err != nil {
			return fmt.Errorf("failed to marshal file content: %w", err)
		}

		if _, err := m.api.SendMessage(ctx, receiveIDType(recipientID), recipientID, MsgTypeFile, string(content)); err != nil {
			return fmt.Errorf("failed to send document %d (%s): %w", i+1, doc.Name, err)
		}
	}

	m.logger.Info("Documents forwarded",
		zap.String("recipient", recipientID),
		zap.Int("count", len(docs)))
	return nil
}

// receiveIDType addresses group chats ("oc_" IDs) by chat ID and everyone
// else by open ID
func receiveIDType(recipientID string) string {
	if strings.HasPrefix(recipientID, "oc_") {
		return ReceiveIDTypeChatID
	}
	return ReceiveIDTypeOpenID
}
