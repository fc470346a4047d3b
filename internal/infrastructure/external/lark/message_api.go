package lark

import (
	"bytes"
	"context"
	"fmt"
	"io"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Receive ID types accepted by the message API
const (
	ReceiveIDTypeOpenID = "open_id"
	ReceiveIDTypeChatID = "chat_id"
)

// Message types
const (
	MsgTypeText        = "text"
	MsgTypeInteractive = "interactive"
	MsgTypeFile        = "file"
)

// MessageAPI handles Lark IM operations
type MessageAPI struct {
	client *SDKClient
	logger *zap.Logger
}

// NewMessageAPI creates a new message API handler
func NewMessageAPI(client *SDKClient, logger *zap.Logger) *MessageAPI {
	return &MessageAPI{
		client: client,
		logger: logger,
	}
}

// SendMessage sends a message to a user or group and returns its message ID
func (m *MessageAPI) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.client.GetClient().Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.String("msg_type", msgType),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Debug("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", receiveID),
		zap.String("msg_type", msgType))

	return messageID, nil
}

// UploadFile uploads a PDF for use in file messages and returns its file key
func (m *MessageAPI) UploadFile(ctx context.Context, fileName string, data []byte) (string, error) {
	req := larkim.NewCreateFileReqBuilder().
		Body(larkim.NewCreateFileReqBodyBuilder().
			FileType("pdf").
			FileName(fileName).
			File(bytes.NewReader(data)).
			Build()).
		Build()

	resp, err := m.client.GetClient().Im.File.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to upload file",
			zap.String("file_name", fileName),
			zap.Error(err))
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("file_name", fileName),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	if resp.Data == nil || resp.Data.FileKey == nil {
		return "", fmt.Errorf("upload of %s returned no file key", fileName)
	}
	return *resp.Data.FileKey, nil
}

// GetResource downloads a file attached to a received message
func (m *MessageAPI) GetResource(ctx context.Context, messageID, fileKey string) ([]byte, error) {
	req := larkim.NewGetMessageResourceReqBuilder().
		MessageId(messageID).
		FileKey(fileKey).
		Type("file").
		Build()

	resp, err := m.client.GetClient().Im.MessageResource.Get(ctx, req)
	if err != nil {
		m.logger.Error("Failed to download message resource",
			zap.String("message_id", messageID),
			zap.String("file_key", fileKey),
			zap.Error(err))
		return nil, fmt.Errorf("failed to download resource: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("message_id", messageID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return nil, fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	data, err := io.ReadAll(resp.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource body: %w", err)
	}

	m.logger.Debug("Resource downloaded",
		zap.String("file_key", fileKey),
		zap.Int("size", len(data)))
	return data, nil
}
