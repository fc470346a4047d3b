package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
)

type sentMessage struct {
	receiveIDType string
	receiveID     string
	msgType       string
	content       string
}

type fakeSender struct {
	sent      []sentMessage
	uploaded  []string
	sendErr   error
	uploadErr error
}

func (f *fakeSender) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, sentMessage{receiveIDType, receiveID, msgType, content})
	return fmt.Sprintf("om_%d", len(f.sent)), nil
}

func (f *fakeSender) UploadFile(ctx context.Context, fileName string, data []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploaded = append(f.uploaded, fileName)
	return "file_up_" + string(data), nil
}

type fakeFetcher struct {
	fetchErr error
}

func (f fakeFetcher) Fetch(ctx context.Context, file entity.FileHandle) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return []byte(file.FileKey), nil
}

func TestMessenger_SendText(t *testing.T) {
	api := &fakeSender{}
	m := NewMessenger(api, fakeFetcher{}, zap.NewNop())

	require.NoError(t, m.Send(context.Background(), "ou_a", port.Text(`Total "3.00"`+"\nthanks")))
	require.Len(t, api.sent, 1)
	assert.Equal(t, ReceiveIDTypeOpenID, api.sent[0].receiveIDType)
	assert.Equal(t, "ou_a", api.sent[0].receiveID)
	assert.Equal(t, MsgTypeText, api.sent[0].msgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(api.sent[0].content), &content))
	assert.Equal(t, "Total \"3.00\"\nthanks", content["text"])
}

func TestMessenger_SendToGroupChat(t *testing.T) {
	api := &fakeSender{}
	m := NewMessenger(api, fakeFetcher{}, zap.NewNop())

	require.NoError(t, m.Send(context.Background(), "oc_support", port.Text("New question")))
	require.Len(t, api.sent, 1)
	assert.Equal(t, ReceiveIDTypeChatID, api.sent[0].receiveIDType)
	assert.Equal(t, "oc_support", api.sent[0].receiveID)
}

func TestMessenger_SendCard(t *testing.T) {
	api := &fakeSender{}
	m := NewMessenger(api, fakeFetcher{}, zap.NewNop())

	msg := port.OutboundMessage{
		Text:    "Pay by",
		Buttons: [][]port.Button{{{Label: "Cash", Control: port.Control{Action: "payment"}}}},
	}
	require.NoError(t, m.Send(context.Background(), "ou_a", msg))
	require.Len(t, api.sent, 1)
	assert.Equal(t, MsgTypeInteractive, api.sent[0].msgType)
	assert.Contains(t, api.sent[0].content, `"action":"payment"`)
}

func TestMessenger_SendRejectsBadInput(t *testing.T) {
	api := &fakeSender{}
	m := NewMessenger(api, fakeFetcher{}, zap.NewNop())

	assert.Error(t, m.Send(context.Background(), "", port.Text("hi")))
	assert.Error(t, m.Send(context.Background(), "ou_a", port.Text("")))
	assert.Empty(t, api.sent)
}

func TestMessenger_SendError(t *testing.T) {
	api := &fakeSender{sendErr: errors.New("rate limited")}
	m := NewMessenger(api, fakeFetcher{}, zap.NewNop())

	err := m.Send(context.Background(), "ou_a", port.Text("hi"))
	assert.ErrorIs(t, err, api.sendErr)
}

func TestMessenger_SendDocuments(t *testing.T) {
	api := &fakeSender{}
	m := NewMessenger(api, fakeFetcher{}, zap.NewNop())

	docs := []port.OutboundDocument{
		{File: entity.FileHandle{FileKey: "k1"}, Name: "a.pdf"},
		{File: entity.FileHandle{FileKey: "k2"}, Name: "b.pdf"},
	}
	require.NoError(t, m.SendDocuments(context.Background(), "ou_p", docs))

	assert.Equal(t, []string{"a.pdf", "b.pdf"}, api.uploaded)
	require.Len(t, api.sent, 2)
	assert.Equal(t, MsgTypeFile, api.sent[0].msgType)
	assert.JSONEq(t, `{"file_key":"file_up_k1"}`, api.sent[0].content)
	assert.JSONEq(t, `{"file_key":"file_up_k2"}`, api.sent[1].content)
}

func TestMessenger_SendDocumentsFailures(t *testing.T) {
	docs := []port.OutboundDocument{{File: entity.FileHandle{FileKey: "k1"}, Name: "a.pdf"}}

	fetchErr := errors.New("expired")
	m := NewMessenger(&fakeSender{}, fakeFetcher{fetchErr: fetchErr}, zap.NewNop())
	assert.ErrorIs(t, m.SendDocuments(context.Background(), "ou_p", docs), fetchErr)

	api := &fakeSender{uploadErr: errors.New("too large")}
	m = NewMessenger(api, fakeFetcher{}, zap.NewNop())
	assert.ErrorIs(t, m.SendDocuments(context.Background(), "ou_p", docs), api.uploadErr)
	assert.Empty(t, api.sent)
}
