// Package websocket connects the Lark long-connection event stream to the
// application dispatcher.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkevent "github.com/larksuite/oapi-sdk-go/v3/event"
	larkdispatcher "github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/dispatcher"
	"github.com/garyjia/dorm-print/internal/domain/event"
	"github.com/garyjia/dorm-print/internal/infrastructure/external/lark"
)

// EventTypeCardAction is the callback type of an interactive card button press
const EventTypeCardAction = "card.action.trigger"

var leadingMention = regexp.MustCompile(`^(@_user_\d+\s*)+`)

// LarkAdapter wraps the Lark WebSocket SDK client and translates chat
// messages and card button presses into domain events.
type LarkAdapter struct {
	appID      string
	appSecret  string
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger

	wsClient *larkws.Client
	mu       sync.RWMutex
	started  bool
}

// LarkAdapterConfig holds configuration for the Lark WebSocket adapter.
type LarkAdapterConfig struct {
	AppID     string
	AppSecret string
}

// NewLarkAdapter creates a new Lark WebSocket adapter.
func NewLarkAdapter(cfg LarkAdapterConfig, d dispatcher.Dispatcher, logger *zap.Logger) *LarkAdapter {
	return &LarkAdapter{
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		dispatcher: d,
		logger:     logger,
	}
}

// Start opens the long connection and blocks until ctx is cancelled or the
// client fails.
func (a *LarkAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("adapter already started")
	}

	// Verification token and encrypt key are not used in WebSocket mode
	sdkDispatcher := larkdispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(a.handleMessage).
		OnCustomizedEvent(EventTypeCardAction, a.handleCardAction)

	a.wsClient = larkws.NewClient(
		a.appID,
		a.appSecret,
		larkws.WithEventHandler(sdkDispatcher),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	a.started = true
	a.mu.Unlock()

	a.logger.Info("Starting Lark WebSocket adapter", zap.String("app_id", a.appID))

	if err := a.wsClient.Start(ctx); err != nil {
		a.logger.Error("Lark WebSocket client error", zap.Error(err))
		return fmt.Errorf("websocket client error: %w", err)
	}
	return nil
}

// Stop marks the adapter stopped. The connection itself closes when the
// context passed to Start is cancelled.
func (a *LarkAdapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}

	a.started = false
	a.logger.Info("Lark WebSocket adapter stopped")
	return nil
}

// IsRunning returns whether the adapter is currently running.
func (a *LarkAdapter) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.started
}

func (a *LarkAdapter) handleMessage(ctx context.Context, evt *larkim.P2MessageReceiveV1) error {
	if evt == nil || evt.Event == nil || evt.Event.Message == nil || evt.Event.Sender == nil || evt.Event.Sender.SenderId == nil {
		a.logger.Warn("Ignoring incomplete message event")
		return nil
	}

	msg := InboundMessage{
		SenderID:    larkcore.StringValue(evt.Event.Sender.SenderId.OpenId),
		ChatID:      larkcore.StringValue(evt.Event.Message.ChatId),
		MessageID:   larkcore.StringValue(evt.Event.Message.MessageId),
		MessageType: larkcore.StringValue(evt.Event.Message.MessageType),
		Content:     larkcore.StringValue(evt.Event.Message.Content),
	}

	domainEvent, err := TranslateMessage(msg)
	if err != nil {
		a.logger.Warn("Failed to translate message",
			zap.String("message_id", msg.MessageID),
			zap.String("message_type", msg.MessageType),
			zap.Error(err))
		return nil
	}

	a.publish(ctx, domainEvent)
	return nil
}

func (a *LarkAdapter) handleCardAction(ctx context.Context, evt *larkevent.EventReq) error {
	domainEvent, err := TranslateCardAction(evt.Body)
	if err != nil {
		a.logger.Warn("Failed to translate card action",
			zap.Int("body_length", len(evt.Body)),
			zap.Error(err))
		return nil
	}

	a.publish(ctx, domainEvent)
	return nil
}

// publish hands the event to the sender's lane. The SDK callback returns
// immediately so Lark does not redeliver while the order engine is busy.
func (a *LarkAdapter) publish(ctx context.Context, evt *event.Event) {
	a.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)

	a.logger.Debug("Domain event dispatched",
		zap.String("event_type", evt.Type.String()),
		zap.String("event_id", evt.ID),
		zap.String("sender_id", evt.SenderID))
}

// InboundMessage is the part of a received Lark message the bot reads
type InboundMessage struct {
	SenderID    string
	ChatID      string
	MessageID   string
	MessageType string
	Content     string
}

// TranslateMessage converts a received message into a domain event. Text
// starting with "/" becomes a command; file messages become documents; any
// other media is reported as unsupported.
func TranslateMessage(msg InboundMessage) (*event.Event, error) {
	if msg.SenderID == "" {
		return nil, fmt.Errorf("message %s has no sender", msg.MessageID)
	}

	var evt *event.Event
	switch msg.MessageType {
	case lark.MsgTypeText:
		var content struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(msg.Content), &content); err != nil {
			return nil, fmt.Errorf("failed to parse text content: %w", err)
		}

		text := strings.TrimSpace(leadingMention.ReplaceAllString(strings.TrimSpace(content.Text), ""))
		if strings.HasPrefix(text, "/") {
			fields := strings.Fields(text)
			evt = event.NewEvent(event.TypeCommandReceived, msg.SenderID, map[string]interface{}{
				event.KeyCommand: strings.ToLower(fields[0]),
				event.KeyText:    strings.TrimSpace(strings.TrimPrefix(text, fields[0])),
			})
		} else {
			evt = event.NewEvent(event.TypeTextReceived, msg.SenderID, map[string]interface{}{
				event.KeyText: text,
			})
		}

	case lark.MsgTypeFile:
		var content struct {
			FileKey  string `json:"file_key"`
			FileName string `json:"file_name"`
		}
		if err := json.Unmarshal([]byte(msg.Content), &content); err != nil {
			return nil, fmt.Errorf("failed to parse file content: %w", err)
		}
		if content.FileKey == "" {
			return nil, fmt.Errorf("file message %s has no file key", msg.MessageID)
		}
		evt = event.NewEvent(event.TypeDocumentReceived, msg.SenderID, map[string]interface{}{
			event.KeyFileKey:   content.FileKey,
			event.KeyFileName:  content.FileName,
			event.KeyMessageID: msg.MessageID,
		})

	default:
		evt = event.NewEvent(event.TypeUnsupportedMedia, msg.SenderID, map[string]interface{}{
			event.KeyMediaType: msg.MessageType,
			event.KeyMessageID: msg.MessageID,
		})
	}

	evt.ChatID = msg.ChatID
	return evt, nil
}

// cardActionPayload is the part of a card.action.trigger callback the bot reads
type cardActionPayload struct {
	Event struct {
		Operator struct {
			OpenID string `json:"open_id"`
		} `json:"operator"`
		Action struct {
			Value map[string]interface{} `json:"value"`
		} `json:"action"`
		Context struct {
			OpenMessageID string `json:"open_message_id"`
			OpenChatID    string `json:"open_chat_id"`
		} `json:"context"`
	} `json:"event"`
}

// TranslateCardAction converts a card button callback into a button event
func TranslateCardAction(body []byte) (*event.Event, error) {
	var payload cardActionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse card action: %w", err)
	}

	sender := payload.Event.Operator.OpenID
	if sender == "" {
		return nil, fmt.Errorf("card action has no operator")
	}

	control, ok := lark.ControlFromValue(payload.Event.Action.Value)
	if !ok {
		return nil, fmt.Errorf("card action has no control")
	}

	evt := event.NewEvent(event.TypeButtonPressed, sender, map[string]interface{}{
		event.KeyAction:    control.Action,
		event.KeyArgs:      control.Args,
		event.KeyMessageID: payload.Event.Context.OpenMessageID,
	})
	evt.ChatID = payload.Event.Context.OpenChatID
	return evt, nil
}
