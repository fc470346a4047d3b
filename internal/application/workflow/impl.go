package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/dorm-print/internal/application/dispatch"
	"github.com/garyjia/dorm-print/internal/application/dispatcher"
	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/application/session"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/event"
	domainwf "github.com/garyjia/dorm-print/internal/domain/workflow"
)

// engineImpl is the concrete implementation of OrderEngine
type engineImpl struct {
	sessions   port.SessionStore
	selections port.SelectionRegistry
	directory  port.ProviderDirectory
	reviews    port.ReviewBook
	pages      port.PageCounter
	messenger  port.Messenger
	orders     OrderSender
	logger     Logger

	// Lifecycle events are published here when set
	dispatcher dispatcher.Dispatcher

	// Chat onboarding and profile editing need profiles; /print_support
	// needs supportChat
	profiles    port.ProviderProfiles
	dialogs     port.DialogStore
	supportChat string
	mention     func(userID string) string

	now   func() time.Time
	newID func() string
}

// EngineOption configures the order engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for lifecycle events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithProfiles enables provider registration and profile editing in chat
func WithProfiles(p port.ProviderProfiles) EngineOption {
	return func(e *engineImpl) {
		e.profiles = p
	}
}

// WithDialogs overrides the store of pending chat dialogs
func WithDialogs(d port.DialogStore) EngineOption {
	return func(e *engineImpl) {
		e.dialogs = d
	}
}

// WithSupportChat sets where /print_support questions are forwarded
func WithSupportChat(chatID string) EngineOption {
	return func(e *engineImpl) {
		e.supportChat = chatID
	}
}

// WithMention sets how a user is referenced in forwarded support questions
func WithMention(fn func(userID string) string) EngineOption {
	return func(e *engineImpl) {
		e.mention = fn
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithIDGenerator overrides how session nonces and order IDs are generated
func WithIDGenerator(newID func() string) EngineOption {
	return func(e *engineImpl) {
		e.newID = newID
	}
}

// NewEngine creates a new order engine
func NewEngine(
	sessions port.SessionStore,
	selections port.SelectionRegistry,
	directory port.ProviderDirectory,
	reviews port.ReviewBook,
	pages port.PageCounter,
	messenger port.Messenger,
	orders OrderSender,
	logger Logger,
	opts ...EngineOption,
) OrderEngine {
	e := &engineImpl{
		sessions:   sessions,
		selections: selections,
		directory:  directory,
		reviews:    reviews,
		pages:      pages,
		messenger:  messenger,
		orders:     orders,
		logger:     logger,
		dialogs:    session.NewDialogStore(),
		mention:    func(userID string) string { return userID },
		now:        time.Now,
		newID:      uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// HandleEvent routes an inbound event by kind
func (e *engineImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	if evt == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if evt.SenderID == "" {
		return fmt.Errorf("event %s has no sender", evt.ID)
	}

	var err error
	switch evt.Type {
	case event.TypeDocumentReceived:
		err = e.handleDocument(ctx, evt)
	case event.TypeTextReceived:
		err = e.handleText(ctx, evt)
	case event.TypeCommandReceived:
		err = e.handleCommand(ctx, evt)
	case event.TypeButtonPressed:
		err = e.handleButton(ctx, evt)
	case event.TypeUnsupportedMedia:
		err = userError("Only PDF documents can be printed. Send the file as a document.", nil)
	default:
		return nil
	}

	if err == nil {
		return nil
	}
	return e.report(ctx, evt, err)
}

// report answers a failed step according to its class
func (e *engineImpl) report(ctx context.Context, evt *event.Event, err error) error {
	f, ok := AsFailure(err)
	if !ok {
		var te *domainwf.TransitionError
		if !errors.As(err, &te) {
			e.logger.Error("Unclassified order failure",
				"sender_id", evt.SenderID,
				"event_type", evt.Type,
				"error", err,
			)
			e.notify(ctx, evt.SenderID, port.Text("Something went wrong. Please try again."))
			return err
		}
		f = userError(phaseHint(te.From), err)
	}

	switch f.Kind {
	case Routing:
		e.logger.Warn("Provider reply could not be routed",
			"sender_id", evt.SenderID,
			"event_id", evt.ID,
			"error", f.Err,
		)
		return nil
	case Precondition:
		e.logger.Error("Order aborted",
			"requester_id", evt.SenderID,
			"error", f.Err,
		)
		e.clear(ctx, evt.SenderID, "aborted")
	case Collaborator:
		e.logger.Error("Collaborator call failed",
			"sender_id", evt.SenderID,
			"event_type", evt.Type,
			"error", f.Err,
		)
	default:
		e.logger.Info("Input rejected",
			"sender_id", evt.SenderID,
			"event_type", evt.Type,
			"reason", f.Error(),
		)
	}

	e.notify(ctx, evt.SenderID, port.Text(f.UserMessage))
	return nil
}

// Reset unconditionally clears the requester's session and selection
func (e *engineImpl) Reset(ctx context.Context, requesterID string) {
	e.clear(ctx, requesterID, "reset")
}

// ExpireIdle clears editable sessions whose last activity is before cutoff
func (e *engineImpl) ExpireIdle(ctx context.Context, cutoff time.Time) []string {
	var expired []string
	for _, s := range e.sessions.Snapshot(ctx) {
		if !isIdle(s, cutoff) {
			continue
		}

		removed := false
		_, err := e.sessions.Update(ctx, s.RequesterID, func(cur *entity.Session) (*entity.Session, error) {
			if !isIdle(cur, cutoff) {
				return cur, nil
			}
			removed = true
			return nil, nil
		})
		if err != nil || !removed {
			continue
		}

		e.selections.Forget(s.RequesterID)
		e.publish(ctx, event.TypeSessionCleared, s.RequesterID, map[string]interface{}{
			event.KeyReason: "expired",
		}, s.Nonce)
		e.notify(ctx, s.RequesterID, port.Text("Your unfinished order was cleared after a period of inactivity. Start again with /print."))
		expired = append(expired, s.RequesterID)
	}

	if len(expired) > 0 {
		e.logger.Info("Expired idle sessions", "count", len(expired))
	}
	if dropped := e.dialogs.Expire(ctx, cutoff); len(dropped) > 0 {
		e.logger.Info("Expired idle dialogs", "count", len(dropped))
	}
	return expired
}

func isIdle(s *entity.Session, cutoff time.Time) bool {
	return s != nil && s.Phase.IsPreDispatch() && s.UpdatedAt.Before(cutoff)
}

func (e *engineImpl) handleCommand(ctx context.Context, evt *event.Event) error {
	sender := evt.SenderID
	cmd := strings.ToLower(strings.TrimPrefix(evt.GetPayloadString(event.KeyCommand), "/"))

	// Any command abandons a pending dialog
	e.dialogs.Clear(ctx, sender)

	switch cmd {
	case CommandStart:
		return e.send(ctx, sender, port.OutboundMessage{Text: menuText, Buttons: menuButtons()})
	case CommandHelp:
		return e.send(ctx, sender, port.Text(helpText))
	case CommandPrint:
		return e.startDiscovery(ctx, sender)
	case CommandReset, CommandCancel:
		e.Reset(ctx, sender)
		return e.send(ctx, sender, port.Text("Your order was cleared. Start again with /print."))
	case CommandStatus:
		return e.showStatus(ctx, sender)
	case CommandProfile:
		return e.showOwnProfile(ctx, sender)
	case CommandRegister:
		return e.startRegistration(ctx, sender)
	case CommandSupport:
		return e.startSupport(ctx, sender)
	default:
		return userError(fmt.Sprintf("Unknown command /%s. See /help.", cmd), nil)
	}
}

func (e *engineImpl) handleButton(ctx context.Context, evt *event.Event) error {
	sender := evt.SenderID
	c := port.Control{
		Action: evt.GetPayloadString(event.KeyAction),
		Args:   evt.GetPayloadStringMap(event.KeyArgs),
	}

	if dispatch.IsResponse(c) {
		return e.handleProviderResponse(ctx, sender, c)
	}

	switch c.Action {
	case ActionDiscover:
		return e.handleDiscover(ctx, sender, c)
	case ActionCapability:
		return e.handleCapability(ctx, sender, c)
	case ActionViewProfile:
		return e.handleViewProfile(ctx, sender, c)
	case ActionSelectProvider:
		return e.selectProvider(ctx, sender, c)
	case ActionMode:
		return e.handleMode(ctx, sender, c)
	case ActionBulk:
		return e.handleBulk(ctx, sender, c)
	case ActionPayment:
		return e.handlePayment(ctx, sender, c)
	case ActionRate:
		return e.handleRate(ctx, sender, c)
	case ActionToggleActive:
		return e.toggleActive(ctx, sender, c)
	case ActionRegister:
		return e.startRegistration(ctx, sender)
	case ActionEditProfile:
		return e.startEdit(ctx, sender, c)
	case ActionSetCapability:
		return e.setCapability(ctx, sender, c)
	case ActionSupportReply:
		return e.startSupportReply(ctx, sender, c)
	default:
		return userError("This button is no longer supported.", fmt.Errorf("unknown action %q", c.Action))
	}
}

func (e *engineImpl) handleText(ctx context.Context, evt *event.Event) error {
	requesterID := evt.SenderID
	text := evt.GetPayloadString(event.KeyText)

	if d, ok := e.dialogs.Get(ctx, requesterID); ok {
		return e.answerDialog(ctx, d, text)
	}

	s, ok := e.sessions.Get(ctx, requesterID)
	if !ok {
		return userError(phaseHint(domainwf.StateIdle), nil)
	}

	switch s.Phase {
	case domainwf.StateCollectingRequirements:
		return e.submitRequirements(ctx, requesterID, text)
	case domainwf.StateCashAmount:
		return e.submitCash(ctx, requesterID, text)
	case domainwf.StateRatingPending:
		return e.submitComment(ctx, requesterID, text)
	default:
		return userError(phaseHint(s.Phase), nil)
	}
}

// fire applies triggers in order. The session's phase changes only if all succeed.
func (e *engineImpl) fire(ctx context.Context, s *entity.Session, triggers ...domainwf.Trigger) error {
	m := BuildOrderStateMachine(s.Phase, Guards{
		AllModesSet: func(context.Context) bool { return s.AllModesSet() },
		HasRating:   func(context.Context) bool { return entity.ValidateRating(s.Rating) == nil },
	})
	for _, t := range triggers {
		if err := m.Fire(ctx, t); err != nil {
			return err
		}
	}
	s.Phase = m.State()
	return nil
}

// checkControl rejects buttons that do not belong to the live session
func checkControl(s *entity.Session, c port.Control) error {
	if s == nil {
		return userError("This order is no longer active. Start a new one with /print.", ErrOutdatedControl)
	}
	if c.Arg(ArgSession) != s.Nonce {
		return userError("This button belongs to an earlier order. "+phaseHint(s.Phase), ErrOutdatedControl)
	}
	return nil
}

// provider loads the session's provider; a vanished provider aborts the order
func (e *engineImpl) provider(ctx context.Context, id string) (*entity.Provider, error) {
	p, err := e.directory.GetProvider(ctx, id)
	if err != nil {
		return nil, collaboratorError("Could not reach the provider directory. Please try again.", err)
	}
	if p == nil {
		return nil, preconditionError("The provider of this order is no longer registered. The order was cancelled, start again with /print.",
			fmt.Errorf("provider %s not found", id))
	}
	return p, nil
}

// send delivers a message as part of a step; failure leaves the step undone
func (e *engineImpl) send(ctx context.Context, to string, msg port.OutboundMessage) error {
	if err := e.messenger.Send(ctx, to, msg); err != nil {
		return collaboratorError("Message delivery failed. Please try again.", err)
	}
	return nil
}

// notify delivers a message after a step is committed; failure is only logged
func (e *engineImpl) notify(ctx context.Context, to string, msg port.OutboundMessage) {
	if err := e.messenger.Send(ctx, to, msg); err != nil {
		e.logger.Error("Failed to deliver message",
			"recipient_id", to,
			"error", err,
		)
	}
}

func (e *engineImpl) clear(ctx context.Context, requesterID, reason string) {
	s, had := e.sessions.Get(ctx, requesterID)
	e.sessions.Clear(ctx, requesterID)
	e.selections.Forget(requesterID)

	correlation := requesterID
	if had {
		correlation = s.Nonce
	}
	e.publish(ctx, event.TypeSessionCleared, requesterID, map[string]interface{}{
		event.KeyReason: reason,
	}, correlation)
}

func (e *engineImpl) publish(ctx context.Context, t event.Type, requesterID string, payload map[string]interface{}, correlationID string) {
	if e.dispatcher == nil {
		return
	}
	evt := event.NewEventWithCorrelation(t, requesterID, payload, correlationID)
	if err := e.dispatcher.Dispatch(ctx, evt); err != nil {
		e.logger.Error("Failed to publish lifecycle event",
			"event_type", t,
			"requester_id", requesterID,
			"error", err,
		)
	}
}
