package workflow

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/dorm-print/internal/application/dispatch"
	"github.com/garyjia/dorm-print/internal/application/dispatcher"
	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/application/session"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/event"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
	domainwf "github.com/garyjia/dorm-print/internal/domain/workflow"
)

const (
	requester   = "ou_req"
	provider    = "ou_prov"
	supportChat = "oc_support"
)

// Mock implementations

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fakeDirectory struct {
	mu          sync.Mutex
	providers   map[string]*entity.Provider
	stats       map[string]*entity.ProviderStats
	recordCalls int
	recordErr   error
	lastFilter  entity.Capability
	profileErr  error
}

func newFakeDirectory(providers ...*entity.Provider) *fakeDirectory {
	d := &fakeDirectory{
		providers: make(map[string]*entity.Provider),
		stats:     make(map[string]*entity.ProviderStats),
	}
	for _, p := range providers {
		d.providers[p.ID] = p
	}
	return d
}

func (d *fakeDirectory) ListActiveProviders(ctx context.Context, capability entity.Capability) ([]entity.ProviderSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastFilter = capability
	var out []entity.ProviderSummary
	for _, p := range d.providers {
		if p.Active && p.HasCapability(capability) {
			out = append(out, p.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *fakeDirectory) GetProvider(ctx context.Context, id string) (*entity.Provider, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.providers[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (d *fakeDirectory) SetProviderActive(ctx context.Context, id string, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.providers[id]; ok {
		p.Active = active
	}
	return nil
}

func (d *fakeDirectory) RecordStats(ctx context.Context, id string, pages int, amount decimal.Decimal) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recordErr != nil {
		return d.recordErr
	}
	d.recordCalls++
	st, ok := d.stats[id]
	if !ok {
		st = &entity.ProviderStats{ProviderID: id}
		d.stats[id] = st
	}
	st.Record(pages, amount, time.Now())
	return nil
}

func (d *fakeDirectory) GetStats(ctx context.Context, id string) (*entity.ProviderStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.stats[id]; ok {
		return st, nil
	}
	return &entity.ProviderStats{ProviderID: id}, nil
}

func (d *fakeDirectory) RegisterProvider(ctx context.Context, in port.ProviderInput) (*entity.Provider, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.profileErr != nil {
		return nil, d.profileErr
	}
	p := &entity.Provider{
		ID:          in.ID,
		DisplayName: in.DisplayName,
		Room:        in.Room,
		Rates:       in.Rates,
		Active:      in.Active,
		CardRef:     in.CardRef,
		Description: in.Description,
		Capability:  in.Capability,
	}
	d.providers[p.ID] = p
	c := *p
	return &c, nil
}

func (d *fakeDirectory) UpdateProvider(ctx context.Context, id string, patch port.ProviderPatch) (*entity.Provider, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.profileErr != nil {
		return nil, d.profileErr
	}
	p, ok := d.providers[id]
	if !ok {
		return nil, errors.New("provider not found")
	}
	if patch.Room != nil {
		p.Room = *patch.Room
	}
	if patch.Monochrome != nil {
		p.Rates.Monochrome = *patch.Monochrome
	}
	if patch.Color != nil {
		p.Rates.Color = *patch.Color
	}
	if patch.CardRef != nil {
		p.CardRef = *patch.CardRef
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Capability != nil {
		p.Capability = *patch.Capability
	}
	c := *p
	return &c, nil
}

type fakeReviews struct {
	mu      sync.Mutex
	reviews []*entity.Review
	err     error
}

func (r *fakeReviews) SubmitReview(ctx context.Context, providerID, raterID string, rating int, comment string) (*entity.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	review := &entity.Review{ID: int64(len(r.reviews) + 1), ProviderID: providerID, RaterID: raterID, Rating: rating, Comment: comment}
	r.reviews = append(r.reviews, review)
	return review, nil
}

func (r *fakeReviews) GetAverageRating(ctx context.Context, providerID string) (*entity.RatingSummary, error) {
	return &entity.RatingSummary{ProviderID: providerID}, nil
}

func (r *fakeReviews) GetReviews(ctx context.Context, providerID string, page int) ([]*entity.Review, error) {
	return nil, nil
}

type fakePages struct {
	pages map[string]int
	err   error
}

func (p *fakePages) CountPages(ctx context.Context, file entity.FileHandle) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.pages[file.FileKey], nil
}

type outbound struct {
	to  string
	msg port.OutboundMessage
}

type recordingMessenger struct {
	mu       sync.Mutex
	sent     []outbound
	batches  map[string]int
	failSend bool
	failDocs bool
}

func (m *recordingMessenger) Send(ctx context.Context, recipientID string, msg port.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend {
		return errors.New("transport down")
	}
	m.sent = append(m.sent, outbound{to: recipientID, msg: msg})
	return nil
}

func (m *recordingMessenger) SendDocuments(ctx context.Context, recipientID string, docs []port.OutboundDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDocs {
		return errors.New("upload failed")
	}
	if m.batches == nil {
		m.batches = make(map[string]int)
	}
	m.batches[recipientID]++
	return nil
}

func (m *recordingMessenger) last(to string) port.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].to == to {
			return m.sent[i].msg
		}
	}
	return port.OutboundMessage{}
}

// findControl returns the most recent button with the given action sent to a recipient
func (m *recordingMessenger) findControl(to, action string) (port.Control, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].to != to {
			continue
		}
		for _, row := range m.sent[i].msg.Buttons {
			for _, b := range row {
				if b.Control.Action == action {
					return b.Control, true
				}
			}
		}
	}
	return port.Control{}, false
}

type harness struct {
	t         *testing.T
	ctx       context.Context
	engine    OrderEngine
	store     *session.MemoryStore
	selection *session.SelectionRegistry
	directory *fakeDirectory
	reviews   *fakeReviews
	pages     *fakePages
	messenger *recordingMessenger
	events    *eventLog
}

type eventLog struct {
	mu    sync.Mutex
	types []event.Type
}

func (l *eventLog) record(ctx context.Context, evt *event.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types = append(l.types, evt.Type)
	return nil
}

func (l *eventLog) count(t event.Type) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, got := range l.types {
		if got == t {
			n++
		}
	}
	return n
}

func testProvider(mono, color string) *entity.Provider {
	return &entity.Provider{
		ID:          provider,
		DisplayName: "Anna",
		Room:        "412",
		Rates:       pricing.RateCard{Monochrome: decimal.RequireFromString(mono), Color: decimal.RequireFromString(color)},
		Active:      true,
		CardRef:     "2200 0000 1111",
		Capability:  entity.CapabilityLaserColor,
	}
}

func newHarness(t *testing.T, p *entity.Provider, opts ...EngineOption) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		ctx:       context.Background(),
		store:     session.NewMemoryStore(),
		selection: session.NewSelectionRegistry(),
		directory: newFakeDirectory(p),
		reviews:   &fakeReviews{},
		pages:     &fakePages{pages: make(map[string]int)},
		messenger: &recordingMessenger{},
		events:    &eventLog{},
	}

	d := dispatcher.NewDispatcher()
	for _, typ := range []event.Type{
		event.TypeOrderDispatched, event.TypeOrderCompleted, event.TypeOrderRejected,
		event.TypeReviewSubmitted, event.TypeSessionCleared, event.TypeProviderRegistered,
	} {
		d.Subscribe(typ, h.events.record)
	}

	h.engine = NewEngine(
		h.store, h.selection, h.directory, h.reviews, h.pages, h.messenger,
		dispatch.NewProtocol(h.messenger, nopLogger{}),
		nopLogger{},
		append([]EngineOption{
			WithDispatcher(d),
			WithProfiles(h.directory),
			WithSupportChat(supportChat),
		}, opts...)...,
	)
	return h
}

func (h *harness) handle(evt *event.Event) {
	h.t.Helper()
	require.NoError(h.t, h.engine.HandleEvent(h.ctx, evt))
}

func (h *harness) press(from string, c port.Control) {
	h.t.Helper()
	h.handle(event.NewEvent(event.TypeButtonPressed, from, map[string]interface{}{
		event.KeyAction: c.Action,
		event.KeyArgs:   c.Args,
	}))
}

// pressInSession presses a requester control carrying the live session nonce
func (h *harness) pressInSession(action string, args ...string) {
	h.t.Helper()
	args = append(args, ArgSession, h.session().Nonce)
	h.press(requester, control(action, args...))
}

func (h *harness) say(from, text string) {
	h.t.Helper()
	h.handle(event.NewEvent(event.TypeTextReceived, from, map[string]interface{}{event.KeyText: text}))
}

func (h *harness) command(from, cmd string) {
	h.t.Helper()
	h.handle(event.NewEvent(event.TypeCommandReceived, from, map[string]interface{}{event.KeyCommand: cmd}))
}

func (h *harness) upload(name string, pages int) {
	h.t.Helper()
	key := "fk_" + name
	h.pages.pages[key] = pages
	h.handle(event.NewEvent(event.TypeDocumentReceived, requester, map[string]interface{}{
		event.KeyFileKey:   key,
		event.KeyMessageID: "om_" + name,
		event.KeyFileName:  name,
	}))
}

func (h *harness) selectProvider() {
	h.t.Helper()
	h.press(requester, control(ActionSelectProvider, ArgProvider, provider))
}

func (h *harness) session() *entity.Session {
	h.t.Helper()
	s, ok := h.store.Get(h.ctx, requester)
	require.True(h.t, ok, "expected a live session")
	return s
}

func (h *harness) phase() domainwf.State {
	s, ok := h.store.Get(h.ctx, requester)
	if !ok {
		return domainwf.StateIdle
	}
	return s.Phase
}

// checkout drives a priced session through requirements and card payment
func (h *harness) checkoutByCard() {
	h.t.Helper()
	h.say(requester, "none")
	h.pressInSession(ActionPayment, ArgMethod, string(entity.PaymentCard))
	require.Equal(h.t, domainwf.StateDispatched, h.phase())
}

func (h *harness) providerPress(action string) {
	h.t.Helper()
	c, ok := h.messenger.findControl(provider, action)
	require.True(h.t, ok, "provider has no %s button", action)
	h.press(provider, c)
}

func TestEngine_ColorScenarioWithCash(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))

	h.selectProvider()
	assert.Equal(t, domainwf.StateProviderSelected, h.phase())

	h.upload("thesis.pdf", 4)
	assert.Equal(t, domainwf.StateChoosingPrintMode, h.phase())
	_, ok := h.messenger.findControl(requester, ActionMode)
	assert.True(t, ok, "single document gets a per-document prompt")

	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
	s := h.session()
	assert.Equal(t, "2.00", pricing.Format(*s.Documents[0].LineCost))
	assert.Equal(t, 4, s.Totals.Pages)
	assert.Equal(t, "2.00", pricing.Format(s.Totals.Price))
	assert.Equal(t, domainwf.StateCollectingRequirements, s.Phase)

	h.say(requester, "double-sided please")
	assert.Equal(t, domainwf.StateChoosingPayment, h.phase())
	assert.Equal(t, "double-sided please", h.session().Requirements)

	h.pressInSession(ActionPayment, ArgMethod, string(entity.PaymentCash))
	assert.Equal(t, domainwf.StateCashAmount, h.phase())

	h.say(requester, "1.5")
	assert.Equal(t, domainwf.StateCashAmount, h.phase(), "insufficient cash keeps the state")
	assert.Contains(t, h.messenger.last(requester).Text, "less than the total")

	h.say(requester, "five")
	assert.Equal(t, domainwf.StateCashAmount, h.phase(), "malformed amount keeps the state")

	h.say(requester, "5")
	s = h.session()
	assert.Equal(t, domainwf.StateDispatched, s.Phase)
	assert.Equal(t, "3.00", pricing.Format(*s.Payment.Change))
	assert.Contains(t, h.messenger.last(requester).Text, "change is 3.00")

	summary, ok := h.messenger.findControl(provider, dispatch.ActionAccept)
	require.True(t, ok)
	token, err := dispatch.DecodeToken(summary.Arg(dispatch.ArgToken))
	require.NoError(t, err)
	assert.Equal(t, requester, token.RequesterID)
	assert.Equal(t, s.OrderID, token.OrderID)
	assert.Equal(t, 1, h.messenger.batches[provider])
	assert.Equal(t, 1, h.events.count(event.TypeOrderDispatched))
}

func TestEngine_CashChange(t *testing.T) {
	tests := []struct {
		tendered string
		change   string
	}{
		{"2", "0.00"},
		{"2.00", "0.00"},
		{"10,50", "8.50"},
	}

	for _, tt := range tests {
		t.Run(tt.tendered, func(t *testing.T) {
			h := newHarness(t, testProvider("0.25", "0.50"))
			h.selectProvider()
			h.upload("a.pdf", 4)
			h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
			h.say(requester, "none")
			h.pressInSession(ActionPayment, ArgMethod, string(entity.PaymentCash))

			h.say(requester, tt.tendered)

			s := h.session()
			require.Equal(t, domainwf.StateDispatched, s.Phase)
			assert.Equal(t, tt.change, pricing.Format(*s.Payment.Change))
		})
	}
}

func TestEngine_BulkMonochromeScenario(t *testing.T) {
	h := newHarness(t, testProvider("0.20", "0.40"))
	h.selectProvider()

	h.upload("a.pdf", 2)
	h.upload("b.pdf", 3)
	modePrompts := len(h.messenger.sent)
	h.upload("c.pdf", 5)

	third := h.messenger.last(requester)
	require.Len(t, h.messenger.sent, modePrompts+1)
	require.NotEmpty(t, third.Buttons)
	for _, row := range third.Buttons {
		for _, b := range row {
			assert.Equal(t, ActionBulk, b.Control.Action, "third upload shows only the bulk choice")
		}
	}
	assert.True(t, h.session().BulkPending)

	h.pressInSession(ActionBulk, ArgMode, string(pricing.ModeMonochrome))

	s := h.session()
	for _, d := range s.Documents {
		assert.Equal(t, pricing.ModeMonochrome, d.PrintMode)
	}
	assert.Equal(t, 10, s.Totals.Pages)
	assert.Equal(t, "2.00", pricing.Format(s.Totals.Price))
	assert.Equal(t, domainwf.StateCollectingRequirements, s.Phase)
	assert.False(t, s.BulkPending)
}

func TestEngine_BulkOfferedOnlyOnce(t *testing.T) {
	h := newHarness(t, testProvider("0.20", "0.40"))
	h.selectProvider()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		h.upload(name, 1)
	}

	h.upload("d.pdf", 1)
	fourth := h.messenger.last(requester)
	assert.Empty(t, fourth.Buttons, "documents after the bulk offer are only acknowledged")

	h.pressInSession(ActionBulk, ArgMode, BulkIndividually)
	prompt := h.messenger.last(requester)
	assert.Len(t, prompt.Buttons, 4, "one row per unpriced document")
	assert.False(t, h.session().BulkPending)

	h.pressInSession(ActionBulk, ArgMode, string(pricing.ModeColor))
	assert.Contains(t, h.messenger.last(requester).Text, "already made")
	assert.False(t, h.session().AnyModeSet())

	h.upload("e.pdf", 1)
	assert.Equal(t, ActionMode, h.messenger.last(requester).Buttons[0][0].Control.Action)
}

func TestEngine_NoBulkOfferAfterModeChosen(t *testing.T) {
	h := newHarness(t, testProvider("0.20", "0.40"))
	h.selectProvider()
	h.upload("a.pdf", 1)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
	h.upload("b.pdf", 1)
	h.upload("c.pdf", 1)

	last := h.messenger.last(requester)
	require.NotEmpty(t, last.Buttons)
	assert.Equal(t, ActionMode, last.Buttons[0][0].Control.Action)
	assert.False(t, h.session().BulkOffered)
}

func TestEngine_DuplicateModePressIsNoop(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	h.upload("b.pdf", 2)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
	before := h.session()

	// Rates change between presses; a repeated press must not reprice
	h.directory.providers[provider].Rates.Color = decimal.RequireFromString("9.99")
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))

	after := h.session()
	assert.Equal(t, before.Totals.Pages, after.Totals.Pages)
	assert.True(t, before.Totals.Price.Equal(after.Totals.Price))
	assert.Equal(t, before.Phase, after.Phase)
	assert.Contains(t, h.messenger.last(requester).Text, "already set")
}

func TestEngine_ReassignModeUsesCurrentRate(t *testing.T) {
	h := newHarness(t, testProvider("0.10", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 10)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeMonochrome))
	h.say(requester, "none")
	require.Equal(t, domainwf.StateChoosingPayment, h.phase())

	h.directory.providers[provider].Rates.Color = decimal.RequireFromString("0.60")
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))

	s := h.session()
	assert.Equal(t, domainwf.StateChoosingPayment, s.Phase)
	assert.Equal(t, "6.00", pricing.Format(s.Totals.Price))
}

func TestEngine_TotalsMatchDocuments(t *testing.T) {
	h := newHarness(t, testProvider("0.13", "0.37"))
	h.selectProvider()
	modes := []pricing.Mode{pricing.ModeColor, pricing.ModeMonochrome}

	for i := 0; i < 12; i++ {
		h.upload(string(rune('a'+i))+".pdf", i%5+1)
		s := h.session()
		if s.BulkPending {
			h.pressInSession(ActionBulk, ArgMode, BulkIndividually)
		}
		for _, idx := range h.session().UnsetDocuments() {
			h.pressInSession(ActionMode, ArgDocument, strconv.Itoa(idx), ArgMode, string(modes[(i+idx)%2]))
		}

		s = h.session()
		pages := 0
		price := decimal.Zero
		for _, d := range s.Documents {
			require.NotNil(t, d.LineCost)
			pages += d.PageCount
			price = price.Add(*d.LineCost)
		}
		assert.Equal(t, pages, s.Totals.Pages)
		assert.True(t, price.Equal(s.Totals.Price), "step %d: %s != %s", i, price, s.Totals.Price)
	}
}

func TestEngine_CompletedOrderRecordsStatsOnceAndTakesOneReview(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
	h.checkoutByCard()

	h.providerPress(dispatch.ActionAccept)
	assert.Equal(t, domainwf.StateRatingPending, h.phase())
	assert.Equal(t, 1, h.directory.recordCalls)
	assert.Contains(t, h.messenger.last(requester).Text, "room 412")

	h.providerPress(dispatch.ActionAccept)
	h.providerPress(dispatch.ActionReject)
	assert.Equal(t, 1, h.directory.recordCalls, "repeated presses are absorbed")
	assert.Equal(t, domainwf.StateRatingPending, h.phase())

	st := h.directory.stats[provider]
	assert.Equal(t, int64(4), st.Pages)
	assert.Equal(t, "2.00", pricing.Format(st.Earnings))

	h.say(requester, "great service")
	assert.Empty(t, h.reviews.reviews, "comment before rating is not a review")
	assert.Equal(t, domainwf.StateRatingPending, h.phase(), "partial input holds the session")

	h.pressInSession(ActionRate, ArgStars, "5")
	assert.Equal(t, 5, h.session().Rating)
	h.say(requester, "great service")

	require.Len(t, h.reviews.reviews, 1)
	assert.Equal(t, entity.Review{ID: 1, ProviderID: provider, RaterID: requester, Rating: 5, Comment: "great service"}, *h.reviews.reviews[0])
	_, live := h.store.Get(h.ctx, requester)
	assert.False(t, live)

	h.say(requester, "one more")
	assert.Len(t, h.reviews.reviews, 1)
	assert.Equal(t, 1, h.events.count(event.TypeOrderCompleted))
	assert.Equal(t, 1, h.events.count(event.TypeReviewSubmitted))
}

func TestEngine_RejectedOrder(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeMonochrome))
	h.checkoutByCard()

	h.providerPress(dispatch.ActionReject)

	_, live := h.store.Get(h.ctx, requester)
	assert.False(t, live)
	assert.Contains(t, h.messenger.last(requester).Text, "declined")
	assert.Zero(t, h.directory.recordCalls)
	assert.Empty(t, h.reviews.reviews)
	_, selected := h.selection.Selected(requester)
	assert.False(t, selected)

	h.providerPress(dispatch.ActionAccept)
	assert.Zero(t, h.directory.recordCalls, "accept after reject is absorbed")
	assert.Equal(t, 1, h.events.count(event.TypeOrderRejected))
}

func TestEngine_StatsFailureLeavesOrderDispatched(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeMonochrome))
	h.checkoutByCard()

	h.directory.recordErr = errors.New("db locked")
	h.providerPress(dispatch.ActionAccept)
	assert.Equal(t, domainwf.StateDispatched, h.phase())
	assert.Contains(t, h.messenger.last(provider).Text, "Press the button again")

	h.directory.recordErr = nil
	h.providerPress(dispatch.ActionAccept)
	assert.Equal(t, domainwf.StateRatingPending, h.phase())
	assert.Equal(t, 1, h.directory.recordCalls)
}

func TestEngine_ForgedProviderReplyIsAbsorbed(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeMonochrome))
	h.checkoutByCard()

	c, _ := h.messenger.findControl(provider, dispatch.ActionAccept)
	sentBefore := len(h.messenger.sent)

	h.press("ou_stranger", c)
	h.press(provider, port.Control{Action: dispatch.ActionAccept, Args: map[string]string{dispatch.ArgToken: "garbage"}})

	assert.Equal(t, domainwf.StateDispatched, h.phase())
	assert.Zero(t, h.directory.recordCalls)
	assert.Len(t, h.messenger.sent, sentBefore, "routing failures are silent")
}

func TestEngine_DocumentWithoutProviderAborts(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))

	h.upload("a.pdf", 4)

	_, live := h.store.Get(h.ctx, requester)
	assert.False(t, live)
	assert.Contains(t, h.messenger.last(requester).Text, "/print")
}

func TestEngine_RejectedUploadsLeaveSessionUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		pages    int
		countErr error
		wantText string
	}{
		{"not a pdf", "essay.docx", 3, nil, "not a PDF"},
		{"zero pages", "empty.pdf", 0, nil, "no pages"},
		{"page counter down", "scan.pdf", 3, errors.New("fitz: broken"), "Could not read"},
		{"renamed non-pdf", "report.pdf", 3, entity.ErrNotPDF, "not a readable PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testProvider("0.25", "0.50"))
			h.selectProvider()
			h.upload("ok.pdf", 2)
			before := h.session()

			h.pages.err = tt.countErr
			h.upload(tt.file, tt.pages)

			after := h.session()
			assert.Len(t, after.Documents, len(before.Documents))
			assert.Equal(t, before.Phase, after.Phase)
			assert.Contains(t, h.messenger.last(requester).Text, tt.wantText)
		})
	}
}

func TestEngine_UnsupportedMedia(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.handle(event.NewEvent(event.TypeUnsupportedMedia, requester, map[string]interface{}{event.KeyMediaType: "image"}))
	assert.Contains(t, h.messenger.last(requester).Text, "Only PDF")
}

func TestEngine_OutdatedButtonIsRejected(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	old, ok := h.messenger.findControl(requester, ActionMode)
	require.True(t, ok)

	h.selectProvider()
	h.upload("b.pdf", 2)
	h.press(requester, old)

	s := h.session()
	require.Len(t, s.Documents, 1)
	assert.False(t, s.AnyModeSet())
	assert.Contains(t, h.messenger.last(requester).Text, "earlier order")
}

func TestEngine_SelectingProviderDiscardsDocuments(t *testing.T) {
	other := testProvider("1", "2")
	other.ID = "ou_other"
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.directory.providers[other.ID] = other

	h.selectProvider()
	h.upload("a.pdf", 4)
	h.press(requester, control(ActionSelectProvider, ArgProvider, other.ID))

	s := h.session()
	assert.Equal(t, other.ID, s.ProviderID)
	assert.Empty(t, s.Documents)
	assert.Equal(t, domainwf.StateProviderSelected, s.Phase)
	selected, _ := h.selection.Selected(requester)
	assert.Equal(t, other.ID, selected)
	assert.Equal(t, 1, h.events.count(event.TypeSessionCleared))
}

func TestEngine_SelectionRefusedWhileDispatched(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
	h.checkoutByCard()
	orderID := h.session().OrderID

	h.selectProvider()

	s := h.session()
	assert.Equal(t, domainwf.StateDispatched, s.Phase)
	assert.Equal(t, orderID, s.OrderID)
}

func TestEngine_SelectionRefusedWhileRatingPending(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
	h.checkoutByCard()
	h.providerPress(dispatch.ActionAccept)
	h.pressInSession(ActionRate, ArgStars, "4")

	h.selectProvider()

	s := h.session()
	assert.Equal(t, domainwf.StateRatingPending, s.Phase)
	assert.Equal(t, 4, s.Rating)
	assert.Equal(t, phaseHint(domainwf.StateRatingPending), h.messenger.last(requester).Text)

	h.say(requester, "nice")
	require.Len(t, h.reviews.reviews, 1)
	assert.Equal(t, 4, h.reviews.reviews[0].Rating)
	assert.Equal(t, "nice", h.reviews.reviews[0].Comment)
}

func TestEngine_InactiveProviderCannotBeSelected(t *testing.T) {
	p := testProvider("0.25", "0.50")
	p.Active = false
	h := newHarness(t, p)

	h.selectProvider()

	_, live := h.store.Get(h.ctx, requester)
	assert.False(t, live)
	assert.Contains(t, h.messenger.last(requester).Text, "not taking orders")
}

func TestEngine_ResetClearsAnyPhase(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
	h.checkoutByCard()

	h.command(requester, "/reset")

	_, live := h.store.Get(h.ctx, requester)
	assert.False(t, live)
	_, selected := h.selection.Selected(requester)
	assert.False(t, selected)

	h.providerPress(dispatch.ActionAccept)
	assert.Zero(t, h.directory.recordCalls, "reply to a reset order is not routed")
}

func TestEngine_SendFailureLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	before := h.session()

	h.messenger.failSend = true
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
	h.messenger.failSend = false

	after := h.session()
	assert.Equal(t, before.Phase, after.Phase)
	assert.False(t, after.AnyModeSet())
	assert.True(t, after.Totals.Price.IsZero())
}

func TestEngine_DispatchFailureKeepsPaymentStep(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
	h.say(requester, "none")

	h.messenger.failDocs = true
	h.pressInSession(ActionPayment, ArgMethod, string(entity.PaymentCard))

	s := h.session()
	assert.Equal(t, domainwf.StateChoosingPayment, s.Phase)
	assert.Empty(t, s.OrderID)
	assert.Contains(t, h.messenger.last(requester).Text, "Could not deliver")

	h.messenger.failDocs = false
	h.pressInSession(ActionPayment, ArgMethod, string(entity.PaymentCard))
	assert.Equal(t, domainwf.StateDispatched, h.phase())
}

func TestEngine_DispatchWithUnsetModeAbortsOrder(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	_, err := h.store.Update(h.ctx, requester, func(s *entity.Session) (*entity.Session, error) {
		s.Phase = domainwf.StateChoosingPayment
		return s, nil
	})
	require.NoError(t, err)

	h.pressInSession(ActionPayment, ArgMethod, string(entity.PaymentCard))

	_, live := h.store.Get(h.ctx, requester)
	assert.False(t, live, "precondition violation clears the session")
	assert.Zero(t, h.messenger.batches[provider])
	assert.Contains(t, h.messenger.last(requester).Text, "cancelled")
}

func TestEngine_ExpireIdle(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)

	expired := h.engine.ExpireIdle(h.ctx, time.Now().Add(-time.Hour))
	assert.Empty(t, expired, "recent sessions are kept")

	expired = h.engine.ExpireIdle(h.ctx, time.Now().Add(time.Hour))
	assert.Equal(t, []string{requester}, expired)
	_, live := h.store.Get(h.ctx, requester)
	assert.False(t, live)
}

func TestEngine_ExpireIdleKeepsDispatchedOrders(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	h.pressInSession(ActionMode, ArgDocument, "0", ArgMode, string(pricing.ModeColor))
	h.checkoutByCard()

	expired := h.engine.ExpireIdle(h.ctx, time.Now().Add(time.Hour))

	assert.Empty(t, expired)
	assert.Equal(t, domainwf.StateDispatched, h.phase())
}

func TestEngine_Discovery(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))

	h.command(requester, "/print")
	discover, ok := h.messenger.findControl(requester, ActionDiscover)
	require.True(t, ok)
	assert.Equal(t, FilterAny, discover.Arg(ArgFilter))

	h.press(requester, control(ActionDiscover, ArgFilter, FilterPick))
	assert.Len(t, h.messenger.last(requester).Buttons, len(entity.Capabilities))

	h.press(requester, control(ActionCapability, ArgCapability, string(entity.CapabilityLaserColor)))
	assert.Equal(t, entity.CapabilityLaserColor, h.directory.lastFilter)
	listing := h.messenger.last(requester)
	assert.Contains(t, listing.Text, "Anna")
	selectBtn, ok := h.messenger.findControl(requester, ActionSelectProvider)
	require.True(t, ok)

	h.press(requester, control(ActionCapability, ArgCapability, string(entity.CapabilityInkMono)))
	assert.Contains(t, h.messenger.last(requester).Text, "No providers")

	h.press(requester, selectBtn)
	assert.Equal(t, provider, h.session().ProviderID)
}

func TestEngine_ProviderSelfService(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))

	h.command("ou_nobody", "/status")
	assert.Equal(t, notProviderText, h.messenger.last("ou_nobody").Text)

	h.command(provider, "/status")
	toggle, ok := h.messenger.findControl(provider, ActionToggleActive)
	require.True(t, ok)
	assert.Equal(t, "false", toggle.Arg(ArgActive))

	h.press(provider, toggle)
	assert.False(t, h.directory.providers[provider].Active)

	h.command(provider, "/profile")
	assert.Contains(t, h.messenger.last(provider).Text, "No completed orders yet.")
}

func TestEngine_UnknownCommand(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.command(requester, "/dance")
	assert.Contains(t, h.messenger.last(requester).Text, "Unknown command")
}

func TestEngine_ConcurrentPressesSerialize(t *testing.T) {
	h := newHarness(t, testProvider("0.25", "0.50"))
	h.selectProvider()
	h.upload("a.pdf", 4)
	nonce := h.session().Nonce

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mode := pricing.ModeMonochrome
			if i%2 == 0 {
				mode = pricing.ModeColor
			}
			_ = h.engine.HandleEvent(h.ctx, event.NewEvent(event.TypeButtonPressed, requester, map[string]interface{}{
				event.KeyAction: ActionMode,
				event.KeyArgs:   map[string]string{ArgSession: nonce, ArgDocument: "0", ArgMode: string(mode)},
			}))
		}(i)
	}
	wg.Wait()

	s := h.session()
	require.True(t, s.AllModesSet())
	assert.True(t, s.Totals.Price.Equal(*s.Documents[0].LineCost))
}

func TestFailure(t *testing.T) {
	inner := errors.New("disk full")
	err := collaboratorError("try again", inner)

	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, Collaborator, f.Kind)
	assert.ErrorIs(t, err, inner)
	assert.True(t, strings.HasPrefix(f.Error(), "collaborator"))

	_, ok = AsFailure(inner)
	assert.False(t, ok)
}
