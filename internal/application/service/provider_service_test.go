package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
)

// Mock repositories

type mockProviderRepo struct {
	providers     map[string]*entity.Provider
	upsertFunc    func(ctx context.Context, p *entity.Provider) error
	listErr       error
	setActiveFunc func(ctx context.Context, id string, active bool) (bool, error)
}

func newMockProviderRepo(providers ...*entity.Provider) *mockProviderRepo {
	m := &mockProviderRepo{providers: make(map[string]*entity.Provider)}
	for _, p := range providers {
		m.providers[p.ID] = p
	}
	return m
}

func (m *mockProviderRepo) Upsert(ctx context.Context, p *entity.Provider) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, p)
	}
	c := *p
	m.providers[p.ID] = &c
	return nil
}

func (m *mockProviderRepo) GetByID(ctx context.Context, id string) (*entity.Provider, error) {
	p, ok := m.providers[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (m *mockProviderRepo) ListActive(ctx context.Context) ([]*entity.Provider, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*entity.Provider
	for _, id := range []string{"ou_a", "ou_b", "ou_c"} {
		if p, ok := m.providers[id]; ok && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProviderRepo) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	if m.setActiveFunc != nil {
		return m.setActiveFunc(ctx, id, active)
	}
	p, ok := m.providers[id]
	if !ok {
		return false, nil
	}
	p.Active = active
	return true, nil
}

type mockStatsRepo struct {
	stats   map[string]*entity.ProviderStats
	saveErr error
}

func (m *mockStatsRepo) Get(ctx context.Context, providerID string) (*entity.ProviderStats, error) {
	if st, ok := m.stats[providerID]; ok {
		c := *st
		return &c, nil
	}
	return &entity.ProviderStats{ProviderID: providerID, Earnings: decimal.Zero}, nil
}

func (m *mockStatsRepo) Save(ctx context.Context, stats *entity.ProviderStats) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stats[stats.ProviderID] = stats
	return nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockLogger struct{}

func (mockLogger) Info(string, ...interface{})  {}
func (mockLogger) Error(string, ...interface{}) {}

func provider(id string, capability entity.Capability, active bool) *entity.Provider {
	return &entity.Provider{
		ID:          id,
		DisplayName: "Provider " + id,
		Room:        "101",
		Rates:       pricing.RateCard{Monochrome: decimal.RequireFromString("0.10"), Color: decimal.RequireFromString("0.30")},
		Active:      active,
		Capability:  capability,
	}
}

func TestProviderService_ListActiveProviders(t *testing.T) {
	repo := newMockProviderRepo(
		provider("ou_a", entity.CapabilityLaserMonoScan, true),
		provider("ou_b", entity.CapabilityInkColor, true),
		provider("ou_c", entity.CapabilityLaserMono, false),
	)
	svc := NewProviderService(repo, &mockStatsRepo{}, &mockTxManager{}, mockLogger{})

	tests := []struct {
		name       string
		capability entity.Capability
		want       []string
	}{
		{"any printer", "", []string{"ou_a", "ou_b"}},
		{"tag contained in a scanner tag", entity.CapabilityLaserMono, []string{"ou_a"}},
		{"exact tag", entity.CapabilityInkColor, []string{"ou_b"}},
		{"no match", entity.CapabilityInkMonoScan, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListActiveProviders(context.Background(), tt.capability)
			require.NoError(t, err)

			var ids []string
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestProviderService_ListActiveProvidersError(t *testing.T) {
	repo := newMockProviderRepo()
	repo.listErr = errors.New("db closed")
	svc := NewProviderService(repo, &mockStatsRepo{}, &mockTxManager{}, mockLogger{})

	_, err := svc.ListActiveProviders(context.Background(), "")
	assert.ErrorIs(t, err, repo.listErr)
}

func TestProviderService_SetProviderActive(t *testing.T) {
	repo := newMockProviderRepo(provider("ou_a", entity.CapabilityLaserMono, true))
	svc := NewProviderService(repo, &mockStatsRepo{}, &mockTxManager{}, mockLogger{})
	ctx := context.Background()

	require.NoError(t, svc.SetProviderActive(ctx, "ou_a", false))
	assert.False(t, repo.providers["ou_a"].Active)

	err := svc.SetProviderActive(ctx, "ou_missing", true)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestProviderService_RecordStats(t *testing.T) {
	stats := &mockStatsRepo{stats: make(map[string]*entity.ProviderStats)}
	tx := &mockTxManager{}
	svc := NewProviderService(newMockProviderRepo(), stats, tx, mockLogger{})
	ctx := context.Background()

	require.NoError(t, svc.RecordStats(ctx, "ou_a", 4, decimal.RequireFromString("2.00")))
	require.NoError(t, svc.RecordStats(ctx, "ou_a", 10, decimal.RequireFromString("0.10")))

	got, err := svc.GetStats(ctx, "ou_a")
	require.NoError(t, err)
	assert.Equal(t, int64(14), got.Pages)
	assert.Equal(t, int64(2), got.Orders)
	assert.Equal(t, "2.10", pricing.Format(got.Earnings))
	assert.NotNil(t, got.FirstOrderAt)
	assert.Equal(t, 2, tx.calls)
}

func TestProviderService_RecordStatsSaveFailure(t *testing.T) {
	stats := &mockStatsRepo{stats: make(map[string]*entity.ProviderStats), saveErr: errors.New("disk full")}
	svc := NewProviderService(newMockProviderRepo(), stats, &mockTxManager{}, mockLogger{})

	err := svc.RecordStats(context.Background(), "ou_a", 4, decimal.RequireFromString("2.00"))
	assert.ErrorIs(t, err, stats.saveErr)
	assert.Empty(t, stats.stats)
}

func TestProviderService_RegisterProvider(t *testing.T) {
	repo := newMockProviderRepo()
	svc := NewProviderService(repo, &mockStatsRepo{}, &mockTxManager{}, mockLogger{}).(*providerServiceImpl)
	first := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }
	ctx := context.Background()

	input := port.ProviderInput{
		ID:          " ou_a ",
		DisplayName: "Anna",
		Room:        "412",
		Rates:       pricing.RateCard{Monochrome: decimal.RequireFromString("0.25"), Color: decimal.RequireFromString("0.50")},
		Active:      true,
		Capability:  entity.CapabilityLaserColor,
	}
	p, err := svc.RegisterProvider(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "ou_a", p.ID)
	assert.Equal(t, first, p.RegisteredAt)

	svc.now = func() time.Time { return first.Add(time.Hour) }
	input.Room = "413"
	p, err = svc.RegisterProvider(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first, p.RegisteredAt, "re-registration keeps the original time")
	assert.Equal(t, "413", repo.providers["ou_a"].Room)
}

func TestProviderService_RegisterProviderValidation(t *testing.T) {
	valid := func() port.ProviderInput {
		return port.ProviderInput{
			ID:          "ou_a",
			DisplayName: "Anna",
			Room:        "412",
			Rates:       pricing.RateCard{Monochrome: decimal.RequireFromString("0.25"), Color: decimal.RequireFromString("0.50")},
			Capability:  entity.CapabilityLaserColor,
		}
	}

	tests := []struct {
		name   string
		mutate func(*port.ProviderInput)
	}{
		{"missing id", func(in *port.ProviderInput) { in.ID = "" }},
		{"missing name", func(in *port.ProviderInput) { in.DisplayName = "  " }},
		{"missing room", func(in *port.ProviderInput) { in.Room = "" }},
		{"negative rate", func(in *port.ProviderInput) { in.Rates.Color = decimal.RequireFromString("-1") }},
		{"unknown capability", func(in *port.ProviderInput) { in.Capability = "plotter" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockProviderRepo()
			svc := NewProviderService(repo, &mockStatsRepo{}, &mockTxManager{}, mockLogger{})
			in := valid()
			tt.mutate(&in)

			_, err := svc.RegisterProvider(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidProvider)
			assert.Empty(t, repo.providers)
		})
	}
}

func TestProviderService_UpdateProvider(t *testing.T) {
	repo := newMockProviderRepo(provider("ou_a", entity.CapabilityLaserMono, true))
	svc := NewProviderService(repo, &mockStatsRepo{}, &mockTxManager{}, mockLogger{})
	ctx := context.Background()

	color := decimal.RequireFromString("0.45")
	description := "Fast, near the stairs"
	p, err := svc.UpdateProvider(ctx, "ou_a", port.ProviderPatch{Color: &color, Description: &description})
	require.NoError(t, err)
	assert.Equal(t, "0.45", pricing.Format(p.Rates.Color))
	assert.Equal(t, "0.10", pricing.Format(p.Rates.Monochrome))
	assert.Equal(t, description, repo.providers["ou_a"].Description)

	_, err = svc.UpdateProvider(ctx, "ou_missing", port.ProviderPatch{})
	assert.ErrorIs(t, err, ErrProviderNotFound)

	bad := entity.Capability("plotter")
	_, err = svc.UpdateProvider(ctx, "ou_a", port.ProviderPatch{Capability: &bad})
	assert.ErrorIs(t, err, ErrInvalidProvider)
	assert.Equal(t, entity.CapabilityLaserMono, repo.providers["ou_a"].Capability)
}
