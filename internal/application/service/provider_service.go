package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
	"github.com/garyjia/dorm-print/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ProviderService manages provider profiles and statistics.
// It serves the order workflow as its provider directory.
type ProviderService interface {
	port.ProviderDirectory

	// RegisterProvider creates or replaces a profile; UpdateProvider applies
	// a partial change to an existing one
	port.ProviderProfiles
}

type providerServiceImpl struct {
	providerRepo port.ProviderRepository
	statsRepo    port.StatsRepository
	txManager    port.TransactionManager
	logger       Logger
	now          func() time.Time
}

// NewProviderService creates a new ProviderService
func NewProviderService(
	providerRepo port.ProviderRepository,
	statsRepo port.StatsRepository,
	txManager port.TransactionManager,
	logger Logger,
) ProviderService {
	return &providerServiceImpl{
		providerRepo: providerRepo,
		statsRepo:    statsRepo,
		txManager:    txManager,
		logger:       logger,
		now:          time.Now,
	}
}

// ListActiveProviders returns active providers whose capability contains the
// requested tag. An empty tag matches every provider.
func (s *providerServiceImpl) ListActiveProviders(ctx context.Context, capability entity.Capability) ([]entity.ProviderSummary, error) {
	providers, err := s.providerRepo.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list active providers", "error", err)
		return nil, fmt.Errorf("list active providers: %w", err)
	}

	summaries := make([]entity.ProviderSummary, 0, len(providers))
	for _, p := range providers {
		if p.HasCapability(capability) {
			summaries = append(summaries, p.Summary())
		}
	}
	return summaries, nil
}

// GetProvider returns nil, nil for an unknown provider
func (s *providerServiceImpl) GetProvider(ctx context.Context, id string) (*entity.Provider, error) {
	p, err := s.providerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get provider %s: %w", id, err)
	}
	return p, nil
}

// SetProviderActive toggles availability. Orders already dispatched are unaffected.
func (s *providerServiceImpl) SetProviderActive(ctx context.Context, id string, active bool) error {
	found, err := s.providerRepo.SetActive(ctx, id, active)
	if err != nil {
		s.logger.Error("Failed to set provider availability",
			"provider_id", id,
			"active", active,
			"error", err)
		return fmt.Errorf("set provider active: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}

	s.logger.Info("Provider availability changed", "provider_id", id, "active", active)
	return nil
}

// RecordStats adds one completed order to the provider's totals atomically
func (s *providerServiceImpl) RecordStats(ctx context.Context, id string, pages int, amount decimal.Decimal) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		stats, err := s.statsRepo.Get(txCtx, id)
		if err != nil {
			return fmt.Errorf("load stats: %w", err)
		}
		stats.Record(pages, amount, s.now())
		if err := s.statsRepo.Save(txCtx, stats); err != nil {
			return fmt.Errorf("save stats: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record provider stats",
			"provider_id", id,
			"pages", pages,
			"amount", pricing.Format(amount),
			"error", err)
		return err
	}

	s.logger.Info("Provider stats recorded",
		"provider_id", id,
		"pages", pages,
		"amount", pricing.Format(amount))
	return nil
}

// GetStats returns zero stats for a provider without completed orders
func (s *providerServiceImpl) GetStats(ctx context.Context, id string) (*entity.ProviderStats, error) {
	stats, err := s.statsRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get stats %s: %w", id, err)
	}
	return stats, nil
}

// RegisterProvider creates or replaces a profile, keeping the original registration time
func (s *providerServiceImpl) RegisterProvider(ctx context.Context, input port.ProviderInput) (*entity.Provider, error) {
	now := s.now()
	p := &entity.Provider{
		ID:           strings.TrimSpace(input.ID),
		DisplayName:  utils.SanitizeLine(input.DisplayName),
		Room:         utils.SanitizeLine(input.Room),
		Rates:        input.Rates,
		Active:       input.Active,
		CardRef:      utils.SanitizeLine(input.CardRef),
		Description:  utils.SanitizeText(input.Description),
		Capability:   input.Capability,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	if err := validateProvider(p); err != nil {
		return nil, err
	}

	existing, err := s.providerRepo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing provider: %w", err)
	}
	if existing != nil {
		p.RegisteredAt = existing.RegisteredAt
	}

	if err := s.providerRepo.Upsert(ctx, p); err != nil {
		s.logger.Error("Failed to register provider", "provider_id", p.ID, "error", err)
		return nil, fmt.Errorf("register provider: %w", err)
	}

	s.logger.Info("Provider registered",
		"provider_id", p.ID,
		"capability", p.Capability,
		"updated", existing != nil)
	return p, nil
}

// UpdateProvider applies a partial change to an existing profile
func (s *providerServiceImpl) UpdateProvider(ctx context.Context, id string, patch port.ProviderPatch) (*entity.Provider, error) {
	p, err := s.providerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get provider %s: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}

	if patch.DisplayName != nil {
		p.DisplayName = utils.SanitizeLine(*patch.DisplayName)
	}
	if patch.Room != nil {
		p.Room = utils.SanitizeLine(*patch.Room)
	}
	if patch.Monochrome != nil {
		p.Rates.Monochrome = *patch.Monochrome
	}
	if patch.Color != nil {
		p.Rates.Color = *patch.Color
	}
	if patch.CardRef != nil {
		p.CardRef = utils.SanitizeLine(*patch.CardRef)
	}
	if patch.Description != nil {
		p.Description = utils.SanitizeText(*patch.Description)
	}
	if patch.Capability != nil {
		p.Capability = *patch.Capability
	}
	p.UpdatedAt = s.now()

	if err := validateProvider(p); err != nil {
		return nil, err
	}
	if err := s.providerRepo.Upsert(ctx, p); err != nil {
		s.logger.Error("Failed to update provider", "provider_id", id, "error", err)
		return nil, fmt.Errorf("update provider: %w", err)
	}
	return p, nil
}

func validateProvider(p *entity.Provider) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidProvider)
	case p.DisplayName == "":
		return fmt.Errorf("%w: display name is required", ErrInvalidProvider)
	case p.Room == "":
		return fmt.Errorf("%w: room is required", ErrInvalidProvider)
	case p.Rates.Monochrome.IsNegative() || p.Rates.Color.IsNegative():
		return fmt.Errorf("%w: rates cannot be negative", ErrInvalidProvider)
	case !p.Capability.IsValid():
		return fmt.Errorf("%w: unknown capability %q", ErrInvalidProvider, p.Capability)
	}
	return nil
}
