package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/infrastructure/persistence/sqldb"
)

const providerColumns = `
	id, display_name, room, rate_mono, rate_color, active,
	card_ref, description, capability, registered_at, updated_at
`

// ProviderRepository implements port.ProviderRepository
type ProviderRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewProviderRepository creates a new provider repository
func NewProviderRepository(db *sqldb.DB, logger *zap.Logger) port.ProviderRepository {
	return &ProviderRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts a provider or replaces every field except registered_at
func (r *ProviderRepository) Upsert(ctx context.Context, p *entity.Provider) error {
	query := r.db.Rebind(`
		INSERT INTO providers (` + providerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			room = excluded.room,
			rate_mono = excluded.rate_mono,
			rate_color = excluded.rate_color,
			active = excluded.active,
			card_ref = excluded.card_ref,
			description = excluded.description,
			capability = excluded.capability,
			updated_at = excluded.updated_at
	`)

	var cardRef, description sql.NullString
	if p.CardRef != "" {
		cardRef = sql.NullString{String: p.CardRef, Valid: true}
	}
	if p.Description != "" {
		description = sql.NullString{String: p.Description, Valid: true}
	}

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		p.ID,
		p.DisplayName,
		p.Room,
		p.Rates.Monochrome,
		p.Rates.Color,
		p.Active,
		cardRef,
		description,
		string(p.Capability),
		p.RegisteredAt.UTC(),
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert provider",
			zap.String("provider_id", p.ID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert provider: %w", err)
	}
	return nil
}

// GetByID retrieves a provider; nil, nil when it does not exist
func (r *ProviderRepository) GetByID(ctx context.Context, id string) (*entity.Provider, error) {
	query := r.db.Rebind(`SELECT ` + providerColumns + ` FROM providers WHERE id = ?`)

	p, err := scanProvider(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get provider",
			zap.String("provider_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return p, nil
}

// ListActive returns active providers ordered by display name
func (r *ProviderRepository) ListActive(ctx context.Context) ([]*entity.Provider, error) {
	query := r.db.Rebind(`
		SELECT ` + providerColumns + `
		FROM providers
		WHERE active = ?
		ORDER BY display_name, id
	`)

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, true)
	if err != nil {
		r.logger.Error("Failed to list active providers", zap.Error(err))
		return nil, fmt.Errorf("failed to list active providers: %w", err)
	}
	defer rows.Close()

	var providers []*entity.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// SetActive updates the active flag and reports whether the provider exists
func (r *ProviderRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	query := r.db.Rebind(`UPDATE providers SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, active, id)
	if err != nil {
		r.logger.Error("Failed to set provider active",
			zap.String("provider_id", id),
			zap.Bool("active", active),
			zap.Error(err))
		return false, fmt.Errorf("failed to set provider active: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProvider(row rowScanner) (*entity.Provider, error) {
	var p entity.Provider
	var capability string
	var cardRef, description sql.NullString

	err := row.Scan(
		&p.ID,
		&p.DisplayName,
		&p.Room,
		&p.Rates.Monochrome,
		&p.Rates.Color,
		&p.Active,
		&cardRef,
		&description,
		&capability,
		&p.RegisteredAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Capability = entity.Capability(capability)
	p.CardRef = cardRef.String
	p.Description = description.String
	return &p, nil
}
