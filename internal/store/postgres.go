package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avatarlab/avatar-api/internal/provider"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore is the production Store implementation backed by a pgx
// connection pool. Default-swap operations run inside a transaction so
// the single-default-per-tenant invariant holds under concurrency.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const providerColumns = `
id, tenant_id, name, display_name, type,
api_key_encrypted, api_secret_encrypted, base_url, webhook_url,
supports_lip_sync, supports_eye_movement, supports_emotions, supports_background,
monthly_minute_quota, cost_per_minute, max_video_length_sec, max_resolution,
avg_processing_sec, priority, active, is_default, extra_config,
health_status, last_health_check_at, last_used_at, created_at, updated_at`

// Create inserts a provider config, unsetting any previous tenant default
// in the same transaction when cfg.IsDefault is true.
func (s *PostgresStore) Create(ctx context.Context, cfg *ProviderConfig) error {
	now := time.Now()
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	if cfg.HealthStatus == "" {
		cfg.HealthStatus = provider.HealthUnknown
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if cfg.IsDefault {
			if err := unsetDefaultTx(ctx, tx, cfg.TenantID, cfg.ID); err != nil {
				return err
			}
		}
		query := `
INSERT INTO provider_configs (` + providerColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27);
`
		_, err := tx.Exec(ctx, query, scanArgs(cfg)...)
		return err
	})
}

// Update persists changes to an existing config.
func (s *PostgresStore) Update(ctx context.Context, cfg *ProviderConfig) error {
	cfg.UpdatedAt = time.Now()

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if cfg.IsDefault {
			if err := unsetDefaultTx(ctx, tx, cfg.TenantID, cfg.ID); err != nil {
				return err
			}
		}
		query := `
UPDATE provider_configs
SET name = $2, display_name = $3, type = $4,
    api_key_encrypted = $5, api_secret_encrypted = $6, base_url = $7, webhook_url = $8,
    supports_lip_sync = $9, supports_eye_movement = $10, supports_emotions = $11, supports_background = $12,
    monthly_minute_quota = $13, cost_per_minute = $14, max_video_length_sec = $15, max_resolution = $16,
    avg_processing_sec = $17, priority = $18, active = $19, is_default = $20, extra_config = $21,
    updated_at = $22
WHERE id = $1;
`
		tag, err := tx.Exec(ctx, query,
			cfg.ID, cfg.Name, cfg.DisplayName, cfg.Type,
			cfg.APIKeyEncrypted, cfg.APISecretEncrypted, cfg.BaseURL, cfg.WebhookURL,
			cfg.SupportsLipSync, cfg.SupportsEyeMovement, cfg.SupportsEmotions, cfg.SupportsBackground,
			cfg.MonthlyMinuteQuota, cfg.CostPerMinute, cfg.MaxVideoLengthSec, cfg.MaxResolution,
			cfg.AvgProcessingSec, cfg.Priority, cfg.Active, cfg.IsDefault, nullableBytes(cfg.ExtraConfig),
			cfg.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FindActiveProviders returns the tenant's active, feature-matching
// configs in ranked order.
func (s *PostgresStore) FindActiveProviders(ctx context.Context, tenantID uuid.UUID, f Filter) ([]ProviderConfig, error) {
	query := `
SELECT ` + providerColumns + `
FROM provider_configs
WHERE tenant_id = $1
  AND active = TRUE
  AND (NOT $2 OR supports_lip_sync)
  AND (NOT $3 OR supports_eye_movement)
  AND (NOT $4 OR supports_emotions)
  AND (NOT $5 OR supports_background)
ORDER BY is_default DESC, priority DESC, avg_processing_sec ASC, created_at DESC;
`
	rows, err := s.pool.Query(ctx, query, tenantID,
		f.RequireLipSync, f.RequireEyeMovement, f.RequireEmotions, f.RequireBackground)
	if err != nil {
		return nil, fmt.Errorf("store: query active providers: %w", err)
	}
	defer rows.Close()

	var result []ProviderConfig
	for rows.Next() {
		cfg, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}

// FindProviderByType returns the tenant's active config of the given
// type, preferring the default.
func (s *PostgresStore) FindProviderByType(ctx context.Context, tenantID uuid.UUID, t provider.Type) (*ProviderConfig, error) {
	query := `
SELECT ` + providerColumns + `
FROM provider_configs
WHERE tenant_id = $1 AND type = $2 AND active = TRUE
ORDER BY is_default DESC, priority DESC
LIMIT 1;
`
	row := s.pool.QueryRow(ctx, query, tenantID, t)
	cfg, err := scanProvider(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// FindByID returns a config by ID.
func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*ProviderConfig, error) {
	query := `SELECT ` + providerColumns + ` FROM provider_configs WHERE id = $1;`
	cfg, err := scanProvider(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// SetDefault marks one config as the tenant's default transactionally.
func (s *PostgresStore) SetDefault(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := unsetDefaultTx(ctx, tx, tenantID, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE provider_configs SET is_default = TRUE, updated_at = NOW() WHERE id = $1 AND tenant_id = $2;`,
			id, tenantID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpdateProviderHealth records the durable health summary.
func (s *PostgresStore) UpdateProviderHealth(ctx context.Context, id uuid.UUID, status provider.HealthStatus, checkedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE provider_configs SET health_status = $2, last_health_check_at = $3 WHERE id = $1;`,
		id, status, checkedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProviderUsage records when a provider was last used.
func (s *PostgresStore) UpdateProviderUsage(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE provider_configs SET last_used_at = $2 WHERE id = $1;`,
		id, usedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a config.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM provider_configs WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *PostgresStore) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

// unsetDefaultTx clears IsDefault on every other config of the tenant.
func unsetDefaultTx(ctx context.Context, tx pgx.Tx, tenantID, except uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE provider_configs SET is_default = FALSE, updated_at = NOW() WHERE tenant_id = $1 AND id <> $2 AND is_default;`,
		tenantID, except)
	return err
}

// scanArgs lists insert arguments in providerColumns order.
func scanArgs(cfg *ProviderConfig) []any {
	return []any{
		cfg.ID, cfg.TenantID, cfg.Name, cfg.DisplayName, cfg.Type,
		cfg.APIKeyEncrypted, cfg.APISecretEncrypted, cfg.BaseURL, cfg.WebhookURL,
		cfg.SupportsLipSync, cfg.SupportsEyeMovement, cfg.SupportsEmotions, cfg.SupportsBackground,
		cfg.MonthlyMinuteQuota, cfg.CostPerMinute, cfg.MaxVideoLengthSec, cfg.MaxResolution,
		cfg.AvgProcessingSec, cfg.Priority, cfg.Active, cfg.IsDefault, nullableBytes(cfg.ExtraConfig),
		cfg.HealthStatus, nullableTime(cfg.LastHealthCheckAt), nullableTime(cfg.LastUsedAt),
		cfg.CreatedAt, cfg.UpdatedAt,
	}
}

// scanProvider reads one row in providerColumns order.
func scanProvider(row pgx.Row) (ProviderConfig, error) {
	var cfg ProviderConfig
	var lastHealthCheck, lastUsed *time.Time
	err := row.Scan(
		&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.DisplayName, &cfg.Type,
		&cfg.APIKeyEncrypted, &cfg.APISecretEncrypted, &cfg.BaseURL, &cfg.WebhookURL,
		&cfg.SupportsLipSync, &cfg.SupportsEyeMovement, &cfg.SupportsEmotions, &cfg.SupportsBackground,
		&cfg.MonthlyMinuteQuota, &cfg.CostPerMinute, &cfg.MaxVideoLengthSec, &cfg.MaxResolution,
		&cfg.AvgProcessingSec, &cfg.Priority, &cfg.Active, &cfg.IsDefault, &cfg.ExtraConfig,
		&cfg.HealthStatus, &lastHealthCheck, &lastUsed, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return ProviderConfig{}, err
	}
	if lastHealthCheck != nil {
		cfg.LastHealthCheckAt = *lastHealthCheck
	}
	if lastUsed != nil {
		cfg.LastUsedAt = *lastUsed
	}
	return cfg, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
