package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kartik-560/lms-backend/internal/models"
)

// StatusConfigRepository persists the enrollment status flow as a
// configuration row.
type StatusConfigRepository struct {
	db *sqlx.DB
}

// NewStatusConfigRepository constructs the repository.
func NewStatusConfigRepository(db *sqlx.DB) *StatusConfigRepository {
	return &StatusConfigRepository{db: db}
}

// Get fetches the raw configuration row for the status flow key.
func (r *StatusConfigRepository) Get(ctx context.Context) (*models.Configuration, error) {
	const query = `SELECT key, value, type, description, updated_by, updated_at FROM configurations WHERE key = $1`
	var cfg models.Configuration
	if err := r.db.GetContext(ctx, &cfg, query, models.StatusFlowConfigKey); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert inserts or updates the status flow configuration row.
func (r *StatusConfigRepository) Upsert(ctx context.Context, cfg *models.Configuration) error {
	const query = `INSERT INTO configurations (key, value, type, description, updated_by, updated_at)
VALUES (:key, :value, :type, :description, :updated_by, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, description = EXCLUDED.description,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	cfg.Key = models.StatusFlowConfigKey
	cfg.Type = models.ConfigurationTypeJSON
	cfg.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("upsert status flow configuration: %w", err)
	}
	return nil
}
