package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kartik-560/lms-backend/internal/models"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

type statusConfigRepository interface {
	Get(ctx context.Context) (*models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
}

type configCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

const statusConfigCacheKey = "config:" + models.StatusFlowConfigKey

// UpdateStatusFlowRequest replaces the enrollment status flow.
type UpdateStatusFlowRequest struct {
	Allowed      []models.EnrollmentStatus `json:"allowed" validate:"required,min=1,dive,required"`
	ApprovedLike []models.EnrollmentStatus `json:"approved_like" validate:"required,min=1,dive,required"`
}

// StatusConfigService serves immutable snapshots of the enrollment status
// flow. Each admission decision loads one snapshot, so a concurrent update
// only affects subsequent operations. Reads go through a short-TTL cache and
// fall back to the built-in default flow when no row exists.
type StatusConfigService struct {
	repo      statusConfigRepository
	cache     configCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStatusConfigService constructs StatusConfigService.
func NewStatusConfigService(repo statusConfigRepository, cache configCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *StatusConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &StatusConfigService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Load returns the current status flow snapshot.
func (s *StatusConfigService) Load(ctx context.Context) (models.StatusFlowConfig, error) {
	var cached models.StatusFlowConfig
	if s.cache != nil {
		if err := s.cache.Get(ctx, statusConfigCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	row, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultStatusFlowConfig(), nil
		}
		return models.StatusFlowConfig{}, appErrors.FromStore(err, "status flow configuration not found")
	}

	var flow models.StatusFlowConfig
	if err := json.Unmarshal([]byte(row.Value), &flow); err != nil {
		s.logger.Error("invalid status flow configuration, using defaults", zap.Error(err))
		return models.DefaultStatusFlowConfig(), nil
	}
	flow.Version = row.UpdatedAt

	if s.cache != nil {
		if err := s.cache.Set(ctx, statusConfigCacheKey, flow, s.cacheTTL); err != nil {
			s.logger.Warn("status flow cache write failed", zap.Error(err))
		}
	}
	return flow, nil
}

// Update validates and persists a new status flow, then invalidates the
// cached snapshot. In-flight operations keep the snapshot they loaded.
func (s *StatusConfigService) Update(ctx context.Context, req UpdateStatusFlowRequest, actor models.Actor) (models.StatusFlowConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.StatusFlowConfig{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status flow payload")
	}
	if actor.Role != models.RoleSuperAdmin {
		return models.StatusFlowConfig{}, appErrors.Clone(appErrors.ErrForbidden, "only platform administrators may change the status flow")
	}

	seen := make(map[models.EnrollmentStatus]struct{}, len(req.Allowed))
	for _, status := range req.Allowed {
		if _, dup := seen[status]; dup {
			return models.StatusFlowConfig{}, appErrors.Clone(appErrors.ErrValidation, "duplicate status label in allowed set")
		}
		seen[status] = struct{}{}
	}
	for _, status := range req.ApprovedLike {
		if _, ok := seen[status]; !ok {
			return models.StatusFlowConfig{}, appErrors.Clone(appErrors.ErrValidation, "approved-like statuses must be a subset of allowed statuses")
		}
	}

	flow := models.StatusFlowConfig{Allowed: req.Allowed, ApprovedLike: req.ApprovedLike}
	payload, err := json.Marshal(flow)
	if err != nil {
		return models.StatusFlowConfig{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode status flow")
	}

	description := "Enrollment status flow: allowed labels and the capacity-consuming subset"
	row := &models.Configuration{Value: string(payload), Description: &description, UpdatedBy: &actor.UserID}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return models.StatusFlowConfig{}, appErrors.FromStore(err, "status flow configuration not found")
	}
	flow.Version = row.UpdatedAt

	if s.cache != nil {
		s.cache.Delete(ctx, statusConfigCacheKey)
	}
	s.logger.Info("status flow updated", zap.String("updated_by", actor.UserID))
	return flow, nil
}
