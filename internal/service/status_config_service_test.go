package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kartik-560/lms-backend/internal/models"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

type mockStatusConfigRepo struct {
	row      *models.Configuration
	upserted *models.Configuration
}

func (m *mockStatusConfigRepo) Get(ctx context.Context) (*models.Configuration, error) {
	if m.row == nil {
		return nil, sql.ErrNoRows
	}
	return m.row, nil
}

func (m *mockStatusConfigRepo) Upsert(ctx context.Context, cfg *models.Configuration) error {
	cfg.UpdatedAt = time.Now().UTC()
	m.upserted = cfg
	return nil
}

type mockConfigCache struct {
	values  map[string][]byte
	sets    int
	deletes []string
}

func (m *mockConfigCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (m *mockConfigCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	return nil
}

func (m *mockConfigCache) Delete(ctx context.Context, keys ...string) {
	m.deletes = append(m.deletes, keys...)
}

func TestStatusConfigLoadDefaultsWhenMissing(t *testing.T) {
	svc := NewStatusConfigService(&mockStatusConfigRepo{}, nil, time.Second, validator.New(), zap.NewNop())

	flow, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultStatusFlowConfig().Allowed, flow.Allowed)
	assert.True(t, flow.IsApprovedLike(models.EnrollmentStatusApproved))
	assert.False(t, flow.IsApprovedLike(models.EnrollmentStatusPending))
}

func TestStatusConfigLoadFromStore(t *testing.T) {
	updated := time.Now().UTC()
	repo := &mockStatusConfigRepo{row: &models.Configuration{
		Key:       models.StatusFlowConfigKey,
		Value:     `{"allowed":["PENDING","APPROVED","WAITLISTED","REJECTED"],"approved_like":["APPROVED","WAITLISTED"]}`,
		Type:      models.ConfigurationTypeJSON,
		UpdatedAt: updated,
	}}
	cache := &mockConfigCache{}
	svc := NewStatusConfigService(repo, cache, time.Second, validator.New(), zap.NewNop())

	flow, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, flow.IsAllowed("WAITLISTED"))
	assert.True(t, flow.IsApprovedLike("WAITLISTED"))
	assert.Equal(t, updated, flow.Version)
	assert.Equal(t, 1, cache.sets)
}

func TestStatusConfigLoadBadPayloadFallsBack(t *testing.T) {
	repo := &mockStatusConfigRepo{row: &models.Configuration{
		Key:   models.StatusFlowConfigKey,
		Value: `not-json`,
	}}
	svc := NewStatusConfigService(repo, nil, time.Second, validator.New(), zap.NewNop())

	flow, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultStatusFlowConfig().Allowed, flow.Allowed)
}

func TestStatusConfigUpdate(t *testing.T) {
	repo := &mockStatusConfigRepo{}
	cache := &mockConfigCache{}
	svc := NewStatusConfigService(repo, cache, time.Second, validator.New(), zap.NewNop())

	flow, err := svc.Update(context.Background(), UpdateStatusFlowRequest{
		Allowed:      []models.EnrollmentStatus{"PENDING", "APPROVED", "WAITLISTED", "REJECTED"},
		ApprovedLike: []models.EnrollmentStatus{"APPROVED", "WAITLISTED"},
	}, models.Actor{UserID: "root", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.True(t, flow.IsApprovedLike("WAITLISTED"))
	require.NotNil(t, repo.upserted)
	assert.Contains(t, repo.upserted.Value, "WAITLISTED")
	assert.Contains(t, cache.deletes, statusConfigCacheKey)
}

func TestStatusConfigUpdateRequiresPlatformAdmin(t *testing.T) {
	svc := NewStatusConfigService(&mockStatusConfigRepo{}, nil, time.Second, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), UpdateStatusFlowRequest{
		Allowed:      []models.EnrollmentStatus{"PENDING", "APPROVED"},
		ApprovedLike: []models.EnrollmentStatus{"APPROVED"},
	}, models.Actor{UserID: "u1", Role: models.RoleOrgAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStatusConfigUpdateApprovedLikeMustBeSubset(t *testing.T) {
	svc := NewStatusConfigService(&mockStatusConfigRepo{}, nil, time.Second, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), UpdateStatusFlowRequest{
		Allowed:      []models.EnrollmentStatus{"PENDING", "APPROVED"},
		ApprovedLike: []models.EnrollmentStatus{"WAITLISTED"},
	}, models.Actor{UserID: "root", Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStatusConfigUpdateRejectsDuplicates(t *testing.T) {
	svc := NewStatusConfigService(&mockStatusConfigRepo{}, nil, time.Second, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), UpdateStatusFlowRequest{
		Allowed:      []models.EnrollmentStatus{"PENDING", "PENDING"},
		ApprovedLike: []models.EnrollmentStatus{"PENDING"},
	}, models.Actor{UserID: "root", Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
