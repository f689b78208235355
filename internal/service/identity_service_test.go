package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartik-560/lms-backend/internal/models"
	"github.com/kartik-560/lms-backend/pkg/config"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

func signTestToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestIdentityValidateToken(t *testing.T) {
	svc := NewIdentityService(config.JWTConfig{Secret: "test-secret"})

	token := signTestToken(t, "test-secret", &models.JWTClaims{
		UserID:         "u1",
		Role:           models.RoleOrgAdmin,
		OrganizationID: "o1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleOrgAdmin, claims.Role)

	actor := claims.Actor()
	assert.Equal(t, "o1", actor.OrganizationID)
}

func TestIdentityValidateTokenRejectsBadSecret(t *testing.T) {
	svc := NewIdentityService(config.JWTConfig{Secret: "test-secret"})

	token := signTestToken(t, "wrong-secret", &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestIdentityValidateTokenRejectsExpired(t *testing.T) {
	svc := NewIdentityService(config.JWTConfig{Secret: "test-secret"})

	token := signTestToken(t, "test-secret", &models.JWTClaims{
		UserID: "u1",
		Role:   models.RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := svc.ValidateToken(token)
	require.Error(t, err)
}
