package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kartik-560/lms-backend/internal/models"
	"github.com/kartik-560/lms-backend/pkg/config"
	appErrors "github.com/kartik-560/lms-backend/pkg/errors"
)

// IdentityService validates access tokens issued by the platform's auth
// provider. Token issuance lives outside this service.
type IdentityService struct {
	config config.JWTConfig
}

// NewIdentityService constructs IdentityService.
func NewIdentityService(cfg config.JWTConfig) *IdentityService {
	return &IdentityService{config: cfg}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *IdentityService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
