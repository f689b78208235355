package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the identity
// service. Organization and department ids ride along so the admission
// subsystem never re-resolves the caller's tenancy from scratch.
type JWTClaims struct {
	UserID         string   `json:"user_id"`
	Role           UserRole `json:"role"`
	Email          string   `json:"email"`
	OrganizationID string   `json:"organization_id,omitempty"`
	DepartmentID   string   `json:"department_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts claims into the acting principal used by services.
func (c *JWTClaims) Actor() Actor {
	return Actor{
		UserID:         c.UserID,
		Role:           c.Role,
		OrganizationID: c.OrganizationID,
		DepartmentID:   c.DepartmentID,
	}
}
