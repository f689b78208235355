package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kartik-560/lms-backend/internal/models"
)

// MembershipRepository stores append-only organization registration records.
type MembershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository constructs the repository.
func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Create appends a registration record. Corrections to a user's organization
// are new rows; history is never rewritten.
func (r *MembershipRepository) Create(ctx context.Context, m *models.OrgMembership) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO org_memberships (id, user_id, organization_id, department_id, role, created_at)
        VALUES (:id, :user_id, :organization_id, :department_id, :role, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

// LatestAffiliation resolves a user's current organization and department
// from their most recent registration record.
func (r *MembershipRepository) LatestAffiliation(ctx context.Context, userID string) (*models.Affiliation, error) {
	const query = `SELECT user_id, organization_id, department_id FROM org_memberships
        WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	var affiliation models.Affiliation
	if err := r.db.GetContext(ctx, &affiliation, query, userID); err != nil {
		return nil, err
	}
	return &affiliation, nil
}

// CountByRole counts members of an organization holding the given role,
// following each user's latest registration only.
func (r *MembershipRepository) CountByRole(ctx context.Context, organizationID string, role models.UserRole) (int, error) {
	const query = `SELECT COUNT(*) FROM (
            SELECT DISTINCT ON (user_id) user_id, organization_id, role
            FROM org_memberships ORDER BY user_id, created_at DESC
        ) latest WHERE latest.organization_id = $1 AND latest.role = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, organizationID, role); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}
