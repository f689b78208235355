package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kartik-560/lms-backend/internal/models"
)

// OrganizationRepository handles persistence of organizations.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository constructs the repository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

const organizationColumns = `id, name, active, student_limit, instructor_limit, admin_limit, department_limit, created_at, updated_at, deleted_at`

// FindByID returns a live organization by ID.
func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE id = $1 AND deleted_at IS NULL`, organizationColumns)
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		return nil, err
	}
	return &org, nil
}

// List returns live organizations ordered by name.
func (r *OrganizationRepository) List(ctx context.Context) ([]models.Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE deleted_at IS NULL ORDER BY name ASC`, organizationColumns)
	var orgs []models.Organization
	if err := r.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

// Create persists a new organization.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now
	const query = `INSERT INTO organizations (id, name, active, student_limit, instructor_limit, admin_limit, department_limit, created_at, updated_at)
        VALUES (:id, :name, :active, :student_limit, :instructor_limit, :admin_limit, :department_limit, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, org); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// SetActive toggles sign-in for the organization's members.
func (r *OrganizationRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE organizations SET active = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("update organization active flag: %w", err)
	}
	return nil
}

// SoftDelete marks the organization removed without cascading data loss.
func (r *OrganizationRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	const query = `UPDATE organizations SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("soft delete organization: %w", err)
	}
	return nil
}

// SetPermissions stores the validated typed permission structure.
func (r *OrganizationRepository) SetPermissions(ctx context.Context, id string, perms models.OrgPermissions) error {
	payload, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("marshal organization permissions: %w", err)
	}
	const query = `UPDATE organizations SET permissions = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("update organization permissions: %w", err)
	}
	return nil
}

// GetPermissions loads the typed permission structure, empty when unset.
func (r *OrganizationRepository) GetPermissions(ctx context.Context, id string) (*models.OrgPermissions, error) {
	const query = `SELECT COALESCE(permissions, '{}'::jsonb) FROM organizations WHERE id = $1 AND deleted_at IS NULL`
	var raw []byte
	if err := r.db.GetContext(ctx, &raw, query, id); err != nil {
		return nil, err
	}
	perms := models.OrgPermissions{OrganizationID: id, Toggles: map[string]models.AdminToggles{}}
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, fmt.Errorf("unmarshal organization permissions: %w", err)
	}
	if perms.OrganizationID == "" {
		perms.OrganizationID = id
	}
	if perms.Toggles == nil {
		perms.Toggles = map[string]models.AdminToggles{}
	}
	return &perms, nil
}
