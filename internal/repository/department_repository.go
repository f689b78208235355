package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kartik-560/lms-backend/internal/models"
)

// DepartmentRepository handles persistence of departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

const departmentColumns = `id, organization_id, name, created_at, deleted_at`

// FindByID returns a live department by ID.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	query := fmt.Sprintf(`SELECT %s FROM departments WHERE id = $1 AND deleted_at IS NULL`, departmentColumns)
	var dept models.Department
	if err := r.db.GetContext(ctx, &dept, query, id); err != nil {
		return nil, err
	}
	return &dept, nil
}

// ListByOrganization returns live departments of an organization.
func (r *DepartmentRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.Department, error) {
	query := fmt.Sprintf(`SELECT %s FROM departments WHERE organization_id = $1 AND deleted_at IS NULL ORDER BY name ASC`, departmentColumns)
	var depts []models.Department
	if err := r.db.SelectContext(ctx, &depts, query, organizationID); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return depts, nil
}

// CountByOrganization counts live departments, used for limit enforcement.
func (r *DepartmentRepository) CountByOrganization(ctx context.Context, organizationID string) (int, error) {
	const query = `SELECT COUNT(*) FROM departments WHERE organization_id = $1 AND deleted_at IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, organizationID); err != nil {
		return 0, fmt.Errorf("count departments: %w", err)
	}
	return count, nil
}

// ExistsByName checks the case-insensitive (organization, name) uniqueness.
func (r *DepartmentRepository) ExistsByName(ctx context.Context, organizationID, name string) (bool, error) {
	const query = `SELECT 1 FROM departments
        WHERE organization_id = $1 AND LOWER(name) = LOWER($2) AND deleted_at IS NULL LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, organizationID, name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check department name: %w", err)
	}
	return true, nil
}

// Create persists a new department.
func (r *DepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	if dept.CreatedAt.IsZero() {
		dept.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO departments (id, organization_id, name, created_at)
        VALUES (:id, :organization_id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, dept); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// SoftDelete marks a department removed.
func (r *DepartmentRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE departments SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete department: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
