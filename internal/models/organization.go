package models

import "time"

// Organization is the top-level tenant (e.g. a college).
// Limits are nullable, nil meaning unlimited. Deactivation blocks sign-in for
// members but never cascades deletes; removal is a soft delete.
type Organization struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Active          bool       `db:"active" json:"active"`
	StudentLimit    *int       `db:"student_limit" json:"student_limit,omitempty"`
	InstructorLimit *int       `db:"instructor_limit" json:"instructor_limit,omitempty"`
	AdminLimit      *int       `db:"admin_limit" json:"admin_limit,omitempty"`
	DepartmentLimit *int       `db:"department_limit" json:"department_limit,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Department is a subdivision of an Organization, unique by
// (organization_id, name) case-insensitively.
type Department struct {
	ID             string     `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	Name           string     `db:"name" json:"name"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// OrgMembership is an append-only registration record binding a user to an
// organization and optionally a department. A user's current affiliation is
// their most recent record, so a mis-registered organization can be corrected
// by appending a new row.
type OrgMembership struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	DepartmentID   *string   `db:"department_id" json:"department_id,omitempty"`
	Role           UserRole  `db:"role" json:"role"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// AdminToggles are the per-user feature switches an org admin may hold.
type AdminToggles struct {
	CanCreateCourses bool `json:"can_create_courses"`
	CanCreateTests   bool `json:"can_create_tests"`
	CanManageTests   bool `json:"can_manage_tests"`
}

// OrgPermissions is the typed replacement for the free-form permission blobs
// of the legacy system. It is validated on write and stored as JSON on the
// organization row; readers never parse it defensively.
type OrgPermissions struct {
	OrganizationID string                  `json:"organization_id"`
	Toggles        map[string]AdminToggles `json:"toggles"`
}
