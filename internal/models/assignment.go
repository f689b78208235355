package models

import (
	"fmt"
	"time"
)

// CourseAssignment binds a course to an organization, optionally narrowed to
// a single department, with an optional seat capacity (nil = unlimited).
// For a fixed (course, organization) pair the org-wide row (nil department)
// and department rows are mutually exclusive, and the full triple is unique.
type CourseAssignment struct {
	ID             string     `db:"id" json:"id"`
	CourseID       string     `db:"course_id" json:"course_id"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	DepartmentID   *string    `db:"department_id" json:"department_id,omitempty"`
	Capacity       *int       `db:"capacity" json:"capacity,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time `db:"deleted_at" json:"-"`
}

// DepartmentScoped reports whether the assignment targets one department.
func (a *CourseAssignment) DepartmentScoped() bool {
	return a.DepartmentID != nil && *a.DepartmentID != ""
}

// EffectiveAssignment is the single assignment governing admission for a
// (course, organization, department) context. Virtual marks the implicit,
// capacity-unlimited assignment derived from a course's direct organization
// linkage; it has no backing row.
type EffectiveAssignment struct {
	CourseAssignment
	Virtual bool `json:"virtual,omitempty"`
}

// Limited reports whether admission against this assignment is capacity-bound.
func (a *EffectiveAssignment) Limited() bool {
	return !a.Virtual && a.Capacity != nil
}

// ScopeKey identifies the counting scope of the assignment. Enrollments
// admitted under the same key share one capacity pool.
func (a *EffectiveAssignment) ScopeKey() string {
	if a.DepartmentScoped() {
		return "dept:" + *a.DepartmentID
	}
	return "org:" + a.OrganizationID
}

// ScopeDescription renders the scope for error messages.
func (a *EffectiveAssignment) ScopeDescription() string {
	if a.DepartmentScoped() {
		return fmt.Sprintf("course %s in department %s", a.CourseID, *a.DepartmentID)
	}
	return fmt.Sprintf("course %s in organization %s", a.CourseID, a.OrganizationID)
}

// CourseOrgAssignments groups a course's assignments for one organization.
type CourseOrgAssignments struct {
	OrganizationID string             `json:"organization_id"`
	OrgWide        *CourseAssignment  `json:"org_wide,omitempty"`
	Departments    []CourseAssignment `json:"departments"`
}
