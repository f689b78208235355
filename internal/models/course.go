package models

import "time"

// CourseStatus represents the publication lifecycle of a course.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "DRAFT"
	CourseStatusPublished CourseStatus = "PUBLISHED"
	CourseStatusArchived  CourseStatus = "ARCHIVED"
)

// Course is a catalog entry. OrganizationID is set when an org-level author
// creates the course directly; such a course behaves as if it carried an
// unlimited org-wide assignment for that organization.
type Course struct {
	ID             string       `db:"id" json:"id"`
	Title          string       `db:"title" json:"title"`
	OrganizationID *string      `db:"organization_id" json:"organization_id,omitempty"`
	Status         CourseStatus `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time   `db:"deleted_at" json:"deleted_at,omitempty"`
}
