package models

import "time"

// EnrollmentStatus is a configurable status label. The set of valid labels
// and the capacity-consuming subset come from the status flow configuration,
// not from a fixed enum; the constants below are only the built-in defaults.
type EnrollmentStatus string

const (
	EnrollmentStatusPending  EnrollmentStatus = "PENDING"
	EnrollmentStatusApproved EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected EnrollmentStatus = "REJECTED"
)

// Enrollment captures a student's admission request for a course.
// DepartmentID is the department context the request was made under, which
// normally equals the student's home department but is recorded separately.
// StartedAt is stamped on the first approval only.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	CourseID     string           `db:"course_id" json:"course_id"`
	DepartmentID *string          `db:"department_id" json:"department_id,omitempty"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	StartedAt    *time.Time       `db:"started_at" json:"started_at,omitempty"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	CourseTitle string `db:"course_title" json:"course_title"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID    string
	CourseID     string
	DepartmentID string
	Status       EnrollmentStatus
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// Affiliation is a student's resolved organizational context, read from the
// most recent membership record rather than a cached field.
type Affiliation struct {
	UserID         string  `db:"user_id" json:"user_id"`
	OrganizationID string  `db:"organization_id" json:"organization_id"`
	DepartmentID   *string `db:"department_id" json:"department_id,omitempty"`
}
