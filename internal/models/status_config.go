package models

import "time"

// StatusFlowConfigKey is the configuration row holding the enrollment flow.
const StatusFlowConfigKey = "enrollment_status_flow"

// StatusFlowConfig defines the table-driven enrollment state machine:
// the ordered set of valid status labels and the subset that consumes
// capacity. It is global, read-mostly and hot-reloadable; services load an
// immutable snapshot once per operation so a concurrent update never takes
// effect mid-decision.
type StatusFlowConfig struct {
	Allowed      []EnrollmentStatus `json:"allowed"`
	ApprovedLike []EnrollmentStatus `json:"approved_like"`
	Version      time.Time          `json:"version"`
}

// DefaultStatusFlowConfig is used when no configuration row exists.
func DefaultStatusFlowConfig() StatusFlowConfig {
	return StatusFlowConfig{
		Allowed:      []EnrollmentStatus{EnrollmentStatusPending, EnrollmentStatusApproved, EnrollmentStatusRejected},
		ApprovedLike: []EnrollmentStatus{EnrollmentStatusApproved},
	}
}

// IsAllowed reports whether the status is part of the configured flow.
func (c StatusFlowConfig) IsAllowed(status EnrollmentStatus) bool {
	for _, s := range c.Allowed {
		if s == status {
			return true
		}
	}
	return false
}

// IsApprovedLike reports whether the status consumes capacity.
func (c StatusFlowConfig) IsApprovedLike(status EnrollmentStatus) bool {
	for _, s := range c.ApprovedLike {
		if s == status {
			return true
		}
	}
	return false
}

// ApprovedLikeStrings returns the approved-like set as plain strings for
// query parameters.
func (c StatusFlowConfig) ApprovedLikeStrings() []string {
	out := make([]string, len(c.ApprovedLike))
	for i, s := range c.ApprovedLike {
		out[i] = string(s)
	}
	return out
}
