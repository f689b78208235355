package errors

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestFromStoreMapsMissingRows(t *testing.T) {
	appErr := FromStore(sql.ErrNoRows, "enrollment not found")
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "enrollment not found", appErr.Message)
	assert.False(t, IsRetryable(appErr))
}

func TestFromStoreMapsContextExpiry(t *testing.T) {
	appErr := FromStore(fmt.Errorf("query enrollments: %w", context.DeadlineExceeded), "")
	assert.Equal(t, ErrStoreUnavailable.Code, appErr.Code)
	assert.True(t, IsRetryable(appErr))
}

func TestFromStoreMapsDeadlockAndSerializationFailures(t *testing.T) {
	for _, code := range []pq.ErrorCode{"40001", "40P01"} {
		err := fmt.Errorf("commit admission: %w", &pq.Error{Code: code})
		appErr := FromStore(err, "")
		assert.Equal(t, ErrStoreUnavailable.Code, appErr.Code)
		assert.True(t, IsRetryable(appErr))
	}

	unique := fmt.Errorf("insert enrollment: %w", &pq.Error{Code: "23505"})
	appErr := FromStore(unique, "")
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.False(t, IsRetryable(appErr))
}

func TestFromStorePreservesTypedErrors(t *testing.T) {
	appErr := FromStore(CapacityExceeded(2, 2, "course c1 in department d1"), "")
	assert.Equal(t, ErrCapacityExceeded.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "2 of 2")
	assert.False(t, IsRetryable(appErr))
}
