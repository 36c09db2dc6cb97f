package serrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseError_IsMatchesByCode(t *testing.T) {
	t.Parallel()

	a := NewError("WORKFLOW_INVALID_TRANSITION", "invalid transition", "")
	b := NewError("WORKFLOW_INVALID_TRANSITION", "another message", "")
	c := NewError("WORKFLOW_STALE_PROPOSAL", "stale", "")

	require.ErrorIs(t, a, b)
	require.NotErrorIs(t, a, c)
}

func TestWrapf_KeepsCodeAndRetryability(t *testing.T) {
	t.Parallel()

	storage := NewRetryableError("WORKFLOW_STORAGE_FAILURE", "storage failure", "")
	err := Wrapf(storage, "write %s", "sub-1")

	require.ErrorIs(t, err, storage)
	require.Equal(t, "WORKFLOW_STORAGE_FAILURE", Code(err))
	require.True(t, IsRetryable(err))
	require.Contains(t, err.Error(), "write sub-1")
}

func TestCode_PlainError(t *testing.T) {
	t.Parallel()

	require.Empty(t, Code(errors.New("boom")))
	require.False(t, IsRetryable(fmt.Errorf("wrapped: %w", errors.New("boom"))))
}

func TestValidationErrors_ErrorIsSorted(t *testing.T) {
	t.Parallel()

	v := ValidationErrors{"b": "is required", "a": "must be a valid UUID"}
	require.Equal(t, "a: must be a valid UUID; b: is required", v.Error())
}
