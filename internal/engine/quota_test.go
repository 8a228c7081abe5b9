package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassQuota_WithinLimit(t *testing.T) {
	q := NewPassQuota(10)

	for i := 0; i < 10; i++ {
		assert.NoError(t, q.Check(), "pass %d should be allowed", i+1)
	}

	assert.Equal(t, 10, q.Current())
	assert.Equal(t, 10, q.MaxPasses())
}

func TestPassQuota_ExceedsLimit(t *testing.T) {
	q := NewPassQuota(5)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Check())
	}

	err := q.Check()
	require.Error(t, err)

	var pe *PassLimitExceededError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 6, pe.Passes)
	assert.Equal(t, 5, pe.Limit)
}

func TestPassQuota_ZeroIsUnlimited(t *testing.T) {
	q := NewPassQuota(0)
	for i := 0; i < 10000; i++ {
		require.NoError(t, q.Check())
	}
}

func TestPassQuota_Reset(t *testing.T) {
	q := NewPassQuota(2)
	q.Check()
	q.Check()
	q.Reset()

	assert.Equal(t, 0, q.Current())
	assert.NoError(t, q.Check())
}

func TestPassLimitExceededError_Error(t *testing.T) {
	err := &PassLimitExceededError{Passes: 1001, Limit: 1000}
	assert.Equal(t, "rule set did not converge: pass 1001 exceeds limit of 1000", err.Error())
}

func TestIsPassLimitError_Wrapped(t *testing.T) {
	inner := &PassLimitExceededError{Passes: 3, Limit: 2}
	wrapped := fmt.Errorf("closure: %w", newPassLimitError(3, inner))

	assert.True(t, IsPassLimitError(wrapped))
	assert.False(t, IsPassLimitError(fmt.Errorf("other")))
}

func TestRuntimeError_Error(t *testing.T) {
	err := newCancelledError(4, fmt.Errorf("boom"))
	assert.Equal(t, "CANCELLED: run cancelled before fixed point (pass=4)", err.Error())

	noPass := &RuntimeError{Code: ErrCodePassLimit, Message: "m"}
	assert.Equal(t, "PASS_LIMIT: m", noPass.Error())
}
