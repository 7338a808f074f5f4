package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExecute_SucceedsWithoutRetry(t *testing.T) {
	policy := New(zap.NewNop())
	calls := 0

	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_NonRetryableFailsImmediately(t *testing.T) {
	policy := New(zap.NewNop())
	calls := 0
	wantErr := NewDataFormatError("nvd", errors.New("bad json"))

	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestExecute_AuthenticationFailsImmediately(t *testing.T) {
	policy := New(zap.NewNop())
	calls := 0
	resp := &http.Response{StatusCode: http.StatusUnauthorized, Header: http.Header{}}
	wantErr := NewStatusError("nvd", resp)

	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestExecute_ContextCancelledDuringBackoffReturnsContextError(t *testing.T) {
	policy := New(zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := policy.Execute(ctx, func(ctx context.Context) error {
		return errors.New("transient failure")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
