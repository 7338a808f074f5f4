package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_DefaultFeedAllowsWindowThenBlocks(t *testing.T) {
	limiter := New(false)
	ctx := context.Background()

	for i := 0; i < defaultFeedMax; i++ {
		require.NoError(t, limiter.Wait(ctx, "cisakev"))
	}

	blockedCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(blockedCtx, "cisakev")
	assert.Error(t, err)
}

func TestWait_NVDUnauthenticatedWindowIsFive(t *testing.T) {
	limiter := New(false)
	ctx := context.Background()

	for i := 0; i < nvdUnauthenticatedMax; i++ {
		require.NoError(t, limiter.Wait(ctx, "nvd"))
	}

	blockedCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(blockedCtx, "nvd")
	assert.Error(t, err)
}

func TestWait_NVDAuthenticatedWindowIsFifty(t *testing.T) {
	limiter := New(true)
	ctx := context.Background()

	for i := 0; i < nvdAuthenticatedMax; i++ {
		require.NoError(t, limiter.Wait(ctx, "nvd"))
	}

	blockedCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(blockedCtx, "nvd")
	assert.Error(t, err)
}

func TestWait_PerFeedWindowsAreIndependent(t *testing.T) {
	limiter := New(false)
	ctx := context.Background()

	for i := 0; i < nvdUnauthenticatedMax; i++ {
		require.NoError(t, limiter.Wait(ctx, "nvd"))
	}

	// A different feed's window must not be affected by NVD's exhaustion.
	require.NoError(t, limiter.Wait(ctx, "msrc"))
}

func TestReserve_SixthPermitAdmitsExactlyAtWindowBoundary(t *testing.T) {
	// 5 permits at t=0 exhaust the window; the 6th must not be admitted
	// before t=6s, and at exactly t=6s the oldest permit has aged out.
	w := newSlidingWindow(5, 6*time.Second)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ok, _ := w.reserve(t0)
		require.True(t, ok)
	}

	ok, admitAt := w.reserve(t0)
	require.False(t, ok)
	assert.Equal(t, t0.Add(6*time.Second), admitAt)

	ok, admitAt = w.reserve(t0.Add(6*time.Second - time.Nanosecond))
	require.False(t, ok)
	assert.Equal(t, t0.Add(6*time.Second), admitAt)

	ok, _ = w.reserve(t0.Add(6 * time.Second))
	assert.True(t, ok)
}

func TestReserve_SlidesRatherThanResets(t *testing.T) {
	// Permits spread across the window age out one at a time: after
	// grants at t=0..4s, the next admission instant tracks the oldest
	// outstanding grant, not the most recent one.
	w := newSlidingWindow(5, 6*time.Second)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ok, _ := w.reserve(t0.Add(time.Duration(i) * time.Second))
		require.True(t, ok)
	}

	ok, admitAt := w.reserve(t0.Add(5 * time.Second))
	require.False(t, ok)
	assert.Equal(t, t0.Add(6*time.Second), admitAt)

	// At t=6s the t=0 grant expires; the next ceiling is t=1s+window.
	ok, _ = w.reserve(t0.Add(6 * time.Second))
	require.True(t, ok)
	ok, admitAt = w.reserve(t0.Add(6*time.Second + time.Millisecond))
	require.False(t, ok)
	assert.Equal(t, t0.Add(7*time.Second), admitAt)
}

func TestWait_CancelledContextReleasesBlockedWaiter(t *testing.T) {
	limiter := New(false)
	ctx := context.Background()

	for i := 0; i < nvdUnauthenticatedMax; i++ {
		require.NoError(t, limiter.Wait(ctx, "nvd"))
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- limiter.Wait(cancelCtx, "nvd") }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("blocked waiter did not observe cancellation")
	}
}
