package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/aetim/core/internal/infrastructure/eventbus"
	"github.com/aetim/core/internal/infrastructure/persistence/memory"
)

func newTrackerWithCapturedAlerts(t *testing.T) (*CacheFailureTracker, *[]CollectionFailureAlert) {
	bus := eventbus.New(zap.NewNop())
	var alerts []CollectionFailureAlert
	bus.Subscribe((CollectionFailureAlert{}).EventName(), func(event shared.DomainEvent) error {
		alerts = append(alerts, event.(CollectionFailureAlert))
		return nil
	})

	tracker := NewCacheFailureTracker(memory.NewCacheRepository(), bus)
	return tracker, &alerts
}

func TestRecordFailure_AlertsOnThirdConsecutiveFailure(t *testing.T) {
	tracker, alerts := newTrackerWithCapturedAlerts(t)
	feedID := uuid.New()
	ctx := context.Background()

	require.NoError(t, tracker.RecordFailure(ctx, feedID, errors.New("timeout")))
	assert.Empty(t, *alerts)

	require.NoError(t, tracker.RecordFailure(ctx, feedID, errors.New("timeout")))
	assert.Empty(t, *alerts)

	require.NoError(t, tracker.RecordFailure(ctx, feedID, errors.New("timeout")))
	require.Len(t, *alerts, 1)
	assert.Equal(t, 3, (*alerts)[0].FailureCount)
}

func TestRecordFailure_FourthFailureWithinCooldownRaisesNoFurtherAlert(t *testing.T) {
	tracker, alerts := newTrackerWithCapturedAlerts(t)
	feedID := uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, tracker.RecordFailure(ctx, feedID, errors.New("timeout")))
	}
	require.Len(t, *alerts, 1)

	require.NoError(t, tracker.RecordFailure(ctx, feedID, errors.New("timeout")))
	assert.Len(t, *alerts, 1)

	inCooldown, err := tracker.IsInCooldown(ctx, feedID)
	require.NoError(t, err)
	assert.True(t, inCooldown)
}

func TestRecordSuccess_ResetsFailureCountAndCooldown(t *testing.T) {
	tracker, alerts := newTrackerWithCapturedAlerts(t)
	feedID := uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, tracker.RecordFailure(ctx, feedID, errors.New("timeout")))
	}
	require.Len(t, *alerts, 1)

	require.NoError(t, tracker.RecordSuccess(ctx, feedID))

	inCooldown, err := tracker.IsInCooldown(ctx, feedID)
	require.NoError(t, err)
	assert.False(t, inCooldown)

	for i := 0; i < 2; i++ {
		require.NoError(t, tracker.RecordFailure(ctx, feedID, errors.New("timeout")))
	}
	assert.Len(t, *alerts, 1)

	require.NoError(t, tracker.RecordFailure(ctx, feedID, errors.New("timeout")))
	assert.Len(t, *alerts, 2)
}

func TestRecordSuccess_NoopWhenAlreadyHealthy(t *testing.T) {
	tracker, _ := newTrackerWithCapturedAlerts(t)
	feedID := uuid.New()
	ctx := context.Background()

	require.NoError(t, tracker.RecordSuccess(ctx, feedID))

	inCooldown, err := tracker.IsInCooldown(ctx, feedID)
	require.NoError(t, err)
	assert.False(t, inCooldown)
}
