// Package ingestion implements the feed scheduler and collection pipeline
// (C4, C5): per-cadence collection runs, consecutive-failure cooldown
// gating, and threat upsert-by-identity.
package ingestion

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

const (
	defaultFailureThreshold  = 3
	defaultAlertCooldown     = 24 * time.Hour
)

// FailureRecord tracks a feed's consecutive collection failures, persisted
// in the shared cache keyed by feed ID.
type FailureRecord struct {
	FeedID           uuid.UUID  `json:"feed_id"`
	FeedName         string     `json:"feed_name"`
	FailureCount     int        `json:"failure_count"`
	LastFailureTime  *time.Time `json:"last_failure_time,omitempty"`
	LastErrorMessage string     `json:"last_error_message,omitempty"`
	FirstFailureTime *time.Time `json:"first_failure_time,omitempty"`
	AlertSentAt      *time.Time `json:"alert_sent_at,omitempty"`
}

// CollectionFailureAlert is raised once a feed's consecutive failure count
// crosses the threshold outside the alert cooldown window.
type CollectionFailureAlert struct {
	FeedID       uuid.UUID
	FeedName     string
	FailureCount int
	ErrorMessage string
	RaisedAt     time.Time
}

func (e CollectionFailureAlert) EventName() string     { return "feed.collection_failure_alert" }
func (e CollectionFailureAlert) OccurredAt() time.Time { return e.RaisedAt }

// CacheFailureTracker implements outbound.FailureTracker on top of the
// shared cache, so tracking survives process restarts.
type CacheFailureTracker struct {
	cache            outbound.CacheRepository
	bus              outbound.EventBus
	failureThreshold int
	alertCooldown    time.Duration
}

func NewCacheFailureTracker(cache outbound.CacheRepository, bus outbound.EventBus) *CacheFailureTracker {
	return &CacheFailureTracker{
		cache:            cache,
		bus:              bus,
		failureThreshold: defaultFailureThreshold,
		alertCooldown:    defaultAlertCooldown,
	}
}

func failureCacheKey(feedID uuid.UUID) string {
	return "ingestion:failure:" + feedID.String()
}

func (t *CacheFailureTracker) load(ctx context.Context, feedID uuid.UUID) (FailureRecord, error) {
	raw, err := t.cache.Get(ctx, failureCacheKey(feedID))
	if err != nil || raw == nil {
		return FailureRecord{FeedID: feedID}, nil
	}
	var rec FailureRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return FailureRecord{FeedID: feedID}, nil
	}
	return rec, nil
}

func (t *CacheFailureTracker) save(ctx context.Context, rec FailureRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return t.cache.Set(ctx, failureCacheKey(rec.FeedID), raw, 0)
}

// RecordFailure increments the feed's consecutive failure count and, if
// the threshold is crossed outside the cooldown window, publishes a
// CollectionFailureAlert.
func (t *CacheFailureTracker) RecordFailure(ctx context.Context, feedID uuid.UUID, collectErr error) error {
	rec, err := t.load(ctx, feedID)
	if err != nil {
		return err
	}

	now := time.Now()
	rec.FailureCount++
	rec.LastFailureTime = &now
	if collectErr != nil {
		rec.LastErrorMessage = collectErr.Error()
	}
	if rec.FirstFailureTime == nil {
		rec.FirstFailureTime = &now
	}

	shouldAlert := rec.FailureCount >= t.failureThreshold && !t.isInCooldown(rec, now)
	if shouldAlert {
		rec.AlertSentAt = &now
		t.bus.Publish(ctx, CollectionFailureAlert{
			FeedID:       feedID,
			FeedName:     rec.FeedName,
			FailureCount: rec.FailureCount,
			ErrorMessage: rec.LastErrorMessage,
			RaisedAt:     now,
		})
	}

	return t.save(ctx, rec)
}

// RecordSuccess resets the feed's failure record.
func (t *CacheFailureTracker) RecordSuccess(ctx context.Context, feedID uuid.UUID) error {
	rec, err := t.load(ctx, feedID)
	if err != nil {
		return err
	}
	if rec.FailureCount == 0 {
		return nil
	}

	rec.FailureCount = 0
	rec.FirstFailureTime = nil
	rec.AlertSentAt = nil
	return t.save(ctx, rec)
}

// IsInCooldown reports whether the feed's failure alert was sent within
// the cooldown window, regardless of the feed's current failure count.
func (t *CacheFailureTracker) IsInCooldown(ctx context.Context, feedID uuid.UUID) (bool, error) {
	rec, err := t.load(ctx, feedID)
	if err != nil {
		return false, err
	}
	return t.isInCooldown(rec, time.Now()), nil
}

func (t *CacheFailureTracker) isInCooldown(rec FailureRecord, now time.Time) bool {
	if rec.AlertSentAt == nil {
		return false
	}
	return now.Before(rec.AlertSentAt.Add(t.alertCooldown))
}
