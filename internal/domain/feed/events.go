package feed

import (
	"time"

	"github.com/google/uuid"
)

// CreatedEvent is raised when a feed is registered.
type CreatedEvent struct {
	FeedID    uuid.UUID
	Name      string
	Priority  Priority
	Cadence   Cadence
	CreatedAt time.Time
}

func (e CreatedEvent) EventName() string      { return "feed.created" }
func (e CreatedEvent) OccurredAt() time.Time  { return e.CreatedAt }

// UpdatedEvent is raised when mutable feed attributes change.
type UpdatedEvent struct {
	FeedID        uuid.UUID
	Name          string
	UpdatedFields []string
	UpdatedAt     time.Time
}

func (e UpdatedEvent) EventName() string     { return "feed.updated" }
func (e UpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }

// CollectionStatusUpdatedEvent is raised whenever a collection run against
// the feed completes, successfully or not. The collector set (C2) and the
// failure tracker (C4) both subscribe to this event.
type CollectionStatusUpdatedEvent struct {
	FeedID       uuid.UUID
	Name         string
	Status       CollectionStatus
	RecordCount  int
	ErrorMessage string
	Elapsed      time.Duration
	OccurredAtTS time.Time
}

func (e CollectionStatusUpdatedEvent) EventName() string     { return "feed.collection_status_updated" }
func (e CollectionStatusUpdatedEvent) OccurredAt() time.Time { return e.OccurredAtTS }
