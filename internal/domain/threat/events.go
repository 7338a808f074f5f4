package threat

import (
	"time"

	"github.com/google/uuid"
)

// IngestedEvent is raised once per persisted Threat, after the owning
// transaction commits, per the collection scheduler (C5)'s contract.
type IngestedEvent struct {
	ThreatID   uuid.UUID
	FeedID     uuid.UUID
	CVEID      string
	IngestedAt time.Time
}

func (e IngestedEvent) EventName() string     { return "threat.ingested" }
func (e IngestedEvent) OccurredAt() time.Time { return e.IngestedAt }

// StatusUpdatedEvent is raised on every lifecycle transition.
type StatusUpdatedEvent struct {
	ThreatID  uuid.UUID
	OldStatus Status
	NewStatus Status
	UpdatedAt time.Time
}

func (e StatusUpdatedEvent) EventName() string     { return "threat.status_updated" }
func (e StatusUpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }

// UpdatedEvent is raised for any other attribute or collection mutation.
type UpdatedEvent struct {
	ThreatID      uuid.UUID
	UpdatedFields []string
	UpdatedAt     time.Time
}

func (e UpdatedEvent) EventName() string     { return "threat.updated" }
func (e UpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }
