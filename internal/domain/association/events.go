package association

import (
	"time"

	"github.com/google/uuid"
)

// CreatedEvent is raised whenever a new (threat, asset) edge is computed
// for the first time. Re-scoring an existing edge does not raise this.
type CreatedEvent struct {
	AssociationID uuid.UUID
	ThreatID      uuid.UUID
	AssetID       uuid.UUID
	Confidence    float64
	MatchKind     Kind
	CreatedAt     time.Time
}

func (e CreatedEvent) EventName() string     { return "association.created" }
func (e CreatedEvent) OccurredAt() time.Time { return e.CreatedAt }
