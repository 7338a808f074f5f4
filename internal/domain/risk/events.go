package risk

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentCompletedEvent is raised every time a threat-association pair
// is scored, including re-scorings.
type AssessmentCompletedEvent struct {
	AssessmentID  uuid.UUID
	ThreatID      uuid.UUID
	AssociationID uuid.UUID
	FinalScore    float64
	Level         Level
	CompletedAt   time.Time
}

func (e AssessmentCompletedEvent) EventName() string     { return "risk.assessment_completed" }
func (e AssessmentCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
