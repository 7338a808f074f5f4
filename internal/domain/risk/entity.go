// Package risk contains the domain logic for scoring a (threat, asset)
// association and tracking the append-only history of those scorings.
package risk

import (
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/google/uuid"
)

// Assessment is one scoring of one threat-asset association. Re-scoring
// mutates the assessment in place and appends an immutable History row.
type Assessment struct {
	id            uuid.UUID
	threatID      uuid.UUID
	associationID uuid.UUID
	breakdown     Breakdown

	createdAt time.Time
	updatedAt time.Time

	shared.AggregateRoot
}

// New creates an Assessment from a computed Breakdown, clamping the final
// score defensively and raising an AssessmentCompletedEvent.
func New(threatID, associationID uuid.UUID, breakdown Breakdown) (*Assessment, error) {
	if threatID == uuid.Nil {
		return nil, ErrThreatIDRequired
	}
	if associationID == uuid.Nil {
		return nil, ErrAssociationIDRequired
	}
	if breakdown.BaseCVSSScore < 0.0 || breakdown.BaseCVSSScore > 10.0 {
		return nil, ErrInvalidCVSSScore
	}

	breakdown.FinalRiskScore = clamp(breakdown.FinalRiskScore, 0.0, 10.0)
	breakdown.RiskLevel = LevelFromScore(breakdown.FinalRiskScore)

	now := time.Now()
	a := &Assessment{
		id:            uuid.New(),
		threatID:      threatID,
		associationID: associationID,
		breakdown:     breakdown,
		createdAt:     now,
		updatedAt:     now,
	}

	a.AddEvent(AssessmentCompletedEvent{
		AssessmentID:  a.id,
		ThreatID:      threatID,
		AssociationID: associationID,
		FinalScore:    breakdown.FinalRiskScore,
		Level:         breakdown.RiskLevel,
		CompletedAt:   now,
	})

	return a, nil
}

func Rehydrate(id, threatID, associationID uuid.UUID, breakdown Breakdown, createdAt, updatedAt time.Time) *Assessment {
	return &Assessment{
		id: id, threatID: threatID, associationID: associationID, breakdown: breakdown,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (a *Assessment) ID() uuid.UUID            { return a.id }
func (a *Assessment) ThreatID() uuid.UUID      { return a.threatID }
func (a *Assessment) AssociationID() uuid.UUID { return a.associationID }
func (a *Assessment) Breakdown() Breakdown     { return a.breakdown }
func (a *Assessment) CreatedAt() time.Time     { return a.createdAt }
func (a *Assessment) UpdatedAt() time.Time     { return a.updatedAt }

// Rescore replaces the breakdown, raising a fresh AssessmentCompletedEvent.
// The caller is responsible for appending the prior breakdown to history
// before calling this.
func (a *Assessment) Rescore(breakdown Breakdown) error {
	if breakdown.BaseCVSSScore < 0.0 || breakdown.BaseCVSSScore > 10.0 {
		return ErrInvalidCVSSScore
	}

	breakdown.FinalRiskScore = clamp(breakdown.FinalRiskScore, 0.0, 10.0)
	breakdown.RiskLevel = LevelFromScore(breakdown.FinalRiskScore)

	a.breakdown = breakdown
	a.updatedAt = time.Now()

	a.AddEvent(AssessmentCompletedEvent{
		AssessmentID:  a.id,
		ThreatID:      a.threatID,
		AssociationID: a.associationID,
		FinalScore:    breakdown.FinalRiskScore,
		Level:         breakdown.RiskLevel,
		CompletedAt:   a.updatedAt,
	})

	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HistoryEntry is one immutable row of RiskAssessment's time-series.
// Never updated or deleted after write.
type HistoryEntry struct {
	ID           uuid.UUID
	AssessmentID uuid.UUID
	Breakdown    Breakdown
	RecordedAt   time.Time
}

func NewHistoryEntry(assessmentID uuid.UUID, breakdown Breakdown) HistoryEntry {
	return HistoryEntry{
		ID:           uuid.New(),
		AssessmentID: assessmentID,
		Breakdown:    breakdown,
		RecordedAt:   time.Now(),
	}
}
