// Package association contains the domain logic for (threat, asset) edges
// computed by the correlation engine.
package association

import (
	"encoding/json"
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/google/uuid"
)

// Association is a (threat, asset) edge, globally unique keyed by the pair.
// Re-computation upserts rather than duplicating.
type Association struct {
	id          uuid.UUID
	threatID    uuid.UUID
	assetID     uuid.UUID
	confidence  float64
	matchKind   Kind
	matchDetails json.RawMessage

	createdAt time.Time
	updatedAt time.Time

	shared.AggregateRoot
}

// New creates a new Association, raising a CreatedEvent. confidence must
// already be clamped to [0,1] by the correlation engine.
func New(threatID, assetID uuid.UUID, confidence float64, matchKind Kind, matchDetails json.RawMessage) (*Association, error) {
	if threatID == uuid.Nil {
		return nil, ErrThreatIDRequired
	}
	if assetID == uuid.Nil {
		return nil, ErrAssetIDRequired
	}
	if confidence < 0.0 || confidence > 1.0 {
		return nil, ErrInvalidConfidence
	}

	now := time.Now()
	a := &Association{
		id:           uuid.New(),
		threatID:     threatID,
		assetID:      assetID,
		confidence:   confidence,
		matchKind:    matchKind,
		matchDetails: matchDetails,
		createdAt:    now,
		updatedAt:    now,
	}

	a.AddEvent(CreatedEvent{
		AssociationID: a.id,
		ThreatID:      threatID,
		AssetID:       assetID,
		Confidence:    confidence,
		MatchKind:     matchKind,
		CreatedAt:     now,
	})

	return a, nil
}

// Rehydrate reconstructs an Association from persisted state without
// raising events.
func Rehydrate(id, threatID, assetID uuid.UUID, confidence float64, matchKind Kind, matchDetails json.RawMessage, createdAt, updatedAt time.Time) *Association {
	return &Association{
		id: id, threatID: threatID, assetID: assetID, confidence: confidence,
		matchKind: matchKind, matchDetails: matchDetails,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (a *Association) ID() uuid.UUID                  { return a.id }
func (a *Association) ThreatID() uuid.UUID             { return a.threatID }
func (a *Association) AssetID() uuid.UUID              { return a.assetID }
func (a *Association) Confidence() float64             { return a.confidence }
func (a *Association) MatchKind() Kind                 { return a.matchKind }
func (a *Association) MatchDetails() json.RawMessage   { return a.matchDetails }
func (a *Association) CreatedAt() time.Time            { return a.createdAt }
func (a *Association) UpdatedAt() time.Time            { return a.updatedAt }

// Rescore updates the confidence/match-kind/details of an existing
// association in place, used by the re-correlation upsert path.
func (a *Association) Rescore(confidence float64, matchKind Kind, matchDetails json.RawMessage) error {
	if confidence < 0.0 || confidence > 1.0 {
		return ErrInvalidConfidence
	}
	a.confidence = confidence
	a.matchKind = matchKind
	a.matchDetails = matchDetails
	a.updatedAt = time.Now()
	return nil
}
