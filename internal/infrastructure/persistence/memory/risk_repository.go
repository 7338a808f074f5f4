package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

// RiskAssessmentRepository is an in-memory outbound.RiskAssessmentRepository
// for use in tests.
type RiskAssessmentRepository struct {
	mu        sync.RWMutex
	byAssoc   map[uuid.UUID]*risk.Assessment
	history   map[uuid.UUID][]risk.HistoryEntry
}

func NewRiskAssessmentRepository() outbound.RiskAssessmentRepository {
	return &RiskAssessmentRepository{
		byAssoc: make(map[uuid.UUID]*risk.Assessment),
		history: make(map[uuid.UUID][]risk.HistoryEntry),
	}
}

func (r *RiskAssessmentRepository) Upsert(ctx context.Context, a *risk.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAssoc[a.AssociationID()] = a
	return nil
}

func (r *RiskAssessmentRepository) FindByAssociationID(ctx context.Context, associationID uuid.UUID) (*risk.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byAssoc[associationID]
	if !ok {
		return nil, errors.New("risk assessment not found")
	}
	return a, nil
}

func (r *RiskAssessmentRepository) FindByThreatID(ctx context.Context, threatID uuid.UUID) ([]*risk.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*risk.Assessment
	for _, a := range r.byAssoc {
		if a.ThreatID() == threatID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *RiskAssessmentRepository) AppendHistory(ctx context.Context, entry risk.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[entry.AssessmentID] = append(r.history[entry.AssessmentID], entry)
	return nil
}

func (r *RiskAssessmentRepository) FindHistoryByAssessmentID(ctx context.Context, assessmentID uuid.UUID) ([]risk.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := append([]risk.HistoryEntry{}, r.history[assessmentID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].RecordedAt.Before(entries[j].RecordedAt) })
	return entries, nil
}
