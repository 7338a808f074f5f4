package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aetim/core/internal/domain/association"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

// AssociationRepository is an in-memory outbound.AssociationRepository
// for use in tests.
type AssociationRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*association.Association
}

func NewAssociationRepository() outbound.AssociationRepository {
	return &AssociationRepository{byID: make(map[uuid.UUID]*association.Association)}
}

func (r *AssociationRepository) Upsert(ctx context.Context, a *association.Association) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.byID {
		if existing.ThreatID() == a.ThreatID() && existing.AssetID() == a.AssetID() && id != a.ID() {
			delete(r.byID, id)
			break
		}
	}
	r.byID[a.ID()] = a
	return nil
}

func (r *AssociationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return errors.New("association not found")
	}
	delete(r.byID, id)
	return nil
}

func (r *AssociationRepository) FindByThreatID(ctx context.Context, threatID uuid.UUID) ([]*association.Association, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*association.Association
	for _, a := range r.byID {
		if a.ThreatID() == threatID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *AssociationRepository) FindByAssetID(ctx context.Context, assetID uuid.UUID) ([]*association.Association, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*association.Association
	for _, a := range r.byID {
		if a.AssetID() == assetID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *AssociationRepository) FindByThreatAndAsset(ctx context.Context, threatID, assetID uuid.UUID) (*association.Association, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if a.ThreatID() == threatID && a.AssetID() == assetID {
			return a, nil
		}
	}
	return nil, errors.New("association not found")
}
