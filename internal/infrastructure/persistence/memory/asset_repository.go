package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aetim/core/internal/domain/asset"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

// AssetRepository is an in-memory outbound.AssetRepository for use in
// tests, standing in for the read-through cache over the asset-management
// collaborator.
type AssetRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*asset.Asset
}

func NewAssetRepository(seed ...*asset.Asset) outbound.AssetRepository {
	r := &AssetRepository{byID: make(map[uuid.UUID]*asset.Asset)}
	for _, a := range seed {
		r.byID[a.ID] = a
	}
	return r
}

func (r *AssetRepository) FindByID(ctx context.Context, id uuid.UUID) (*asset.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, errors.New("asset not found")
	}
	return a, nil
}

func (r *AssetRepository) FindAll(ctx context.Context) ([]*asset.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*asset.Asset, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out, nil
}
