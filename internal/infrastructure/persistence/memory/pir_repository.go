package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aetim/core/internal/domain/pir"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

// PIRRepository is an in-memory outbound.PIRRepository for use in tests.
type PIRRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*pir.PIR
}

func NewPIRRepository() outbound.PIRRepository {
	return &PIRRepository{byID: make(map[uuid.UUID]*pir.PIR)}
}

func (r *PIRRepository) Create(ctx context.Context, p *pir.PIR) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID()] = p
	return nil
}

func (r *PIRRepository) Update(ctx context.Context, p *pir.PIR) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID()]; !ok {
		return errors.New("pir not found")
	}
	r.byID[p.ID()] = p
	return nil
}

func (r *PIRRepository) FindByID(ctx context.Context, id uuid.UUID) (*pir.PIR, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, errors.New("pir not found")
	}
	return p, nil
}

func (r *PIRRepository) FindEnabled(ctx context.Context) ([]*pir.PIR, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*pir.PIR
	for _, p := range r.byID {
		if p.Enabled() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PIRRepository) FindAll(ctx context.Context) ([]*pir.PIR, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*pir.PIR, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out, nil
}
