package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aetim/core/internal/domain/feed"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

// FeedRepository is an in-memory outbound.FeedRepository for use in tests.
type FeedRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*feed.Feed
}

func NewFeedRepository() outbound.FeedRepository {
	return &FeedRepository{byID: make(map[uuid.UUID]*feed.Feed)}
}

func (r *FeedRepository) Create(ctx context.Context, f *feed.Feed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[f.ID()] = f
	return nil
}

func (r *FeedRepository) Update(ctx context.Context, f *feed.Feed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[f.ID()]; !ok {
		return errors.New("feed not found")
	}
	r.byID[f.ID()] = f
	return nil
}

func (r *FeedRepository) FindByID(ctx context.Context, id uuid.UUID) (*feed.Feed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byID[id]
	if !ok {
		return nil, errors.New("feed not found")
	}
	return f, nil
}

func (r *FeedRepository) FindByName(ctx context.Context, name string) (*feed.Feed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.byID {
		if f.Name() == name {
			return f, nil
		}
	}
	return nil, errors.New("feed not found")
}

func (r *FeedRepository) FindEnabled(ctx context.Context) ([]*feed.Feed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*feed.Feed
	for _, f := range r.byID {
		if f.Enabled() {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *FeedRepository) FindAll(ctx context.Context) ([]*feed.Feed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*feed.Feed, 0, len(r.byID))
	for _, f := range r.byID {
		out = append(out, f)
	}
	return out, nil
}
