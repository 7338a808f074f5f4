package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

// ThreatRepository is an in-memory outbound.ThreatRepository for use in
// tests.
type ThreatRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*threat.Threat
}

func NewThreatRepository() outbound.ThreatRepository {
	return &ThreatRepository{byID: make(map[uuid.UUID]*threat.Threat)}
}

func (r *ThreatRepository) Create(ctx context.Context, t *threat.Threat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[t.ID()] = t
	return nil
}

func (r *ThreatRepository) Update(ctx context.Context, t *threat.Threat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID()]; !ok {
		return errors.New("threat not found")
	}
	r.byID[t.ID()] = t
	return nil
}

func (r *ThreatRepository) FindByID(ctx context.Context, id uuid.UUID) (*threat.Threat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, errors.New("threat not found")
	}
	return t, nil
}

func (r *ThreatRepository) FindByCVEID(ctx context.Context, cveID string) (*threat.Threat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.byID {
		if t.CVEID() == cveID {
			return t, nil
		}
	}
	return nil, errors.New("threat not found")
}

func (r *ThreatRepository) FindByFeedSourceURLTitle(ctx context.Context, feedID uuid.UUID, sourceURL, title string) (*threat.Threat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.byID {
		if t.FeedID() == feedID && t.SourceURL() == sourceURL && t.Title() == title {
			return t, nil
		}
	}
	return nil, errors.New("threat not found")
}

func (r *ThreatRepository) FindByStatus(ctx context.Context, status threat.Status, offset, limit int) ([]*threat.Threat, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*threat.Threat
	for _, t := range r.byID {
		if t.Status() == status {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CollectedAt().After(matched[j].CollectedAt()) })

	total := len(matched)
	if offset >= total {
		return []*threat.Threat{}, total, nil
	}
	end := offset + limit
	if end > total || limit <= 0 {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *ThreatRepository) FindIngestedBetween(ctx context.Context, from, to time.Time) ([]*threat.Threat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*threat.Threat
	for _, t := range r.byID {
		c := t.CollectedAt()
		if (c.Equal(from) || c.After(from)) && (c.Equal(to) || c.Before(to)) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CollectedAt().Before(out[j].CollectedAt()) })
	return out, nil
}
