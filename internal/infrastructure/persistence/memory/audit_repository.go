package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aetim/core/internal/domain/audit"
	"github.com/aetim/core/internal/ports/outbound"
)

// AuditRepository is an in-memory outbound.AuditRepository for use in
// tests. Append-only, matching the production contract.
type AuditRepository struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewAuditRepository() outbound.AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Append(ctx context.Context, entry audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *AuditRepository) FindByResource(ctx context.Context, resourceKind, resourceID string) ([]audit.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []audit.Entry
	for _, e := range r.entries {
		if e.ResourceKind == resourceKind && e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *AuditRepository) FindBySubject(ctx context.Context, subjectID string, offset, limit int) ([]audit.Entry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []audit.Entry
	for _, e := range r.entries {
		if e.SubjectID == subjectID {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset >= total {
		return []audit.Entry{}, total, nil
	}
	end := offset + limit
	if end > total || limit <= 0 {
		end = total
	}
	return matched[offset:end], total, nil
}
