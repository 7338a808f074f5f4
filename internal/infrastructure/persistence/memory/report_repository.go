package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

// ReportRepository is an in-memory outbound.ReportRepository for use in
// tests.
type ReportRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*report.Report
}

func NewReportRepository() outbound.ReportRepository {
	return &ReportRepository{byID: make(map[uuid.UUID]*report.Report)}
}

func (r *ReportRepository) Create(ctx context.Context, rep *report.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rep.ID()] = rep
	return nil
}

func (r *ReportRepository) Update(ctx context.Context, rep *report.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[rep.ID()]; !ok {
		return errors.New("report not found")
	}
	r.byID[rep.ID()] = rep
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.byID[id]
	if !ok {
		return nil, errors.New("report not found")
	}
	return rep, nil
}

func (r *ReportRepository) FindByKind(ctx context.Context, kind report.Kind, offset, limit int) ([]*report.Report, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*report.Report
	for _, rep := range r.byID {
		if rep.Kind() == kind {
			matched = append(matched, rep)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].GeneratedAt().After(matched[j].GeneratedAt()) })

	total := len(matched)
	if offset >= total {
		return []*report.Report{}, total, nil
	}
	end := offset + limit
	if end > total || limit <= 0 {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *ReportRepository) FindTicketsByStatus(ctx context.Context, status report.TicketStatus) ([]*report.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*report.Report
	for _, rep := range r.byID {
		if rep.Kind() == report.KindItTicket && rep.TicketStatus() != nil && *rep.TicketStatus() == status {
			out = append(out, rep)
		}
	}
	return out, nil
}

// ScheduleRepository is an in-memory outbound.ScheduleRepository for use
// in tests.
type ScheduleRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*report.Schedule
}

func NewScheduleRepository() outbound.ScheduleRepository {
	return &ScheduleRepository{byID: make(map[uuid.UUID]*report.Schedule)}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *report.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID()] = s
	return nil
}

func (r *ScheduleRepository) Update(ctx context.Context, s *report.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID()]; !ok {
		return errors.New("schedule not found")
	}
	r.byID[s.ID()] = s
	return nil
}

func (r *ScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*report.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, errors.New("schedule not found")
	}
	return s, nil
}

func (r *ScheduleRepository) FindEnabled(ctx context.Context) ([]*report.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*report.Schedule
	for _, s := range r.byID {
		if s.Enabled() {
			out = append(out, s)
		}
	}
	return out, nil
}
