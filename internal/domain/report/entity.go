// Package report contains the domain logic for rendered artefacts (CISO
// digests and IT tickets) and their cron-driven generation schedules.
package report

import (
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/google/uuid"
)

// Report is a rendered artefact: either a periodic CISO digest or an IT
// ticket synthesised from a qualifying risk assessment.
type Report struct {
	id       uuid.UUID
	kind     Kind
	title    string
	path     string
	format   Format

	generatedAt  time.Time
	periodStart  *time.Time
	periodEnd    *time.Time
	aiSummary    string
	metadata     map[string]string

	ticketStatus   *TicketStatus
	ticketPriority *TicketPriority

	shared.AggregateRoot
}

// New creates a Report. ticketStatus/ticketPriority are only meaningful
// for KindItTicket and must be nil otherwise.
func New(kind Kind, title, path string, format Format, periodStart, periodEnd *time.Time, aiSummary string, metadata map[string]string) (*Report, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	if !format.Valid() {
		return nil, ErrInvalidFormat
	}

	r := &Report{
		id:          uuid.New(),
		kind:        kind,
		title:       title,
		path:        path,
		format:      format,
		generatedAt: time.Now(),
		periodStart: periodStart,
		periodEnd:   periodEnd,
		aiSummary:   aiSummary,
		metadata:    metadata,
	}

	if kind == KindItTicket {
		pending := TicketPending
		r.ticketStatus = &pending
	}

	r.AddEvent(GeneratedEvent{
		ReportID:    r.id,
		Kind:        kind,
		Title:       title,
		GeneratedAt: r.generatedAt,
	})

	return r, nil
}

// NewTicket synthesises an IT ticket from a qualifying risk assessment,
// deriving priority from the final risk score per the emitter's contract.
func NewTicket(title, path string, format Format, finalScore float64, metadata map[string]string) (*Report, error) {
	r, err := New(KindItTicket, title, path, format, nil, nil, "", metadata)
	if err != nil {
		return nil, err
	}
	priority := TicketPriorityFromScore(finalScore)
	r.ticketPriority = &priority
	return r, nil
}

func Rehydrate(
	id uuid.UUID, kind Kind, title, path string, format Format,
	generatedAt time.Time, periodStart, periodEnd *time.Time,
	aiSummary string, metadata map[string]string,
	ticketStatus *TicketStatus, ticketPriority *TicketPriority,
) *Report {
	return &Report{
		id: id, kind: kind, title: title, path: path, format: format,
		generatedAt: generatedAt, periodStart: periodStart, periodEnd: periodEnd,
		aiSummary: aiSummary, metadata: metadata,
		ticketStatus: ticketStatus, ticketPriority: ticketPriority,
	}
}

func (r *Report) ID() uuid.UUID                      { return r.id }
func (r *Report) Kind() Kind                          { return r.kind }
func (r *Report) Title() string                       { return r.title }
func (r *Report) Path() string                        { return r.path }
func (r *Report) Format() Format                      { return r.format }
func (r *Report) GeneratedAt() time.Time              { return r.generatedAt }
func (r *Report) PeriodStart() *time.Time             { return r.periodStart }
func (r *Report) PeriodEnd() *time.Time               { return r.periodEnd }
func (r *Report) AISummary() string                   { return r.aiSummary }
func (r *Report) Metadata() map[string]string         { return r.metadata }
func (r *Report) TicketStatus() *TicketStatus         { return r.ticketStatus }
func (r *Report) TicketPriority() *TicketPriority     { return r.ticketPriority }

// TransitionTicket moves an ItTicket-kind report's status, enforcing the
// ticket state machine.
func (r *Report) TransitionTicket(newStatus TicketStatus) error {
	if r.kind != KindItTicket || r.ticketStatus == nil {
		return ErrTicketStatusNotApplicable
	}
	if !newStatus.Valid() || !r.ticketStatus.CanTransitionTo(newStatus) {
		return ErrInvalidTicketTransition
	}

	old := *r.ticketStatus
	r.ticketStatus = &newStatus
	now := time.Now()

	r.AddEvent(TicketStatusUpdatedEvent{
		ReportID:  r.id,
		OldStatus: old,
		NewStatus: newStatus,
		UpdatedAt: now,
	})

	return nil
}

// Schedule is the first-class cron entity driving per-report/digest
// generation, distinct from a Feed's own collection cadence.
type Schedule struct {
	id             uuid.UUID
	name           string
	cronExpression string
	timezone       string
	enabled        bool

	createdAt time.Time
	updatedAt time.Time
}

func NewSchedule(name, cronExpression, timezone string) (*Schedule, error) {
	if strings.TrimSpace(cronExpression) == "" {
		return nil, ErrInvalidCronExpression
	}
	if strings.TrimSpace(timezone) == "" {
		return nil, ErrInvalidTimezone
	}

	now := time.Now()
	return &Schedule{
		id:             uuid.New(),
		name:           name,
		cronExpression: cronExpression,
		timezone:       timezone,
		enabled:        true,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

func RehydrateSchedule(id uuid.UUID, name, cronExpression, timezone string, enabled bool, createdAt, updatedAt time.Time) *Schedule {
	return &Schedule{
		id: id, name: name, cronExpression: cronExpression, timezone: timezone,
		enabled: enabled, createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (s *Schedule) ID() uuid.UUID             { return s.id }
func (s *Schedule) Name() string              { return s.name }
func (s *Schedule) CronExpression() string    { return s.cronExpression }
func (s *Schedule) Timezone() string          { return s.timezone }
func (s *Schedule) Enabled() bool             { return s.enabled }
func (s *Schedule) CreatedAt() time.Time      { return s.createdAt }
func (s *Schedule) UpdatedAt() time.Time      { return s.updatedAt }

func (s *Schedule) Toggle() {
	s.enabled = !s.enabled
	s.updatedAt = time.Now()
}
