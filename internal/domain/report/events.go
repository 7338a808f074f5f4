package report

import (
	"time"

	"github.com/google/uuid"
)

// GeneratedEvent is raised once a report artefact has been rendered and
// persisted. Subscribed to by the WeeklyReport notification rule.
type GeneratedEvent struct {
	ReportID    uuid.UUID
	Kind        Kind
	Title       string
	GeneratedAt time.Time
}

func (e GeneratedEvent) EventName() string     { return "report.generated" }
func (e GeneratedEvent) OccurredAt() time.Time { return e.GeneratedAt }

// TicketStatusUpdatedEvent is raised on every ticket lifecycle transition.
type TicketStatusUpdatedEvent struct {
	ReportID  uuid.UUID
	OldStatus TicketStatus
	NewStatus TicketStatus
	UpdatedAt time.Time
}

func (e TicketStatusUpdatedEvent) EventName() string     { return "report.ticket_status_updated" }
func (e TicketStatusUpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }
