package notification

import (
	"time"

	"github.com/google/uuid"
)

// RuleUpdatedEvent is raised whenever a notification rule's configuration
// changes.
type RuleUpdatedEvent struct {
	RuleID        uuid.UUID
	Kind          RuleKind
	UpdatedFields []string
	UpdatedAt     time.Time
}

func (e RuleUpdatedEvent) EventName() string     { return "notification.rule_updated" }
func (e RuleUpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }
