package pir

import (
	"time"

	"github.com/google/uuid"
)

type CreatedEvent struct {
	PIRID         uuid.UUID
	Name          string
	Priority      Priority
	ConditionType ConditionType
	CreatedAt     time.Time
}

func (e CreatedEvent) EventName() string     { return "pir.created" }
func (e CreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

type UpdatedEvent struct {
	PIRID         uuid.UUID
	Name          string
	UpdatedFields []string
	UpdatedAt     time.Time
}

func (e UpdatedEvent) EventName() string     { return "pir.updated" }
func (e UpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }

type ToggledEvent struct {
	PIRID     uuid.UUID
	Name      string
	Enabled   bool
	ToggledAt time.Time
}

func (e ToggledEvent) EventName() string     { return "pir.toggled" }
func (e ToggledEvent) OccurredAt() time.Time { return e.ToggledAt }
