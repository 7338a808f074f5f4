// Package notification contains the domain logic for notification
// subscriptions (Rule) and their sent instances (Notification).
package notification

import (
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/google/uuid"
)

// Rule is a subscription: a kind, an enabled flag, a score threshold (for
// threshold-triggered kinds), an optional send-time (for digests), and a
// recipient list.
type Rule struct {
	id             uuid.UUID
	kind           RuleKind
	enabled        bool
	scoreThreshold float64
	sendTime       string // "HH:MM", only meaningful for HighRiskDailyDigest
	recipients     []string

	createdAt time.Time
	updatedAt time.Time

	shared.AggregateRoot
}

func NewRule(kind RuleKind, scoreThreshold float64, sendTime string, recipients []string) (*Rule, error) {
	if !kind.Valid() {
		return nil, ErrInvalidRuleKind
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if scoreThreshold < 0.0 || scoreThreshold > 10.0 {
		return nil, ErrInvalidScoreThreshold
	}

	now := time.Now()
	return &Rule{
		id:             uuid.New(),
		kind:           kind,
		enabled:        true,
		scoreThreshold: scoreThreshold,
		sendTime:       sendTime,
		recipients:     recipients,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

func RehydrateRule(id uuid.UUID, kind RuleKind, enabled bool, scoreThreshold float64, sendTime string, recipients []string, createdAt, updatedAt time.Time) *Rule {
	return &Rule{
		id: id, kind: kind, enabled: enabled, scoreThreshold: scoreThreshold,
		sendTime: sendTime, recipients: recipients, createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (r *Rule) ID() uuid.UUID              { return r.id }
func (r *Rule) Kind() RuleKind             { return r.kind }
func (r *Rule) Enabled() bool              { return r.enabled }
func (r *Rule) ScoreThreshold() float64    { return r.scoreThreshold }
func (r *Rule) SendTime() string           { return r.sendTime }
func (r *Rule) Recipients() []string       { return r.recipients }
func (r *Rule) CreatedAt() time.Time       { return r.createdAt }
func (r *Rule) UpdatedAt() time.Time       { return r.updatedAt }

// Update mutates the rule's tunable fields, raising a RuleUpdatedEvent
// when anything actually changes.
func (r *Rule) Update(enabled *bool, scoreThreshold *float64, sendTime *string, recipients []string) error {
	var updated []string

	if enabled != nil {
		r.enabled = *enabled
		updated = append(updated, "enabled")
	}
	if scoreThreshold != nil {
		if *scoreThreshold < 0.0 || *scoreThreshold > 10.0 {
			return ErrInvalidScoreThreshold
		}
		r.scoreThreshold = *scoreThreshold
		updated = append(updated, "score_threshold")
	}
	if sendTime != nil {
		r.sendTime = *sendTime
		updated = append(updated, "send_time")
	}
	if recipients != nil {
		if len(recipients) == 0 {
			return ErrNoRecipients
		}
		r.recipients = recipients
		updated = append(updated, "recipients")
	}

	if len(updated) > 0 {
		r.updatedAt = time.Now()
		r.AddEvent(RuleUpdatedEvent{
			RuleID:        r.id,
			Kind:          r.kind,
			UpdatedFields: updated,
			UpdatedAt:     r.updatedAt,
		})
	}

	return nil
}

// Notification is one sent (or attempted) instance of a Rule firing.
type Notification struct {
	id             uuid.UUID
	ruleID         uuid.UUID
	deliveredAt    time.Time
	status         DeliveryStatus
	errorText      string
}

func NewNotification(ruleID uuid.UUID, status DeliveryStatus, errorText string) (*Notification, error) {
	if ruleID == uuid.Nil {
		return nil, ErrRuleIDRequired
	}
	return &Notification{
		id:          uuid.New(),
		ruleID:      ruleID,
		deliveredAt: time.Now(),
		status:      status,
		errorText:   errorText,
	}, nil
}

func RehydrateNotification(id, ruleID uuid.UUID, deliveredAt time.Time, status DeliveryStatus, errorText string) *Notification {
	return &Notification{id: id, ruleID: ruleID, deliveredAt: deliveredAt, status: status, errorText: errorText}
}

func (n *Notification) ID() uuid.UUID             { return n.id }
func (n *Notification) RuleID() uuid.UUID         { return n.ruleID }
func (n *Notification) DeliveredAt() time.Time    { return n.deliveredAt }
func (n *Notification) Status() DeliveryStatus    { return n.status }
func (n *Notification) ErrorText() string         { return n.errorText }
