// Package pir contains the domain logic for Priority-of-Interest Rules,
// which flag threats an analyst has pre-registered interest in.
package pir

import (
	"strconv"
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/google/uuid"
)

// PIR is a Priority-of-Interest Rule. Disabled PIRs must never influence
// the threat analysis pipeline.
type PIR struct {
	id            uuid.UUID
	name          string
	description   string
	priority      Priority
	conditionType ConditionType
	conditionValue string
	enabled       bool

	createdAt time.Time
	updatedAt time.Time

	shared.AggregateRoot
}

func New(name, description string, priority Priority, conditionType ConditionType, conditionValue string) (*PIR, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(description) == "" {
		return nil, ErrDescriptionRequired
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if !conditionType.Valid() {
		return nil, ErrInvalidConditionType
	}
	if strings.TrimSpace(conditionValue) == "" {
		return nil, ErrConditionValueRequired
	}

	now := time.Now()
	p := &PIR{
		id:             uuid.New(),
		name:           name,
		description:    description,
		priority:       priority,
		conditionType:  conditionType,
		conditionValue: conditionValue,
		enabled:        true,
		createdAt:      now,
		updatedAt:      now,
	}

	p.AddEvent(CreatedEvent{
		PIRID:         p.id,
		Name:          name,
		Priority:      priority,
		ConditionType: conditionType,
		CreatedAt:     now,
	})

	return p, nil
}

func Rehydrate(id uuid.UUID, name, description string, priority Priority, conditionType ConditionType, conditionValue string, enabled bool, createdAt, updatedAt time.Time) *PIR {
	return &PIR{
		id: id, name: name, description: description, priority: priority,
		conditionType: conditionType, conditionValue: conditionValue, enabled: enabled,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (p *PIR) ID() uuid.UUID                    { return p.id }
func (p *PIR) Name() string                     { return p.name }
func (p *PIR) Description() string              { return p.description }
func (p *PIR) Priority() Priority               { return p.priority }
func (p *PIR) ConditionType() ConditionType     { return p.conditionType }
func (p *PIR) ConditionValue() string           { return p.conditionValue }
func (p *PIR) Enabled() bool                    { return p.enabled }
func (p *PIR) CreatedAt() time.Time             { return p.createdAt }
func (p *PIR) UpdatedAt() time.Time             { return p.updatedAt }

func (p *PIR) Toggle() {
	p.enabled = !p.enabled
	p.updatedAt = time.Now()
	p.AddEvent(ToggledEvent{PIRID: p.id, Name: p.name, Enabled: p.enabled, ToggledAt: p.updatedAt})
}

// Criteria is the subset of threat data a PIR predicate evaluates against.
type Criteria struct {
	CVE         string
	ProductName string
	ThreatType  string
	CVSSScore   float64
}

// Matches evaluates the PIR's predicate against the given criteria.
// Disabled PIRs always return false, silently, never raising or warning.
func (p *PIR) Matches(c Criteria) bool {
	if !p.enabled {
		return false
	}

	switch p.conditionType {
	case ConditionProductName:
		return strings.Contains(strings.ToLower(c.ProductName), strings.ToLower(p.conditionValue))
	case ConditionCVEID:
		if strings.HasSuffix(p.conditionValue, "-") {
			return strings.HasPrefix(c.CVE, p.conditionValue)
		}
		return c.CVE == p.conditionValue
	case ConditionThreatType:
		return strings.Contains(strings.ToLower(c.ThreatType), strings.ToLower(p.conditionValue))
	case ConditionCVSSScore:
		return matchesCVSSComparator(p.conditionValue, c.CVSSScore)
	}

	return false
}

// matchesCVSSComparator parses a leading >/< comparator, falling back to a
// bare numeric value interpreted as >=, per the PIR matcher's contract.
func matchesCVSSComparator(condition string, score float64) bool {
	condition = strings.TrimSpace(condition)
	switch {
	case strings.HasPrefix(condition, ">"):
		threshold, err := strconv.ParseFloat(strings.TrimSpace(condition[1:]), 64)
		if err != nil {
			return false
		}
		return score > threshold
	case strings.HasPrefix(condition, "<"):
		threshold, err := strconv.ParseFloat(strings.TrimSpace(condition[1:]), 64)
		if err != nil {
			return false
		}
		return score < threshold
	default:
		threshold, err := strconv.ParseFloat(condition, 64)
		if err != nil {
			return false
		}
		return score >= threshold
	}
}

// IsHighPriority reports whether this enabled PIR is High priority, the
// only tier that contributes the pir_w term in the risk scorer (C7).
func (p *PIR) IsHighPriority() bool {
	return p.enabled && p.priority == PriorityHigh
}
