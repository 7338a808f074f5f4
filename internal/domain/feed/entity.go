// Package feed contains the domain logic for configured external threat
// intelligence sources. This follows Domain-Driven Design principles with
// rich domain models.
package feed

import (
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/google/uuid"
)

// Feed is a configured external source owned by configuration. It is
// created by an operator and mutated only by operator command and by the
// scheduler updating last-run metadata.
type Feed struct {
	id       uuid.UUID
	name     string
	priority Priority
	enabled  bool
	cadence  Cadence

	// credentialBlob holds opaque authentication material (API keys,
	// bearer tokens) as supplied by the operator; neither the aggregate nor
	// the persistence adapters encrypt it. It is never logged and never
	// surfaced through String()/GoString().
	credentialBlob []byte

	lastRunAt      *time.Time
	lastRunStatus  *CollectionStatus
	lastRunError   string

	createdAt time.Time
	updatedAt time.Time

	shared.AggregateRoot
}

// New creates a new Feed with validation, raising a CreatedEvent.
func New(name string, priority Priority, cadence Cadence, credentialBlob []byte) (*Feed, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if !cadence.Valid() {
		return nil, ErrInvalidCadence
	}

	now := time.Now()
	f := &Feed{
		id:             uuid.New(),
		name:           name,
		priority:       priority,
		enabled:        true,
		cadence:        cadence,
		credentialBlob: credentialBlob,
		createdAt:      now,
		updatedAt:      now,
	}

	f.AddEvent(CreatedEvent{
		FeedID:    f.id,
		Name:      f.name,
		Priority:  f.priority,
		Cadence:   f.cadence,
		CreatedAt: now,
	})

	return f, nil
}

// Rehydrate reconstructs a Feed from persisted state without raising events.
// Used exclusively by repository adapters.
func Rehydrate(
	id uuid.UUID,
	name string,
	priority Priority,
	enabled bool,
	cadence Cadence,
	credentialBlob []byte,
	lastRunAt *time.Time,
	lastRunStatus *CollectionStatus,
	lastRunError string,
	createdAt, updatedAt time.Time,
) *Feed {
	return &Feed{
		id:             id,
		name:           name,
		priority:       priority,
		enabled:        enabled,
		cadence:        cadence,
		credentialBlob: credentialBlob,
		lastRunAt:      lastRunAt,
		lastRunStatus:  lastRunStatus,
		lastRunError:   lastRunError,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (f *Feed) ID() uuid.UUID                   { return f.id }
func (f *Feed) Name() string                    { return f.name }
func (f *Feed) Priority() Priority              { return f.priority }
func (f *Feed) Enabled() bool                   { return f.enabled }
func (f *Feed) Cadence() Cadence                { return f.cadence }
func (f *Feed) CredentialBlob() []byte          { return f.credentialBlob }
func (f *Feed) LastRunAt() *time.Time           { return f.lastRunAt }
func (f *Feed) LastRunStatus() *CollectionStatus { return f.lastRunStatus }
func (f *Feed) LastRunError() string            { return f.lastRunError }
func (f *Feed) CreatedAt() time.Time            { return f.createdAt }
func (f *Feed) UpdatedAt() time.Time            { return f.updatedAt }

// Update mutates operator-controlled attributes. Only non-nil/non-empty
// arguments are applied; at least one change raises an UpdatedEvent.
func (f *Feed) Update(name *string, priority *Priority, cadence *Cadence, credentialBlob []byte) error {
	var updated []string

	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return ErrNameRequired
		}
		f.name = *name
		updated = append(updated, "name")
	}
	if priority != nil {
		if !priority.Valid() {
			return ErrInvalidPriority
		}
		f.priority = *priority
		updated = append(updated, "priority")
	}
	if cadence != nil {
		if !cadence.Valid() {
			return ErrInvalidCadence
		}
		f.cadence = *cadence
		updated = append(updated, "cadence")
	}
	if credentialBlob != nil {
		f.credentialBlob = credentialBlob
		updated = append(updated, "credential_blob")
	}

	if len(updated) > 0 {
		f.updatedAt = time.Now()
		f.AddEvent(UpdatedEvent{
			FeedID:        f.id,
			Name:          f.name,
			UpdatedFields: updated,
			UpdatedAt:     f.updatedAt,
		})
	}

	return nil
}

// Toggle flips the enabled flag.
func (f *Feed) Toggle() {
	f.enabled = !f.enabled
	f.updatedAt = time.Now()
	f.AddEvent(UpdatedEvent{
		FeedID:        f.id,
		Name:          f.name,
		UpdatedFields: []string{"enabled"},
		UpdatedAt:     f.updatedAt,
	})
}

// RecordCollectionOutcome is invoked by the collection scheduler (C5) after
// every collection attempt, regardless of success. elapsed is the wall
// time the run took, carried on the event for the metrics subscriber.
func (f *Feed) RecordCollectionOutcome(status CollectionStatus, recordCount int, errMessage string, elapsed time.Duration) error {
	if !status.Valid() {
		return ErrInvalidCollectionState
	}

	now := time.Now()
	f.lastRunAt = &now
	f.lastRunStatus = &status
	f.lastRunError = errMessage
	f.updatedAt = now

	f.AddEvent(CollectionStatusUpdatedEvent{
		FeedID:       f.id,
		Name:         f.name,
		Status:       status,
		RecordCount:  recordCount,
		ErrorMessage: errMessage,
		Elapsed:      elapsed,
		OccurredAtTS: now,
	})

	return nil
}

// IsCISAKEV reports whether this feed's name marks it as the CISA Known
// Exploited Vulnerabilities catalogue, used by the risk scorer's kev_w term.
func (f *Feed) IsCISAKEV() bool {
	lower := strings.ToLower(f.name)
	return strings.Contains(lower, "cisa") || strings.Contains(lower, "kev")
}

// String deliberately omits credentialBlob.
func (f *Feed) String() string {
	return "Feed(id=" + f.id.String() + ", name=" + f.name + ")"
}
