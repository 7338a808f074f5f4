// Package audit contains the immutable audit trail entity. No code path
// may update or delete a persisted AuditEntry.
package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Verb is the closed set of audited actions.
type Verb string

const (
	VerbCreate Verb = "CREATE"
	VerbUpdate Verb = "UPDATE"
	VerbDelete Verb = "DELETE"
	VerbImport Verb = "IMPORT"
	VerbView   Verb = "VIEW"
	VerbToggle Verb = "TOGGLE"
	VerbExport Verb = "EXPORT"
	VerbLogin  Verb = "LOGIN"
	VerbLogout Verb = "LOGOUT"
)

func (v Verb) Valid() bool {
	switch v {
	case VerbCreate, VerbUpdate, VerbDelete, VerbImport, VerbView, VerbToggle, VerbExport, VerbLogin, VerbLogout:
		return true
	}
	return false
}

// Entry is one immutable audit record.
type Entry struct {
	ID           uuid.UUID
	SubjectID    string
	Verb         Verb
	ResourceKind string
	ResourceID   string
	Details      map[string]any
	OriginIP     string
	UserAgent    string
	CreatedAt    time.Time
}

var ErrInvalidVerb = errors.New("audit verb must be one of the closed audit verb set")

// New constructs an Entry, validating the verb against the closed set.
// Entry carries no mutation methods by design — it is write-once.
func New(subjectID string, verb Verb, resourceKind, resourceID string, details map[string]any, originIP, userAgent string) (Entry, error) {
	if !verb.Valid() {
		return Entry{}, ErrInvalidVerb
	}
	return Entry{
		ID:           uuid.New(),
		SubjectID:    subjectID,
		Verb:         verb,
		ResourceKind: resourceKind,
		ResourceID:   resourceID,
		Details:      details,
		OriginIP:     originIP,
		UserAgent:    userAgent,
		CreatedAt:    time.Now(),
	}, nil
}
