package audit

import (
	"context"

	"github.com/aetim/core/internal/domain/audit"
	"github.com/aetim/core/internal/domain/shared"
	"github.com/aetim/core/internal/ports/outbound"
	"go.uber.org/zap"
)

// Sink is the single write path onto the audit trail: every mutation a
// command performs, successful or not, is recorded here. No method on
// Sink ever updates or deletes a prior entry.
type Sink struct {
	repo   outbound.AuditRepository
	logger *zap.Logger
}

func NewSink(repo outbound.AuditRepository, logger *zap.Logger) *Sink {
	return &Sink{repo: repo, logger: logger.Named("audit")}
}

// Record appends one audit entry for a completed action.
func (s *Sink) Record(ctx context.Context, principal shared.Principal, origin shared.Origin, verb audit.Verb, resourceKind, resourceID string, details map[string]any) error {
	entry, err := audit.New(principal.SubjectID, verb, resourceKind, resourceID, details, origin.IP, origin.UserAgent)
	if err != nil {
		return err
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("failed to record audit entry",
			zap.Error(err),
			zap.String("subject_id", principal.SubjectID),
			zap.String("verb", string(verb)),
			zap.String("resource_kind", resourceKind),
			zap.String("resource_id", resourceID),
		)
		return err
	}

	s.logger.Info("audit entry recorded",
		zap.String("audit_id", entry.ID.String()),
		zap.String("subject_id", principal.SubjectID),
		zap.String("verb", string(verb)),
		zap.String("resource_kind", resourceKind),
		zap.String("resource_id", resourceID),
	)
	return nil
}

// ByResource returns the audit trail for one resource instance, newest
// first as the repository orders it.
func (s *Sink) ByResource(ctx context.Context, resourceKind, resourceID string) ([]audit.Entry, error) {
	return s.repo.FindByResource(ctx, resourceKind, resourceID)
}

// BySubject returns a page of the audit trail for one subject along
// with the total matching count, for pagination.
func (s *Sink) BySubject(ctx context.Context, subjectID string, offset, limit int) ([]audit.Entry, int, error) {
	return s.repo.FindBySubject(ctx, subjectID, offset, limit)
}
