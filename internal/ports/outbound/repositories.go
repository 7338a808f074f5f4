// Package outbound defines the interfaces for outbound ports (secondary/
// driven adapters). These are the interfaces the application layer uses to
// reach persistence, caching, and collaborating external systems.
package outbound

import (
	"context"
	"time"

	"github.com/aetim/core/internal/domain/asset"
	"github.com/aetim/core/internal/domain/association"
	"github.com/aetim/core/internal/domain/audit"
	"github.com/aetim/core/internal/domain/feed"
	"github.com/aetim/core/internal/domain/notification"
	"github.com/aetim/core/internal/domain/pir"
	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/google/uuid"
)

// FeedRepository persists configured external sources.
type FeedRepository interface {
	Create(ctx context.Context, f *feed.Feed) error
	Update(ctx context.Context, f *feed.Feed) error
	FindByID(ctx context.Context, id uuid.UUID) (*feed.Feed, error)
	FindByName(ctx context.Context, name string) (*feed.Feed, error)
	FindEnabled(ctx context.Context) ([]*feed.Feed, error)
	FindAll(ctx context.Context) ([]*feed.Feed, error)
}

// ThreatRepository persists ingested vulnerability advisories.
type ThreatRepository interface {
	Create(ctx context.Context, t *threat.Threat) error
	Update(ctx context.Context, t *threat.Threat) error
	FindByID(ctx context.Context, id uuid.UUID) (*threat.Threat, error)
	FindByCVEID(ctx context.Context, cveID string) (*threat.Threat, error)
	FindByFeedSourceURLTitle(ctx context.Context, feedID uuid.UUID, sourceURL, title string) (*threat.Threat, error)
	FindByStatus(ctx context.Context, status threat.Status, offset, limit int) ([]*threat.Threat, int, error)
	FindIngestedBetween(ctx context.Context, from, to time.Time) ([]*threat.Threat, error)
}

// AssetRepository is a read-through cache in front of the asset-management
// collaborator; the core never writes to this store.
type AssetRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*asset.Asset, error)
	FindAll(ctx context.Context) ([]*asset.Asset, error)
}

// AssociationRepository persists (threat, asset) edges, globally unique
// keyed by the pair; re-computation upserts.
type AssociationRepository interface {
	Upsert(ctx context.Context, a *association.Association) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByThreatID(ctx context.Context, threatID uuid.UUID) ([]*association.Association, error)
	FindByAssetID(ctx context.Context, assetID uuid.UUID) ([]*association.Association, error)
	FindByThreatAndAsset(ctx context.Context, threatID, assetID uuid.UUID) (*association.Association, error)
}

// PIRRepository persists Priority-of-Interest Rules.
type PIRRepository interface {
	Create(ctx context.Context, p *pir.PIR) error
	Update(ctx context.Context, p *pir.PIR) error
	FindByID(ctx context.Context, id uuid.UUID) (*pir.PIR, error)
	FindEnabled(ctx context.Context) ([]*pir.PIR, error)
	FindAll(ctx context.Context) ([]*pir.PIR, error)
}

// RiskAssessmentRepository persists risk scorings and their append-only
// history. History rows are never updated or deleted.
type RiskAssessmentRepository interface {
	Upsert(ctx context.Context, a *risk.Assessment) error
	FindByAssociationID(ctx context.Context, associationID uuid.UUID) (*risk.Assessment, error)
	FindByThreatID(ctx context.Context, threatID uuid.UUID) ([]*risk.Assessment, error)
	AppendHistory(ctx context.Context, entry risk.HistoryEntry) error
	FindHistoryByAssessmentID(ctx context.Context, assessmentID uuid.UUID) ([]risk.HistoryEntry, error)
}

// ReportRepository persists rendered artefacts (CISO digests and tickets)
// and their generation schedules.
type ReportRepository interface {
	Create(ctx context.Context, r *report.Report) error
	Update(ctx context.Context, r *report.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*report.Report, error)
	FindByKind(ctx context.Context, kind report.Kind, offset, limit int) ([]*report.Report, int, error)
	FindTicketsByStatus(ctx context.Context, status report.TicketStatus) ([]*report.Report, error)
}

// ScheduleRepository persists per-report/digest cron schedules.
type ScheduleRepository interface {
	Create(ctx context.Context, s *report.Schedule) error
	Update(ctx context.Context, s *report.Schedule) error
	FindByID(ctx context.Context, id uuid.UUID) (*report.Schedule, error)
	FindEnabled(ctx context.Context) ([]*report.Schedule, error)
}

// NotificationRuleRepository persists notification subscriptions.
type NotificationRuleRepository interface {
	Create(ctx context.Context, r *notification.Rule) error
	Update(ctx context.Context, r *notification.Rule) error
	FindByID(ctx context.Context, id uuid.UUID) (*notification.Rule, error)
	FindByKind(ctx context.Context, kind notification.RuleKind) ([]*notification.Rule, error)
	FindEnabled(ctx context.Context) ([]*notification.Rule, error)
}

// NotificationRepository persists sent (or attempted) notification
// instances.
type NotificationRepository interface {
	Create(ctx context.Context, n *notification.Notification) error
	FindByRuleID(ctx context.Context, ruleID uuid.UUID) ([]*notification.Notification, error)
}

// AuditRepository is append-only: no method here may update or delete a
// persisted entry.
type AuditRepository interface {
	Append(ctx context.Context, entry audit.Entry) error
	FindByResource(ctx context.Context, resourceKind, resourceID string) ([]audit.Entry, error)
	FindBySubject(ctx context.Context, subjectID string, offset, limit int) ([]audit.Entry, int, error)
}

// CacheRepository backs the extractor health cache and the failure
// tracker's cooldown windows.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
