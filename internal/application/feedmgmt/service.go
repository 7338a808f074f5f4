// Package feedmgmt implements the inbound FeedService port: operator
// CRUD over configured feeds, gated through the authorization layer and
// backed by the scheduler for on-demand collection runs.
package feedmgmt

import (
	"context"

	appaudit "github.com/aetim/core/internal/application/audit"
	"github.com/aetim/core/internal/application/ingestion"
	domainaudit "github.com/aetim/core/internal/domain/audit"
	"github.com/aetim/core/internal/domain/feed"
	"github.com/aetim/core/internal/domain/shared"
	"github.com/aetim/core/internal/ports/inbound"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

const resourceKind = "feed"

// Service implements inbound.FeedService.
type Service struct {
	feeds     outbound.FeedRepository
	gate      *appaudit.Gate
	sink      *appaudit.Sink
	scheduler *ingestion.Scheduler
}

func NewService(feeds outbound.FeedRepository, gate *appaudit.Gate, sink *appaudit.Sink, scheduler *ingestion.Scheduler) *Service {
	return &Service{feeds: feeds, gate: gate, sink: sink, scheduler: scheduler}
}

var _ inbound.FeedService = (*Service)(nil)

func (s *Service) CreateFeed(ctx context.Context, cmd inbound.CreateFeedCommand) (*feed.Feed, error) {
	if err := s.gate.Require(ctx, cmd.Principal, cmd.Origin, "feed:write", resourceKind, ""); err != nil {
		return nil, err
	}

	f, err := feed.New(cmd.Name, cmd.Priority, cmd.Cadence, cmd.CredentialBlob)
	if err != nil {
		return nil, err
	}
	if err := s.feeds.Create(ctx, f); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, cmd.Principal, cmd.Origin, domainaudit.VerbCreate, resourceKind, f.ID().String(), map[string]any{"name": f.Name()})
	return f, nil
}

func (s *Service) UpdateFeed(ctx context.Context, cmd inbound.UpdateFeedCommand) (*feed.Feed, error) {
	if err := s.gate.Require(ctx, cmd.Principal, cmd.Origin, "feed:write", resourceKind, cmd.FeedID.String()); err != nil {
		return nil, err
	}

	f, err := s.feeds.FindByID(ctx, cmd.FeedID)
	if err != nil {
		return nil, err
	}
	if err := f.Update(cmd.Name, cmd.Priority, cmd.Cadence, cmd.CredentialBlob); err != nil {
		return nil, err
	}
	if err := s.feeds.Update(ctx, f); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, cmd.Principal, cmd.Origin, domainaudit.VerbUpdate, resourceKind, f.ID().String(), nil)
	return f, nil
}

func (s *Service) ToggleFeed(ctx context.Context, feedID uuid.UUID, principal shared.Principal, origin shared.Origin) (*feed.Feed, error) {
	if err := s.gate.Require(ctx, principal, origin, "feed:toggle", resourceKind, feedID.String()); err != nil {
		return nil, err
	}

	f, err := s.feeds.FindByID(ctx, feedID)
	if err != nil {
		return nil, err
	}
	f.Toggle()
	if err := s.feeds.Update(ctx, f); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, principal, origin, domainaudit.VerbToggle, resourceKind, f.ID().String(), map[string]any{"enabled": f.Enabled()})
	return f, nil
}

func (s *Service) GetFeed(ctx context.Context, feedID uuid.UUID) (*feed.Feed, error) {
	return s.feeds.FindByID(ctx, feedID)
}

func (s *Service) ListFeeds(ctx context.Context) ([]*feed.Feed, error) {
	return s.feeds.FindAll(ctx)
}

func (s *Service) RunNow(ctx context.Context, feedID uuid.UUID, principal shared.Principal, origin shared.Origin) error {
	if err := s.gate.Require(ctx, principal, origin, "feed:run", resourceKind, feedID.String()); err != nil {
		return err
	}

	result := s.scheduler.RunNow(ctx, feedID)

	details := map[string]any{"threats_collected": result.ThreatsCollected, "success": result.Success}
	if len(result.Errors) > 0 {
		details["errors"] = result.Errors
	}
	s.sink.Record(ctx, principal, origin, domainaudit.VerbImport, resourceKind, feedID.String(), details)
	return nil
}
