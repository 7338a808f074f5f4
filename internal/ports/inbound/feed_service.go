// Package inbound defines the interfaces for inbound ports (primary/
// driving adapters): the use cases the application exposes to schedulers,
// the minimal HTTP surface, and any future CLI.
package inbound

import (
	"context"

	"github.com/aetim/core/internal/domain/feed"
	"github.com/aetim/core/internal/domain/shared"
	"github.com/google/uuid"
)

// FeedService is the primary port for operator-driven feed configuration.
type FeedService interface {
	CreateFeed(ctx context.Context, cmd CreateFeedCommand) (*feed.Feed, error)
	UpdateFeed(ctx context.Context, cmd UpdateFeedCommand) (*feed.Feed, error)
	ToggleFeed(ctx context.Context, feedID uuid.UUID, principal shared.Principal, origin shared.Origin) (*feed.Feed, error)
	GetFeed(ctx context.Context, feedID uuid.UUID) (*feed.Feed, error)
	ListFeeds(ctx context.Context) ([]*feed.Feed, error)
	RunNow(ctx context.Context, feedID uuid.UUID, principal shared.Principal, origin shared.Origin) error
}

// CreateFeedCommand creates a new configured source.
type CreateFeedCommand struct {
	Name           string
	Priority       feed.Priority
	Cadence        feed.Cadence
	CredentialBlob []byte
	Principal      shared.Principal
	Origin         shared.Origin
}

// UpdateFeedCommand patches a subset of a feed's mutable fields.
type UpdateFeedCommand struct {
	FeedID         uuid.UUID
	Name           *string
	Priority       *feed.Priority
	Cadence        *feed.Cadence
	CredentialBlob []byte
	Principal      shared.Principal
	Origin         shared.Origin
}
