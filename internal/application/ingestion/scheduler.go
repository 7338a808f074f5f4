package ingestion

import (
	"context"
	"sync"

	"github.com/aetim/core/internal/domain/feed"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cadenceExpressions maps each Cadence to the cron schedule the scheduler
// registers it under.
var cadenceExpressions = map[feed.Cadence]string{
	feed.CadenceHourly:  "0 * * * *",
	feed.CadenceDaily:   "0 2 * * *",
	feed.CadenceWeekly:  "0 3 * * 1",
	feed.CadenceMonthly: "0 4 1 * *",
}

const maxConcurrentCollections = 3

// Scheduler runs feed collection on a per-cadence cron schedule, bounding
// total in-flight collections with a semaphore and guarding each feed
// against re-entrant runs with a per-feed mutex.
type Scheduler struct {
	feeds      outbound.FeedRepository
	collector  *CollectionService
	cron       *cron.Cron
	semaphore  chan struct{}
	feedLocks  sync.Map // uuid.UUID -> *sync.Mutex
	logger     *zap.Logger
}

func NewScheduler(feeds outbound.FeedRepository, collector *CollectionService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		feeds:     feeds,
		collector: collector,
		cron:      cron.New(),
		semaphore: make(chan struct{}, maxConcurrentCollections),
		logger:    logger.Named("scheduler"),
	}
}

// Start registers one cron entry per cadence and begins the cron loop.
// Each firing collects every enabled feed of that cadence concurrently,
// bounded by the global semaphore.
func (s *Scheduler) Start(ctx context.Context) error {
	for cadence, expr := range cadenceExpressions {
		cadence := cadence
		if _, err := s.cron.AddFunc(expr, func() { s.runCadence(ctx, cadence) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runCadence(ctx context.Context, cadence feed.Cadence) {
	feeds, err := s.feeds.FindEnabled(ctx)
	if err != nil {
		s.logger.Warn("scheduler: failed to list enabled feeds", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, f := range feeds {
		if f.Cadence() != cadence {
			continue
		}
		wg.Add(1)
		go func(feedID uuid.UUID) {
			defer wg.Done()
			s.RunNow(ctx, feedID)
		}(f.ID())
	}
	wg.Wait()
}

// RunNow triggers an immediate collection for a single feed, respecting
// the global concurrency ceiling and preventing re-entrant runs of the
// same feed.
func (s *Scheduler) RunNow(ctx context.Context, feedID uuid.UUID) CollectionResult {
	lockIface, _ := s.feedLocks.LoadOrStore(feedID, &sync.Mutex{})
	lock := lockIface.(*sync.Mutex)
	if !lock.TryLock() {
		return CollectionResult{FeedID: feedID, Errors: []string{"collection already in progress for this feed"}}
	}
	defer lock.Unlock()

	s.semaphore <- struct{}{}
	defer func() { <-s.semaphore }()

	return s.collector.CollectFromFeed(ctx, feedID)
}
