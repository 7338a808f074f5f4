package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aetim/core/internal/application/extraction"
	"github.com/aetim/core/internal/domain/feed"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CollectionResult summarises a single feed run.
type CollectionResult struct {
	FeedID          uuid.UUID
	Success         bool
	ThreatsCollected int
	Errors          []string
}

// CollectionService drives a single feed's collector, standardises its
// output into Threat aggregates, enriches them via the extractor, and
// tracks consecutive failures through the failure tracker (C4).
type CollectionService struct {
	feeds          outbound.FeedRepository
	threats        outbound.ThreatRepository
	drivers        map[string]outbound.FeedDriver
	extractor      *extraction.Extractor
	encryption     outbound.EncryptionService
	rateLimiter    outbound.RateLimiter
	retry          outbound.RetryPolicy
	failures       outbound.FailureTracker
	bus            outbound.EventBus
	logger         *zap.Logger
}

func NewCollectionService(
	feeds outbound.FeedRepository,
	threats outbound.ThreatRepository,
	drivers map[string]outbound.FeedDriver,
	extractor *extraction.Extractor,
	encryption outbound.EncryptionService,
	rateLimiter outbound.RateLimiter,
	retry outbound.RetryPolicy,
	failures outbound.FailureTracker,
	bus outbound.EventBus,
	logger *zap.Logger,
) *CollectionService {
	return &CollectionService{
		feeds: feeds, threats: threats, drivers: drivers, extractor: extractor,
		encryption: encryption, rateLimiter: rateLimiter, retry: retry,
		failures: failures, bus: bus, logger: logger.Named("ingestion"),
	}
}

// CollectFromFeed runs one feed's driver, ingests the resulting advisories
// as Threats, and records success/failure with the failure tracker.
func (s *CollectionService) CollectFromFeed(ctx context.Context, feedID uuid.UUID) CollectionResult {
	started := time.Now()

	f, err := s.feeds.FindByID(ctx, feedID)
	if err != nil {
		return CollectionResult{FeedID: feedID, Errors: []string{fmt.Sprintf("feed not found: %v", err)}}
	}
	if !f.Enabled() {
		return CollectionResult{FeedID: feedID, Errors: []string{"feed is disabled"}}
	}

	inCooldown, err := s.failures.IsInCooldown(ctx, feedID)
	if err == nil && inCooldown {
		return CollectionResult{FeedID: feedID, Errors: []string{"feed is in failure cooldown"}}
	}

	driver, ok := s.drivers[f.Name()]
	if !ok {
		s.recordFailure(ctx, f, "no collector registered for feed", time.Since(started))
		return CollectionResult{FeedID: feedID, Errors: []string{"no collector registered for feed"}}
	}

	if err := s.rateLimiter.Wait(ctx, f.Name()); err != nil {
		s.recordFailure(ctx, f, err.Error(), time.Since(started))
		return CollectionResult{FeedID: feedID, Errors: []string{err.Error()}}
	}

	credentialBlob := f.CredentialBlob()
	if s.encryption != nil && len(credentialBlob) > 0 {
		if plain, err := s.encryption.Decrypt(credentialBlob); err == nil {
			credentialBlob = plain
		}
	}

	var advisories []outbound.RawAdvisory
	collectErr := s.retry.Execute(ctx, func(ctx context.Context) error {
		var err error
		advisories, err = driver.Collect(ctx, credentialBlob)
		return err
	})

	if collectErr != nil {
		s.recordFailure(ctx, f, collectErr.Error(), time.Since(started))
		return CollectionResult{FeedID: feedID, Errors: []string{collectErr.Error()}}
	}

	var errs []string
	count := 0
	for _, adv := range advisories {
		if err := s.ingestAdvisory(ctx, f, adv); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		count++
	}

	if err := s.failures.RecordSuccess(ctx, feedID); err != nil {
		s.logger.Warn("failure tracker reset failed", zap.Error(err))
	}
	s.updateCollectionStatus(ctx, f, feed.CollectionSuccess, count, "", time.Since(started))

	return CollectionResult{FeedID: feedID, Success: true, ThreatsCollected: count, Errors: errs}
}

func (s *CollectionService) recordFailure(ctx context.Context, f *feed.Feed, message string, elapsed time.Duration) {
	if err := s.failures.RecordFailure(ctx, f.ID(), errors.New(message)); err != nil {
		s.logger.Warn("failure tracker record failed", zap.Error(err))
	}
	s.updateCollectionStatus(ctx, f, feed.CollectionFailed, 0, message, elapsed)
}

func (s *CollectionService) updateCollectionStatus(ctx context.Context, f *feed.Feed, status feed.CollectionStatus, count int, errMessage string, elapsed time.Duration) {
	if err := f.RecordCollectionOutcome(status, count, errMessage, elapsed); err != nil {
		s.logger.Warn("collection status update rejected", zap.Error(err))
		return
	}
	if err := s.feeds.Update(ctx, f); err != nil {
		s.logger.Warn("feed persistence failed", zap.Error(err))
		return
	}
	for _, e := range f.Events() {
		s.bus.Publish(ctx, e)
	}
}

// ingestAdvisory upserts a Threat keyed by (CVE ID) when present, or by
// (feed, source URL, title) otherwise, so re-collection never duplicates.
func (s *CollectionService) ingestAdvisory(ctx context.Context, f *feed.Feed, adv outbound.RawAdvisory) error {
	existing, err := s.findExisting(ctx, f.ID(), adv)
	if err != nil {
		return err
	}

	if existing != nil {
		if adv.Severity != "" && existing.Severity() == "" {
			if err := existing.SetSeverity(adv.Severity); err != nil {
				return err
			}
		}
		s.addDriverProducts(existing, adv.Products)
		s.enrich(existing)
		return s.threats.Update(ctx, existing)
	}

	t, err := threat.New(f.ID(), adv.Title, adv.Description, adv.CVEID, adv.BaseScore, adv.Vector, adv.SourceURL, adv.PublishedAt, adv.RawPayload)
	if err != nil {
		return err
	}

	// A driver-provided severity tag wins over the CVSS-derived band.
	if adv.Severity != "" {
		if err := t.SetSeverity(adv.Severity); err != nil {
			return err
		}
	}

	s.addDriverProducts(t, adv.Products)
	s.enrich(t)

	if err := s.threats.Create(ctx, t); err != nil {
		return err
	}
	for _, e := range t.Events() {
		s.bus.Publish(ctx, e)
	}
	return nil
}

func (s *CollectionService) findExisting(ctx context.Context, feedID uuid.UUID, adv outbound.RawAdvisory) (*threat.Threat, error) {
	if strings.TrimSpace(adv.CVEID) != "" {
		if t, err := s.threats.FindByCVEID(ctx, adv.CVEID); err == nil && t != nil {
			return t, nil
		}
	}
	if t, err := s.threats.FindByFeedSourceURLTitle(ctx, feedID, adv.SourceURL, adv.Title); err == nil && t != nil {
		return t, nil
	}
	return nil, nil
}

// addDriverProducts folds products a driver identified from structured
// fields (e.g. NVD's CPE configurations) into the threat, independent of
// the free-text extraction pass enrich later runs over title+description.
func (s *CollectionService) addDriverProducts(t *threat.Threat, products []outbound.ExtractedProduct) {
	for _, p := range products {
		_ = t.AddProduct(p.Name, p.Version, p.Type, p.OriginalText)
	}
}

// enrich runs the extractor over the threat's title+description and
// folds the resulting products/TTPs/IOCs into the aggregate. Extraction
// failures never block ingestion.
func (s *CollectionService) enrich(t *threat.Threat) {
	if s.extractor == nil {
		return
	}

	text := strings.TrimSpace(t.Title() + "\n" + t.Description())
	if text == "" {
		return
	}

	result, err := s.extractor.Extract(context.Background(), text)
	if err != nil {
		s.logger.Warn("extraction failed during ingestion", zap.Error(err), zap.String("threat_id", t.ID().String()))
		return
	}

	for _, p := range result.Products {
		_ = t.AddProduct(p.Name, p.Version, p.Type, p.OriginalText)
	}
	for _, ttp := range result.TTPs {
		t.AddTTP(ttp)
	}
	for _, ip := range result.IOCs.IPs {
		t.AddIOC(threat.IOCBucketIPs, ip)
	}
	for _, domain := range result.IOCs.Domains {
		t.AddIOC(threat.IOCBucketDomains, domain)
	}
	for _, hash := range result.IOCs.Hashes {
		t.AddIOC(threat.IOCBucketHashes, hash)
	}
}
