package outbound

import (
	"context"
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/google/uuid"
)

// ExtractionResult is C1's output: structured indicators pulled from free
// text, tagged with the engine that produced each one.
type ExtractionResult struct {
	CVEs       []string
	Products   []ExtractedProduct
	TTPs       []string
	IOCs       ExtractedIOCs
	Confidence float64
	Origin     ExtractionOrigin
}

// ExtractionOrigin distinguishes the deterministic rule engine from the
// optional ML collaborator.
type ExtractionOrigin string

const (
	OriginRule ExtractionOrigin = "rule"
	OriginML   ExtractionOrigin = "ml"
)

type ExtractedProduct struct {
	Name         string
	Version      string
	Type         threat.ProductType
	OriginalText string
}

type ExtractedIOCs struct {
	IPs     []string
	Domains []string
	Hashes  []string
}

// SummarizerClient is the external AI collaborator used both by the
// extractor (as an ML-origin fallback/enrichment) and the CISO weekly
// report for business-language paraphrase.
type SummarizerClient interface {
	Extract(ctx context.Context, text string) (ExtractionResult, error)
	Summarize(ctx context.Context, technicalText string) (string, error)
	// Health probes the collaborator's availability independent of an
	// extraction call, so a cooled-down endpoint can be recognised without
	// spending a full extraction timeout to find out.
	Health(ctx context.Context) error
}

// FeedDriver is the per-feed collector contract (C2): given a Feed's
// credential material, fetch and normalise raw advisory records.
type FeedDriver interface {
	Name() string
	Collect(ctx context.Context, credentialBlob []byte) ([]RawAdvisory, error)
}

// RawAdvisory is a collector's normalised output, upstream of extraction
// and persistence.
type RawAdvisory struct {
	CVEID       string
	Title       string
	Description string
	BaseScore   *float64
	Vector      string
	// Severity is the source's own severity tag, set only by drivers whose
	// feed implies one independent of a CVSS score (CISA KEV listings
	// default to High: a KEV entry already means exploitation in the
	// wild). When set, it wins over the CVSS-derived band.
	Severity    threat.Severity
	SourceURL   string
	PublishedAt *time.Time
	RawPayload  []byte
	// Products carries any products the driver itself could identify from
	// structured fields (e.g. NVD's CPE configurations), independent of the
	// free-text extraction pass C1 later runs over Title/Description.
	Products []ExtractedProduct
}

// MailClient is the external notification delivery collaborator (C9.3).
type MailClient interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

// EventBus is the synchronous, in-process dispatcher (C11). Publish
// delivers to all registered subscribers after the owning transaction
// commits; subscriber panics are recovered and logged, never propagated.
type EventBus interface {
	Publish(ctx context.Context, event shared.DomainEvent)
	Subscribe(eventName string, handler shared.EventHandler)
}

// RateLimiter gates outbound collector requests (C3): per-feed
// sliding-window limits plus the NVD-specific global ceiling.
type RateLimiter interface {
	Wait(ctx context.Context, key string) error
}

// RetryPolicy wraps a collector call with bounded exponential backoff (C3).
type RetryPolicy interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// FailureTracker records consecutive per-feed collection failures and
// gates collection attempts during a cooldown window (C4).
type FailureTracker interface {
	RecordSuccess(ctx context.Context, feedID uuid.UUID) error
	RecordFailure(ctx context.Context, feedID uuid.UUID, err error) error
	IsInCooldown(ctx context.Context, feedID uuid.UUID) (bool, error)
}

// EncryptionService is the cipher for Feed.CredentialBlob. The collection
// service calls Decrypt before handing the blob to a driver; no write path
// calls Encrypt, so the blob is persisted as supplied.
type EncryptionService interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// StorageService persists rendered report/ticket artefacts, optionally to
// an S3-compatible backend.
type StorageService interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
}
