// Package threat contains the core domain logic for ingested vulnerability
// advisories. This follows Domain-Driven Design principles with rich
// domain models.
package threat

import (
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/google/uuid"
)

// Threat is one vulnerability advisory collected from a Feed.
type Threat struct {
	id          uuid.UUID
	feedID      uuid.UUID
	cveID       string
	title       string
	description string
	baseScore   *float64
	vector      string
	severity    Severity
	status      Status

	publishedAt *time.Time
	collectedAt time.Time
	sourceURL   string
	rawPayload  []byte

	products []Product
	ttps     []string
	iocs     map[IOCBucket][]string

	createdAt time.Time
	updatedAt time.Time

	shared.AggregateRoot
}

// New creates a Threat, raising an IngestedEvent. baseScore may be nil when
// the source advisory carries no CVSS score.
func New(feedID uuid.UUID, title, description, cveID string, baseScore *float64, vector, sourceURL string, publishedAt *time.Time, rawPayload []byte) (*Threat, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	if feedID == uuid.Nil {
		return nil, ErrFeedIDRequired
	}
	if baseScore != nil && (*baseScore < 0.0 || *baseScore > 10.0) {
		return nil, ErrInvalidCVSSScore
	}

	now := time.Now()
	t := &Threat{
		id:          uuid.New(),
		feedID:      feedID,
		cveID:       cveID,
		title:       title,
		description: description,
		baseScore:   baseScore,
		vector:      vector,
		status:      StatusNew,
		publishedAt: publishedAt,
		collectedAt: now,
		sourceURL:   sourceURL,
		rawPayload:  rawPayload,
		iocs: map[IOCBucket][]string{
			IOCBucketIPs:     {},
			IOCBucketDomains: {},
			IOCBucketHashes:  {},
		},
		createdAt: now,
		updatedAt: now,
	}

	if baseScore != nil {
		t.severity = SeverityFromCVSS(*baseScore)
	}

	t.AddEvent(IngestedEvent{
		ThreatID:   t.id,
		FeedID:     feedID,
		CVEID:      cveID,
		IngestedAt: now,
	})

	return t, nil
}

// Rehydrate reconstructs a Threat from persisted state without raising events.
func Rehydrate(
	id, feedID uuid.UUID,
	cveID, title, description string,
	baseScore *float64,
	vector string,
	severity Severity,
	status Status,
	publishedAt *time.Time,
	collectedAt time.Time,
	sourceURL string,
	rawPayload []byte,
	products []Product,
	ttps []string,
	iocs map[IOCBucket][]string,
	createdAt, updatedAt time.Time,
) *Threat {
	if iocs == nil {
		iocs = map[IOCBucket][]string{IOCBucketIPs: {}, IOCBucketDomains: {}, IOCBucketHashes: {}}
	}
	return &Threat{
		id: id, feedID: feedID, cveID: cveID, title: title, description: description,
		baseScore: baseScore, vector: vector, severity: severity, status: status,
		publishedAt: publishedAt, collectedAt: collectedAt, sourceURL: sourceURL,
		rawPayload: rawPayload, products: products, ttps: ttps, iocs: iocs,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (t *Threat) ID() uuid.UUID              { return t.id }
func (t *Threat) FeedID() uuid.UUID          { return t.feedID }
func (t *Threat) CVEID() string              { return t.cveID }
func (t *Threat) Title() string              { return t.title }
func (t *Threat) Description() string        { return t.description }
func (t *Threat) BaseScore() *float64        { return t.baseScore }
func (t *Threat) Vector() string             { return t.vector }
func (t *Threat) Severity() Severity         { return t.severity }
func (t *Threat) Status() Status             { return t.status }
func (t *Threat) PublishedAt() *time.Time    { return t.publishedAt }
func (t *Threat) CollectedAt() time.Time     { return t.collectedAt }
func (t *Threat) SourceURL() string          { return t.sourceURL }
func (t *Threat) RawPayload() []byte         { return t.rawPayload }
func (t *Threat) Products() []Product        { return t.products }
func (t *Threat) TTPs() []string             { return t.ttps }
func (t *Threat) IOCs(bucket IOCBucket) []string { return t.iocs[bucket] }
func (t *Threat) CreatedAt() time.Time       { return t.createdAt }
func (t *Threat) UpdatedAt() time.Time       { return t.updatedAt }

// UpdateStatus transitions the threat's lifecycle state, enforcing the
// state machine invariant.
func (t *Threat) UpdateStatus(newStatus Status) error {
	if !newStatus.Valid() {
		return ErrInvalidStatusTransition
	}
	if !t.status.CanTransitionTo(newStatus) {
		return ErrInvalidStatusTransition
	}

	old := t.status
	t.status = newStatus
	t.updatedAt = time.Now()

	t.AddEvent(StatusUpdatedEvent{
		ThreatID:  t.id,
		OldStatus: old,
		NewStatus: newStatus,
		UpdatedAt: t.updatedAt,
	})

	return nil
}

// AddProduct appends a product reference, ignoring exact duplicates
// (matched by name+version).
func (t *Threat) AddProduct(name, version string, productType ProductType, originalText string) error {
	for _, p := range t.products {
		if p.Name() == name && p.Version() == version {
			return nil
		}
	}

	p, err := NewProduct(name, version, productType, originalText)
	if err != nil {
		return err
	}

	t.products = append(t.products, p)
	t.touch("products")
	return nil
}

// AddTTP records a MITRE ATT&CK technique identifier, e.g. "T1566.001".
func (t *Threat) AddTTP(ttpID string) {
	for _, existing := range t.ttps {
		if existing == ttpID {
			return
		}
	}
	t.ttps = append(t.ttps, ttpID)
	t.touch("ttps")
}

// AddIOC records an indicator of compromise in the given bucket.
func (t *Threat) AddIOC(bucket IOCBucket, value string) {
	for _, existing := range t.iocs[bucket] {
		if existing == value {
			return
		}
	}
	t.iocs[bucket] = append(t.iocs[bucket], value)
	t.touch("iocs")
}

// SetSeverity records a source-provided severity tag. A severity the
// source states itself wins over the CVSS-derived band (a KEV listing is
// tagged High by the catalogue even without carrying a score).
func (t *Threat) SetSeverity(s Severity) error {
	if !s.Valid() {
		return ErrInvalidSeverity
	}
	if t.severity == s {
		return nil
	}
	t.severity = s
	t.touch("severity")
	return nil
}

// UpdateScore sets the base score and vector, recomputing severity.
func (t *Threat) UpdateScore(baseScore float64, vector string) error {
	if baseScore < 0.0 || baseScore > 10.0 {
		return ErrInvalidCVSSScore
	}
	t.baseScore = &baseScore
	t.vector = vector
	t.severity = SeverityFromCVSS(baseScore)
	t.touch("cvss_base_score", "cvss_vector", "severity")
	return nil
}

func (t *Threat) touch(fields ...string) {
	t.updatedAt = time.Now()
	t.AddEvent(UpdatedEvent{
		ThreatID:      t.id,
		UpdatedFields: fields,
		UpdatedAt:     t.updatedAt,
	})
}
