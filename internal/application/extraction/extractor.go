// Package extraction implements the rule-engine extractor (C1): a
// deterministic indicator pipeline over free text, with an optional ML
// collaborator fronted by a health cache and a fail-closed fallback.
package extraction

import (
	"context"
	"time"

	"github.com/aetim/core/internal/ports/outbound"
	"go.uber.org/zap"
)

// Extractor consumes free text and returns structured indicators, tagged
// with the engine that produced them.
type Extractor struct {
	summarizer  outbound.SummarizerClient
	cache       outbound.CacheRepository
	mlEnabled   bool
	logger      *zap.Logger
}

const (
	mlHealthCacheKey     = "extractor:ml:healthy"
	mlHealthProbeTimeout = 5 * time.Second
)

func NewExtractor(summarizer outbound.SummarizerClient, cache outbound.CacheRepository, mlEnabled bool, logger *zap.Logger) *Extractor {
	return &Extractor{
		summarizer: summarizer,
		cache:      cache,
		mlEnabled:  mlEnabled,
		logger:     logger.Named("extractor"),
	}
}

// Extract runs the ML path if enabled and healthy; otherwise, or on any
// ML failure, falls back to the rule engine. The rule engine never fails
// closed against its own logic — a fallback to it always succeeds.
func (e *Extractor) Extract(ctx context.Context, text string) (outbound.ExtractionResult, error) {
	if e.mlEnabled && e.summarizer != nil && e.isMLHealthy(ctx) {
		result, err := e.summarizer.Extract(ctx, text)
		if err == nil && isWellFormed(result) {
			result.Origin = outbound.OriginML
			return result, nil
		}
		e.markMLUnhealthy(ctx)
		e.logger.Warn("ml extraction failed, falling back to rule engine", zap.Error(err))
	}

	return e.extractRuleEngine(text), nil
}

func (e *Extractor) extractRuleEngine(text string) outbound.ExtractionResult {
	products := ExtractProducts(text)
	outProducts := make([]outbound.ExtractedProduct, 0, len(products))
	confidence := 0.0
	for _, p := range products {
		outProducts = append(outProducts, outbound.ExtractedProduct{
			Name:         p.Name,
			Version:      p.Version,
			Type:         p.Type,
			OriginalText: p.OriginalText,
		})
		if p.Confidence > confidence {
			confidence = p.Confidence
		}
	}
	if confidence == 0 {
		confidence = 0.7
	}

	iocs := ExtractIOCs(text)

	return outbound.ExtractionResult{
		CVEs:     ExtractCVEs(text),
		Products: outProducts,
		TTPs:     ExtractTTPs(text),
		IOCs: outbound.ExtractedIOCs{
			IPs:     iocs.IPs,
			Domains: iocs.Domains,
			Hashes:  iocs.Hashes,
		},
		Confidence: confidence,
		Origin:     outbound.OriginRule,
	}
}

func isWellFormed(r outbound.ExtractionResult) bool {
	return r.Origin != "" || len(r.CVEs) > 0 || len(r.Products) > 0 || len(r.IOCs.IPs)+len(r.IOCs.Domains)+len(r.IOCs.Hashes) > 0
}

// isMLHealthy reports the cached health state, rechecking it with a cheap
// probe call when the cache says unhealthy rather than waiting out a blind
// TTL: a single failure flips the cache, and it is not cleared again until
// a successful Health recheck, per the collaborator contract.
func (e *Extractor) isMLHealthy(ctx context.Context) bool {
	if e.cache == nil {
		return true
	}
	val, err := e.cache.Get(ctx, mlHealthCacheKey)
	if err != nil || val == nil || string(val) != "unhealthy" {
		return true
	}

	probeCtx, cancel := context.WithTimeout(ctx, mlHealthProbeTimeout)
	defer cancel()
	if err := e.summarizer.Health(probeCtx); err != nil {
		return false
	}

	e.markMLHealthy(ctx)
	return true
}

// markMLUnhealthy flips the health cache on a single failure, per the
// fallback contract; the cache is not cleared until a successful recheck.
func (e *Extractor) markMLUnhealthy(ctx context.Context) {
	if e.cache == nil {
		return
	}
	_ = e.cache.Set(ctx, mlHealthCacheKey, []byte("unhealthy"), 0)
}

func (e *Extractor) markMLHealthy(ctx context.Context) {
	if e.cache == nil {
		return
	}
	_ = e.cache.Delete(ctx, mlHealthCacheKey)
}
