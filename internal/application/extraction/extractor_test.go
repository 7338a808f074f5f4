package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetim/core/internal/infrastructure/persistence/memory"
	"github.com/aetim/core/internal/ports/outbound"
)

// fakeSummarizer is a local outbound.SummarizerClient test double; no ML
// collaborator is exercised by these tests.
type fakeSummarizer struct {
	extractResult outbound.ExtractionResult
	extractErr    error
	summary       string
	summaryErr    error
	healthErr     error
}

func (f *fakeSummarizer) Extract(ctx context.Context, text string) (outbound.ExtractionResult, error) {
	return f.extractResult, f.extractErr
}

func (f *fakeSummarizer) Summarize(ctx context.Context, technicalText string) (string, error) {
	return f.summary, f.summaryErr
}

func (f *fakeSummarizer) Health(ctx context.Context) error {
	return f.healthErr
}

func TestExtract_UsesMLResultWhenEnabledHealthyAndWellFormed(t *testing.T) {
	summarizer := &fakeSummarizer{
		extractResult: outbound.ExtractionResult{CVEs: []string{"CVE-2026-0001"}, Confidence: 0.95},
	}
	cache := memory.NewCacheRepository()
	e := NewExtractor(summarizer, cache, true, zap.NewNop())

	result, err := e.Extract(context.Background(), "irrelevant text")
	require.NoError(t, err)
	assert.Equal(t, outbound.OriginML, result.Origin)
	assert.Equal(t, []string{"CVE-2026-0001"}, result.CVEs)
}

func TestExtract_FallsBackToRuleEngineWhenMLDisabled(t *testing.T) {
	summarizer := &fakeSummarizer{extractResult: outbound.ExtractionResult{CVEs: []string{"CVE-2026-9999"}}}
	cache := memory.NewCacheRepository()
	e := NewExtractor(summarizer, cache, false, zap.NewNop())

	result, err := e.Extract(context.Background(), "Seen in CVE-2026-1234 advisory for nginx 1.18.0.")
	require.NoError(t, err)
	assert.Equal(t, outbound.OriginRule, result.Origin)
	assert.Equal(t, []string{"CVE-2026-1234"}, result.CVEs)
}

func TestExtract_FallsBackToRuleEngineWhenMLErrors(t *testing.T) {
	summarizer := &fakeSummarizer{extractErr: errors.New("ml service unavailable")}
	cache := memory.NewCacheRepository()
	e := NewExtractor(summarizer, cache, true, zap.NewNop())

	result, err := e.Extract(context.Background(), "Seen in CVE-2026-5555 advisory.")
	require.NoError(t, err)
	assert.Equal(t, outbound.OriginRule, result.Origin)
	assert.Equal(t, []string{"CVE-2026-5555"}, result.CVEs)
}

func TestExtract_FallsBackToRuleEngineWhenMLResultIsMalformed(t *testing.T) {
	summarizer := &fakeSummarizer{extractResult: outbound.ExtractionResult{}}
	cache := memory.NewCacheRepository()
	e := NewExtractor(summarizer, cache, true, zap.NewNop())

	result, err := e.Extract(context.Background(), "Seen in CVE-2026-7777 advisory.")
	require.NoError(t, err)
	assert.Equal(t, outbound.OriginRule, result.Origin)
	assert.Equal(t, []string{"CVE-2026-7777"}, result.CVEs)
}

func TestExtract_MLFailureMarksUnhealthyAndSubsequentCallSkipsMLUntilRecheckSucceeds(t *testing.T) {
	ctx := context.Background()
	summarizer := &fakeSummarizer{extractErr: errors.New("ml service unavailable")}
	cache := memory.NewCacheRepository()
	e := NewExtractor(summarizer, cache, true, zap.NewNop())

	_, err := e.Extract(ctx, "first call, no CVE here")
	require.NoError(t, err)

	// A subsequent call must not re-attempt ML while the health recheck
	// still fails, even though Extract itself would now succeed; prove it
	// by making Extract succeed but leaving the health probe failing.
	summarizer.extractErr = nil
	summarizer.extractResult = outbound.ExtractionResult{CVEs: []string{"CVE-2026-0000"}, Origin: outbound.OriginML}
	summarizer.healthErr = errors.New("still down")

	result, err := e.Extract(ctx, "second call mentions CVE-2026-8888")
	require.NoError(t, err)
	assert.Equal(t, outbound.OriginRule, result.Origin)
	assert.Equal(t, []string{"CVE-2026-8888"}, result.CVEs)

	// Once the health probe succeeds, ML resumes on the very next call --
	// no blind TTL wait is required.
	summarizer.healthErr = nil

	result, err = e.Extract(ctx, "third call, ml recovered")
	require.NoError(t, err)
	assert.Equal(t, outbound.OriginML, result.Origin)
	assert.Equal(t, []string{"CVE-2026-0000"}, result.CVEs)
}

func TestExtract_NilCacheTreatsMLAsAlwaysHealthy(t *testing.T) {
	summarizer := &fakeSummarizer{extractResult: outbound.ExtractionResult{CVEs: []string{"CVE-2026-0002"}, Origin: outbound.OriginML}}
	e := NewExtractor(summarizer, nil, true, zap.NewNop())

	result, err := e.Extract(context.Background(), "irrelevant")
	require.NoError(t, err)
	assert.Equal(t, outbound.OriginML, result.Origin)
}

func TestExtract_NoSummarizerConfiguredUsesRuleEngine(t *testing.T) {
	cache := memory.NewCacheRepository()
	e := NewExtractor(nil, cache, true, zap.NewNop())

	result, err := e.Extract(context.Background(), "Seen in CVE-2026-4444 advisory.")
	require.NoError(t, err)
	assert.Equal(t, outbound.OriginRule, result.Origin)
}
