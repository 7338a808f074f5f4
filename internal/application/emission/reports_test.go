package emission

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/infrastructure/eventbus"
	"github.com/aetim/core/internal/infrastructure/persistence/memory"
	"github.com/aetim/core/internal/ports/outbound"
)

func newTestWeeklyReportGenerator(t *testing.T) (*WeeklyReportGenerator, *memory.ThreatRepository, outbound.RiskAssessmentRepository) {
	threats := memory.NewThreatRepository()
	assessments := memory.NewRiskAssessmentRepository()
	reports := memory.NewReportRepository()
	bus := eventbus.New(zap.NewNop())

	gen := NewWeeklyReportGenerator(threats, assessments, nil, nil, reports, bus, zap.NewNop())
	return gen, threats.(*memory.ThreatRepository), assessments
}

func seedThreatWithAssessment(t *testing.T, threats *memory.ThreatRepository, assessments outbound.RiskAssessmentRepository, collectedAt time.Time, cveID string, finalScore float64) *threat.Threat {
	ctx := context.Background()
	base := 7.0
	th := threat.Rehydrate(
		uuid.New(), uuid.New(), cveID, "Threat "+cveID, "desc", &base, "AV:N",
		threat.SeverityFromCVSS(base), threat.StatusNew, nil, collectedAt,
		"https://vendor.example", nil, nil, nil, nil, collectedAt, collectedAt,
	)
	require.NoError(t, threats.Create(ctx, th))

	breakdown := risk.Breakdown{
		BaseCVSSScore:  base,
		FinalRiskScore: finalScore,
		RiskLevel:      risk.LevelFromScore(finalScore),
	}
	a, err := risk.New(th.ID(), uuid.New(), breakdown)
	require.NoError(t, err)
	require.NoError(t, assessments.Upsert(ctx, a))

	return th
}

func TestWeeklyReportGenerator_Generate_CountsCriticalThreatsAboveThreshold(t *testing.T) {
	ctx := context.Background()
	gen, threats, assessments := newTestWeeklyReportGenerator(t)

	periodStart := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 7, 27, 0, 0, 0, 0, time.UTC)
	mid := periodStart.Add(2 * 24 * time.Hour)

	seedThreatWithAssessment(t, threats, assessments, mid, "CVE-2026-0001", 8.5)
	seedThreatWithAssessment(t, threats, assessments, mid, "CVE-2026-0002", 5.0)

	rpt, err := gen.Generate(ctx, periodStart, periodEnd, report.FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, report.KindCisoWeekly, rpt.Kind())
	assert.Equal(t, "2", rpt.Metadata()["total_threats"])
	assert.Equal(t, "1", rpt.Metadata()["critical_threats"])
}

func TestWeeklyReportGenerator_Generate_EmptyPeriodStillProducesReport(t *testing.T) {
	ctx := context.Background()
	gen, _, _ := newTestWeeklyReportGenerator(t)

	periodStart := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 7, 27, 0, 0, 0, 0, time.UTC)

	rpt, err := gen.Generate(ctx, periodStart, periodEnd, report.FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, "0", rpt.Metadata()["total_threats"])
	assert.Equal(t, "0", rpt.Metadata()["critical_threats"])
}

func TestWeeklyReportGenerator_Collect_TrendComparesAgainstPriorEqualLengthWindow(t *testing.T) {
	ctx := context.Background()
	gen, threats, assessments := newTestWeeklyReportGenerator(t)

	periodStart := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 7, 27, 0, 0, 0, 0, time.UTC)
	thisWeekTime := periodStart.Add(time.Hour)
	lastWeekTime := periodStart.Add(-3 * 24 * time.Hour)

	seedThreatWithAssessment(t, threats, assessments, thisWeekTime, "CVE-2026-0003", 6.0)
	seedThreatWithAssessment(t, threats, assessments, lastWeekTime, "CVE-2026-0004", 2.0)

	data, err := gen.collect(ctx, periodStart, periodEnd)
	require.NoError(t, err)

	assert.Equal(t, 1, data.Trend.ThisWeek.ThreatCount)
	assert.Equal(t, 1, data.Trend.LastWeek.ThreatCount)
	assert.Equal(t, 0, data.Trend.ThreatCountChange)
	assert.InDelta(t, 6.0, data.Trend.ThisWeek.AvgRiskScore, 0.001)
	assert.InDelta(t, 2.0, data.Trend.LastWeek.AvgRiskScore, 0.001)
	assert.InDelta(t, 4.0, data.Trend.RiskScoreChange, 0.001)
}

func TestRenderWeeklyContent_PDFFallsBackToHTML(t *testing.T) {
	data := weeklyReportData{PeriodStart: time.Now(), PeriodEnd: time.Now()}
	content, format, err := renderWeeklyContent(data, report.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, report.FormatHTML, format)
	assert.Contains(t, string(content), "<html>")
}

func TestRenderWeeklyContent_JSONRendersStructuredPayload(t *testing.T) {
	data := weeklyReportData{TotalThreats: 3, CriticalThreatCount: 1}
	content, format, err := renderWeeklyContent(data, report.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, report.FormatJSON, format)
	assert.Contains(t, string(content), `"TotalThreats": 3`)
}
