package emission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/ports/outbound"
	"go.uber.org/zap"
)

// criticalThreatRiskThreshold is the score at which a threat is called
// out individually in the weekly digest rather than just counted.
const criticalThreatRiskThreshold = 8.0

type criticalThreatRow struct {
	CVEID               string
	Title               string
	RiskScore           float64
	RiskLevel           risk.Level
	AffectedAssetCount  int
}

type riskTrendSide struct {
	ThreatCount   int
	AvgRiskScore  float64
}

type riskTrend struct {
	ThisWeek          riskTrendSide
	LastWeek          riskTrendSide
	ThreatCountChange int
	RiskScoreChange   float64
}

type weeklyReportData struct {
	PeriodStart         time.Time
	PeriodEnd           time.Time
	TotalThreats        int
	CriticalThreatCount int
	CriticalThreats     []criticalThreatRow
	Trend               riskTrend
	BusinessSummary     string
}

// WeeklyReportGenerator assembles and renders the periodic CISO digest
// (C9.2): threat volume, critical-threat call-outs, and a week-over-week
// risk trend, optionally paraphrased into business language via the
// summarizer collaborator.
type WeeklyReportGenerator struct {
	threats     outbound.ThreatRepository
	assessments outbound.RiskAssessmentRepository
	summarizer  outbound.SummarizerClient
	storage     outbound.StorageService
	reports     outbound.ReportRepository
	bus         outbound.EventBus
	logger      *zap.Logger
}

func NewWeeklyReportGenerator(
	threats outbound.ThreatRepository,
	assessments outbound.RiskAssessmentRepository,
	summarizer outbound.SummarizerClient,
	storage outbound.StorageService,
	reports outbound.ReportRepository,
	bus outbound.EventBus,
	logger *zap.Logger,
) *WeeklyReportGenerator {
	return &WeeklyReportGenerator{
		threats: threats, assessments: assessments, summarizer: summarizer,
		storage: storage, reports: reports, bus: bus, logger: logger.Named("emission.reports"),
	}
}

// Generate renders and persists one CISO weekly report for [periodStart,
// periodEnd].
func (g *WeeklyReportGenerator) Generate(ctx context.Context, periodStart, periodEnd time.Time, format report.Format) (*report.Report, error) {
	data, err := g.collect(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	if g.summarizer != nil && len(data.CriticalThreats) > 0 {
		if summary, err := g.summarizer.Summarize(ctx, summarizerInput(data)); err == nil {
			data.BusinessSummary = summary
		} else {
			g.logger.Warn("weekly report: business summary unavailable", zap.Error(err))
		}
	}

	content, effectiveFormat, err := renderWeeklyContent(data, format)
	if err != nil {
		return nil, err
	}
	format = effectiveFormat

	title := fmt.Sprintf("CISO Weekly Report %s", periodEnd.Format("2006-01-02"))
	path := fmt.Sprintf("reports/ciso-weekly-%s.%s", periodEnd.Format("20060102"), strings.ToLower(string(format)))
	if g.storage != nil {
		if err := g.storage.Write(ctx, path, content); err != nil {
			return nil, err
		}
	}

	rpt, err := report.New(report.KindCisoWeekly, title, path, format, &periodStart, &periodEnd, data.BusinessSummary, map[string]string{
		"total_threats":    fmt.Sprintf("%d", data.TotalThreats),
		"critical_threats": fmt.Sprintf("%d", data.CriticalThreatCount),
	})
	if err != nil {
		return nil, err
	}

	if err := g.reports.Create(ctx, rpt); err != nil {
		return nil, err
	}
	for _, e := range rpt.Events() {
		g.bus.Publish(ctx, e)
	}
	return rpt, nil
}

func (g *WeeklyReportGenerator) collect(ctx context.Context, periodStart, periodEnd time.Time) (weeklyReportData, error) {
	threats, err := g.threats.FindIngestedBetween(ctx, periodStart, periodEnd)
	if err != nil {
		return weeklyReportData{}, err
	}

	var critical []criticalThreatRow
	for _, t := range threats {
		assessments, err := g.assessments.FindByThreatID(ctx, t.ID())
		if err != nil {
			continue
		}
		if top, ok := highestScoring(assessments); ok && top.Breakdown().FinalRiskScore >= criticalThreatRiskThreshold {
			critical = append(critical, criticalThreatRow{
				CVEID:              orNA(t.CVEID()),
				Title:              t.Title(),
				RiskScore:          top.Breakdown().FinalRiskScore,
				RiskLevel:          top.Breakdown().RiskLevel,
				AffectedAssetCount: top.Breakdown().AffectedAssetCount,
			})
		}
	}

	duration := periodEnd.Sub(periodStart)
	priorStart := periodStart.Add(-duration)
	priorEnd := periodStart
	priorThreats, err := g.threats.FindIngestedBetween(ctx, priorStart, priorEnd)
	if err != nil {
		priorThreats = nil
	}

	thisWeekAvg := averageFinalScore(ctx, g.assessments, threats)
	lastWeekAvg := averageFinalScore(ctx, g.assessments, priorThreats)

	trend := riskTrend{
		ThisWeek:          riskTrendSide{ThreatCount: len(threats), AvgRiskScore: thisWeekAvg},
		LastWeek:          riskTrendSide{ThreatCount: len(priorThreats), AvgRiskScore: lastWeekAvg},
		ThreatCountChange: len(threats) - len(priorThreats),
		RiskScoreChange:   thisWeekAvg - lastWeekAvg,
	}

	return weeklyReportData{
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		TotalThreats:        len(threats),
		CriticalThreatCount: len(critical),
		CriticalThreats:     critical,
		Trend:               trend,
	}, nil
}

func highestScoring(assessments []*risk.Assessment) (*risk.Assessment, bool) {
	var best *risk.Assessment
	for _, a := range assessments {
		if best == nil || a.Breakdown().FinalRiskScore > best.Breakdown().FinalRiskScore {
			best = a
		}
	}
	return best, best != nil
}

func averageFinalScore(ctx context.Context, repo outbound.RiskAssessmentRepository, threats []*threat.Threat) float64 {
	var total float64
	var count int
	for _, t := range threats {
		assessments, err := repo.FindByThreatID(ctx, t.ID())
		if err != nil {
			continue
		}
		for _, a := range assessments {
			total += a.Breakdown().FinalRiskScore
			count++
		}
	}
	if count == 0 {
		return 0.0
	}
	return total / float64(count)
}

func summarizerInput(data weeklyReportData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d threats collected this period, %d critical (risk score >= 8.0).\n", data.TotalThreats, data.CriticalThreatCount)
	for _, c := range data.CriticalThreats {
		fmt.Fprintf(&sb, "- %s: %s (score %.1f, %d assets affected)\n", c.CVEID, c.Title, c.RiskScore, c.AffectedAssetCount)
	}
	return sb.String()
}

var weeklyReportHTMLTemplate = template.Must(template.New("ciso_weekly").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>CISO Weekly Report {{.PeriodEnd.Format "2006-01-02"}}</title></head>
<body>
<h1>CISO Weekly Report - {{.PeriodEnd.Format "2006-01-02"}}</h1>
<p>Period: {{.PeriodStart.Format "2006-01-02"}} to {{.PeriodEnd.Format "2006-01-02"}}</p>
<p>Total threats collected: {{.TotalThreats}}</p>
<p>Critical threats (risk score &gt;= 8.0): {{.CriticalThreatCount}}</p>
<table border="1" cellpadding="6">
<tr><th>CVE</th><th>Title</th><th>Score</th><th>Level</th><th>Affected assets</th></tr>
{{range .CriticalThreats}}<tr><td>{{.CVEID}}</td><td>{{.Title}}</td><td>{{printf "%.2f" .RiskScore}}</td><td>{{.RiskLevel}}</td><td>{{.AffectedAssetCount}}</td></tr>
{{end}}</table>
<h2>Risk trend</h2>
<p>This week: {{.Trend.ThisWeek.ThreatCount}} threats, avg score {{printf "%.2f" .Trend.ThisWeek.AvgRiskScore}}</p>
<p>Last week: {{.Trend.LastWeek.ThreatCount}} threats, avg score {{printf "%.2f" .Trend.LastWeek.AvgRiskScore}}</p>
{{if .BusinessSummary}}<h2>Business risk summary</h2><p>{{.BusinessSummary}}</p>{{end}}
</body>
</html>
`))

// renderWeeklyContent renders the report and returns the format it was
// actually rendered in. PDF has no renderer wired (no template/PDF
// collaborator in the dependency set), so it falls back to HTML rather
// than failing the run.
func renderWeeklyContent(data weeklyReportData, format report.Format) ([]byte, report.Format, error) {
	switch format {
	case report.FormatJSON:
		content, err := renderWeeklyJSON(data)
		return content, report.FormatJSON, err
	default:
		var buf bytes.Buffer
		if err := weeklyReportHTMLTemplate.Execute(&buf, data); err != nil {
			return nil, format, err
		}
		return buf.Bytes(), report.FormatHTML, nil
	}
}

func renderWeeklyJSON(data weeklyReportData) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}
