package emission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/notification"
	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/ports/outbound"
	"go.uber.org/zap"
)

// NotificationDispatcher evaluates notification rules and sends mail for
// the three subscription kinds (C9.3): an immediate alert on a critical
// threat, a daily digest of high-risk threats, and a notice when a CISO
// weekly report finishes rendering.
type NotificationDispatcher struct {
	rules         outbound.NotificationRuleRepository
	notifications outbound.NotificationRepository
	threats       outbound.ThreatRepository
	assessments   outbound.RiskAssessmentRepository
	mail          outbound.MailClient
	operatorLoc   *time.Location
	logger        *zap.Logger
}

// NewNotificationDispatcher builds a dispatcher that evaluates
// HighRiskDailyDigest send-times against operatorTZ (an IANA timezone
// name, e.g. the operator's configured TZ); an unparseable zone falls
// back to UTC rather than failing construction.
func NewNotificationDispatcher(
	rules outbound.NotificationRuleRepository,
	notifications outbound.NotificationRepository,
	threats outbound.ThreatRepository,
	assessments outbound.RiskAssessmentRepository,
	mail outbound.MailClient,
	operatorTZ string,
	logger *zap.Logger,
) *NotificationDispatcher {
	loc, err := time.LoadLocation(operatorTZ)
	if err != nil {
		loc = time.UTC
	}
	return &NotificationDispatcher{
		rules: rules, notifications: notifications, threats: threats,
		assessments: assessments, mail: mail, operatorLoc: loc,
		logger: logger.Named("emission.notifications"),
	}
}

// DispatchCriticalThreat notifies every enabled CriticalThreat rule whose
// threshold the assessment's final score clears.
func (d *NotificationDispatcher) DispatchCriticalThreat(ctx context.Context, t *threat.Threat, b risk.Breakdown) error {
	rules, err := d.rules.FindByKind(ctx, notification.RuleCriticalThreat)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Critical threat notice: %s (CVE: %s)", t.Title(), orNA(t.CVEID()))
	body := fmt.Sprintf(
		"Critical threat notice\n\nTitle: %s\nCVE: %s\nRisk score: %.1f/10.0\nAffected assets: %d\n",
		t.Title(), orNA(t.CVEID()), b.FinalRiskScore, b.AffectedAssetCount,
	)

	for _, r := range rules {
		if !r.Enabled() || b.FinalRiskScore < r.ScoreThreshold() {
			continue
		}
		d.send(ctx, r, subject, body)
	}
	return nil
}

// DispatchDailyDigest notifies every enabled HighRiskDailyDigest rule whose
// send-time (evaluated in the operator timezone) matches asOf, with the
// set of threats ingested in the trailing 24h whose best assessment
// clears the rule's threshold. Calling this once a minute from a cron
// tick, as the container does, makes "once per day at rule.send-time"
// hold regardless of how many rules share a tick.
func (d *NotificationDispatcher) DispatchDailyDigest(ctx context.Context, asOf time.Time) error {
	rules, err := d.rules.FindByKind(ctx, notification.RuleHighRiskDailyDigest)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	nowHHMM := asOf.In(d.operatorLoc).Format("15:04")

	threats, err := d.threats.FindIngestedBetween(ctx, asOf.Add(-24*time.Hour), asOf)
	if err != nil {
		return err
	}

	for _, r := range rules {
		if !r.Enabled() || r.SendTime() != nowHHMM {
			continue
		}
		qualifying, totalAssets, avgScore := d.qualifyingThreats(ctx, threats, r.ScoreThreshold())
		if len(qualifying) == 0 {
			continue
		}

		subject := fmt.Sprintf("High-risk threat daily digest - %s", asOf.Format("2006-01-02"))
		var sb strings.Builder
		fmt.Fprintf(&sb, "High-risk threat daily digest\n\nDate: %s\n\n", asOf.Format("2006-01-02"))
		fmt.Fprintf(&sb, "Threats: %d\nAffected assets: %d\nAverage risk score: %.1f/10.0\n\n", len(qualifying), totalAssets, avgScore)
		for _, t := range qualifying {
			fmt.Fprintf(&sb, "- %s (CVE: %s)\n", t.Title(), orNA(t.CVEID()))
		}
		d.send(ctx, r, subject, sb.String())
	}
	return nil
}

// DispatchWeeklyReportNotice notifies every enabled WeeklyReport rule that
// a new CISO digest has finished rendering.
func (d *NotificationDispatcher) DispatchWeeklyReportNotice(ctx context.Context, rpt *report.Report) error {
	rules, err := d.rules.FindByKind(ctx, notification.RuleWeeklyReport)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("CISO weekly report generated - %s", rpt.GeneratedAt().Format("2006-01-02"))
	summary := rpt.AISummary()
	if summary == "" {
		summary = "The CISO weekly report has been generated and is ready for review."
	}
	body := fmt.Sprintf("CISO weekly report notice\n\nSummary:\n%s\n\nPath: %s\n", summary, rpt.Path())

	for _, r := range rules {
		if !r.Enabled() {
			continue
		}
		d.send(ctx, r, subject, body)
	}
	return nil
}

func (d *NotificationDispatcher) qualifyingThreats(ctx context.Context, threats []*threat.Threat, scoreThreshold float64) ([]*threat.Threat, int, float64) {
	var qualifying []*threat.Threat
	var totalAssets int
	var totalScore float64
	for _, t := range threats {
		assessments, err := d.assessments.FindByThreatID(ctx, t.ID())
		if err != nil {
			continue
		}
		best, ok := highestScoring(assessments)
		if !ok || best.Breakdown().FinalRiskScore < scoreThreshold {
			continue
		}
		qualifying = append(qualifying, t)
		totalAssets += best.Breakdown().AffectedAssetCount
		totalScore += best.Breakdown().FinalRiskScore
	}
	avg := 0.0
	if len(qualifying) > 0 {
		avg = totalScore / float64(len(qualifying))
	}
	return qualifying, totalAssets, avg
}

// send delivers to every recipient on the rule and records the outcome,
// never letting a mail failure propagate to the caller.
func (d *NotificationDispatcher) send(ctx context.Context, r *notification.Rule, subject, body string) {
	status := notification.DeliverySent
	errText := ""

	if err := d.mail.Send(ctx, r.Recipients(), subject, body); err != nil {
		status = notification.DeliveryFailed
		errText = err.Error()
		d.logger.Error("notification send failed", zap.Error(err), zap.String("rule_id", r.ID().String()))
	}

	n, err := notification.NewNotification(r.ID(), status, errText)
	if err != nil {
		d.logger.Warn("notification record construction failed", zap.Error(err))
		return
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		d.logger.Warn("notification record persistence failed", zap.Error(err))
	}
}
