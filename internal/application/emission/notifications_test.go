package emission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetim/core/internal/domain/notification"
	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/infrastructure/persistence/memory"
)

// fakeMailClient is an in-memory outbound.MailClient test double; no
// real mail collaborator is exercised by these tests.
type fakeMailClient struct {
	mu      sync.Mutex
	sent    []sentMail
	failNext bool
}

type sentMail struct {
	Recipients []string
	Subject    string
	Body       string
}

func (m *fakeMailClient) Send(ctx context.Context, recipients []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, sentMail{Recipients: recipients, Subject: subject, Body: body})
	return nil
}

func newTestDispatcher(t *testing.T) (*NotificationDispatcher, *memory.NotificationRuleRepository, *memory.ThreatRepository, *memory.RiskAssessmentRepository, *fakeMailClient, *memory.NotificationRepository) {
	rules := memory.NewNotificationRuleRepository()
	notifications := memory.NewNotificationRepository()
	threats := memory.NewThreatRepository()
	assessments := memory.NewRiskAssessmentRepository()
	mail := &fakeMailClient{}

	d := NewNotificationDispatcher(rules, notifications, threats, assessments, mail, "UTC", zap.NewNop())
	return d, rules.(*memory.NotificationRuleRepository), threats.(*memory.ThreatRepository), assessments.(*memory.RiskAssessmentRepository), mail, notifications.(*memory.NotificationRepository)
}

func TestDispatchCriticalThreat_SendsWhenScoreClearsThreshold(t *testing.T) {
	ctx := context.Background()
	d, rules, _, _, mail, notifications := newTestDispatcher(t)

	rule, err := notification.NewRule(notification.RuleCriticalThreat, 8.0, "", []string{"soc@example.com"})
	require.NoError(t, err)
	require.NoError(t, rules.Create(ctx, rule))

	base := 9.1
	th, err := threat.New(uuid.New(), "Critical RCE", "desc", "CVE-2026-9999", &base, "AV:N", "", nil, nil)
	require.NoError(t, err)

	breakdown := risk.Breakdown{BaseCVSSScore: base, FinalRiskScore: 9.1, AffectedAssetCount: 3}
	require.NoError(t, d.DispatchCriticalThreat(ctx, th, breakdown))

	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].Subject, "CVE-2026-9999")
	assert.Equal(t, []string{"soc@example.com"}, mail.sent[0].Recipients)

	sent, err := notifications.FindByRuleID(ctx, rule.ID())
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, notification.DeliverySent, sent[0].Status())
}

func TestDispatchCriticalThreat_SkipsRuleBelowScoreThreshold(t *testing.T) {
	ctx := context.Background()
	d, rules, _, _, mail, _ := newTestDispatcher(t)

	rule, err := notification.NewRule(notification.RuleCriticalThreat, 9.0, "", []string{"soc@example.com"})
	require.NoError(t, err)
	require.NoError(t, rules.Create(ctx, rule))

	base := 7.0
	th, err := threat.New(uuid.New(), "Moderate issue", "desc", "CVE-2026-0001", &base, "", "", nil, nil)
	require.NoError(t, err)

	require.NoError(t, d.DispatchCriticalThreat(ctx, th, risk.Breakdown{FinalRiskScore: 7.0}))
	assert.Empty(t, mail.sent)
}

func TestDispatchCriticalThreat_SkipsDisabledRule(t *testing.T) {
	ctx := context.Background()
	d, rules, _, _, mail, _ := newTestDispatcher(t)

	rule, err := notification.NewRule(notification.RuleCriticalThreat, 5.0, "", []string{"soc@example.com"})
	require.NoError(t, err)
	disabled := false
	require.NoError(t, rule.Update(&disabled, nil, nil, nil))
	require.NoError(t, rules.Create(ctx, rule))

	base := 9.9
	th, err := threat.New(uuid.New(), "Critical RCE", "desc", "CVE-2026-0002", &base, "", "", nil, nil)
	require.NoError(t, err)

	require.NoError(t, d.DispatchCriticalThreat(ctx, th, risk.Breakdown{FinalRiskScore: 9.9}))
	assert.Empty(t, mail.sent)
}

func TestDispatchCriticalThreat_MailFailureRecordsFailedNotificationWithoutError(t *testing.T) {
	ctx := context.Background()
	d, rules, _, _, mail, notifications := newTestDispatcher(t)
	mail.failNext = true

	rule, err := notification.NewRule(notification.RuleCriticalThreat, 5.0, "", []string{"soc@example.com"})
	require.NoError(t, err)
	require.NoError(t, rules.Create(ctx, rule))

	base := 9.0
	th, err := threat.New(uuid.New(), "Critical RCE", "desc", "CVE-2026-0003", &base, "", "", nil, nil)
	require.NoError(t, err)

	require.NoError(t, d.DispatchCriticalThreat(ctx, th, risk.Breakdown{FinalRiskScore: 9.0}))

	sent, err := notifications.FindByRuleID(ctx, rule.ID())
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, notification.DeliveryFailed, sent[0].Status())
	assert.NotEmpty(t, sent[0].ErrorText())
}

func TestDispatchDailyDigest_OnlyQualifyingThreatsCounted(t *testing.T) {
	ctx := context.Background()
	d, rules, threats, assessments, mail, _ := newTestDispatcher(t)

	rule, err := notification.NewRule(notification.RuleHighRiskDailyDigest, 6.0, "08:00", []string{"ciso@example.com"})
	require.NoError(t, err)
	require.NoError(t, rules.Create(ctx, rule))

	asOf := time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC)
	within := asOf.Add(-1 * time.Hour)

	highBase := 7.5
	high := threat.Rehydrate(uuid.New(), uuid.New(), "CVE-2026-1111", "High risk threat", "desc", &highBase, "",
		threat.SeverityFromCVSS(highBase), threat.StatusNew, nil, within, "", nil, nil, nil, nil, within, within)
	require.NoError(t, threats.Create(ctx, high))
	highAssessment, err := risk.New(high.ID(), uuid.New(), risk.Breakdown{BaseCVSSScore: highBase, FinalRiskScore: 7.5, AffectedAssetCount: 2})
	require.NoError(t, err)
	require.NoError(t, assessments.Upsert(ctx, highAssessment))

	lowBase := 3.0
	low := threat.Rehydrate(uuid.New(), uuid.New(), "CVE-2026-2222", "Low risk threat", "desc", &lowBase, "",
		threat.SeverityFromCVSS(lowBase), threat.StatusNew, nil, within, "", nil, nil, nil, nil, within, within)
	require.NoError(t, threats.Create(ctx, low))
	lowAssessment, err := risk.New(low.ID(), uuid.New(), risk.Breakdown{BaseCVSSScore: lowBase, FinalRiskScore: 3.0, AffectedAssetCount: 1})
	require.NoError(t, err)
	require.NoError(t, assessments.Upsert(ctx, lowAssessment))

	require.NoError(t, d.DispatchDailyDigest(ctx, asOf))

	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].Body, "CVE-2026-1111")
	assert.NotContains(t, mail.sent[0].Body, "CVE-2026-2222")
	assert.Contains(t, mail.sent[0].Body, "Threats: 1")
	assert.Contains(t, mail.sent[0].Body, "Affected assets: 2")
}

func TestDispatchDailyDigest_NoQualifyingThreatsSendsNothing(t *testing.T) {
	ctx := context.Background()
	d, rules, _, _, mail, _ := newTestDispatcher(t)

	rule, err := notification.NewRule(notification.RuleHighRiskDailyDigest, 8.0, "08:00", []string{"ciso@example.com"})
	require.NoError(t, err)
	require.NoError(t, rules.Create(ctx, rule))

	require.NoError(t, d.DispatchDailyDigest(ctx, time.Now()))
	assert.Empty(t, mail.sent)
}

func TestDispatchWeeklyReportNotice_SendsWithFallbackSummaryWhenNoneGenerated(t *testing.T) {
	ctx := context.Background()
	d, rules, _, _, mail, _ := newTestDispatcher(t)

	rule, err := notification.NewRule(notification.RuleWeeklyReport, 0.0, "", []string{"ciso@example.com"})
	require.NoError(t, err)
	require.NoError(t, rules.Create(ctx, rule))

	rpt, err := report.New(report.KindCisoWeekly, "CISO Weekly Report 2026-07-31", "reports/ciso-weekly.html", report.FormatHTML, nil, nil, "", nil)
	require.NoError(t, err)

	require.NoError(t, d.DispatchWeeklyReportNotice(ctx, rpt))
	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].Body, "ready for review")
}
