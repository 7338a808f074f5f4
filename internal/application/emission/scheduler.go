package emission

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/ports/outbound"
)

// ReportScheduler owns the two clock-triggered emission paths the event
// bus cannot drive on its own: the CISO weekly digest and the
// HighRiskDailyDigest notification rule. Both fire on a schedule rather
// than in reaction to a domain event, so neither belongs behind
// eventbus.Bus.Subscribe the way the ticket and critical-threat/
// weekly-report notices do.
type ReportScheduler struct {
	schedules    outbound.ScheduleRepository
	weekly       *WeeklyReportGenerator
	notifier     *NotificationDispatcher
	cron         *cron.Cron
	fallbackCron string
	operatorTZ   string
	logger       *zap.Logger
}

// NewReportScheduler builds a scheduler. fallbackCron is used for the
// weekly report only when the operator has not configured any
// report.Schedule rows yet (a fresh install); operatorTZ is also the zone
// DispatchDailyDigest uses to evaluate each HighRiskDailyDigest rule's
// send-time.
func NewReportScheduler(
	schedules outbound.ScheduleRepository,
	weekly *WeeklyReportGenerator,
	notifier *NotificationDispatcher,
	fallbackCron, operatorTZ string,
	logger *zap.Logger,
) *ReportScheduler {
	return &ReportScheduler{
		schedules: schedules, weekly: weekly, notifier: notifier,
		cron: cron.New(), fallbackCron: fallbackCron, operatorTZ: operatorTZ,
		logger: logger.Named("emission.scheduler"),
	}
}

// Start registers one cron entry per enabled report.Schedule row, each in
// its own timezone, falling back to a single default weekly-report entry
// if none are configured yet. It also registers a per-minute tick that
// lets NotificationDispatcher.DispatchDailyDigest enforce each
// HighRiskDailyDigest rule's own send-time.
func (s *ReportScheduler) Start(ctx context.Context) error {
	scheds, err := s.schedules.FindEnabled(ctx)
	if err != nil {
		return err
	}

	if len(scheds) == 0 {
		fallbackSpec := "CRON_TZ=" + s.operatorTZ + " " + s.fallbackCron
		if _, err := s.cron.AddFunc(fallbackSpec, func() { s.runWeeklyReport(context.Background(), s.operatorTZ) }); err != nil {
			return err
		}
		s.logger.Info("no report schedules configured, using default weekly-report cron",
			zap.String("cron", s.fallbackCron), zap.String("tz", s.operatorTZ))
	} else {
		for _, sch := range scheds {
			tz := sch.Timezone()
			spec := "CRON_TZ=" + tz + " " + sch.CronExpression()
			if _, err := s.cron.AddFunc(spec, func() { s.runWeeklyReport(context.Background(), tz) }); err != nil {
				s.logger.Warn("skipping malformed report schedule", zap.String("schedule", sch.Name()), zap.Error(err))
			}
		}
	}

	if _, err := s.cron.AddFunc("* * * * *", func() { s.runDailyDigestTick(context.Background()) }); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *ReportScheduler) Stop() {
	s.cron.Stop()
}

// runWeeklyReport renders the CISO digest for the previous Mon-00:00 to
// Sun-23:59 window in tz.
func (s *ReportScheduler) runWeeklyReport(ctx context.Context, tz string) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	periodStart, periodEnd := previousReportWeek(time.Now().In(loc), loc)

	if _, err := s.weekly.Generate(ctx, periodStart, periodEnd, report.FormatHTML); err != nil {
		s.logger.Error("weekly report generation failed", zap.Error(err))
	}
}

// previousReportWeek returns [Mon 00:00, Sun 23:59] for the week that
// ended most recently at or before asOf, in loc.
func previousReportWeek(asOf time.Time, loc *time.Location) (time.Time, time.Time) {
	daysSinceSunday := int(asOf.Weekday())
	if daysSinceSunday == 0 {
		daysSinceSunday = 7
	}
	sunday := asOf.AddDate(0, 0, -daysSinceSunday)
	periodEnd := time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, 0, loc)
	monday := sunday.AddDate(0, 0, -6)
	periodStart := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc)
	return periodStart, periodEnd
}

func (s *ReportScheduler) runDailyDigestTick(ctx context.Context) {
	if err := s.notifier.DispatchDailyDigest(ctx, time.Now()); err != nil {
		s.logger.Warn("daily digest dispatch failed", zap.Error(err))
	}
}
