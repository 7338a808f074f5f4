package container

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/aetim/core/internal/application/correlation"
	"github.com/aetim/core/internal/application/emission"
	"github.com/aetim/core/internal/application/scoring"
	"github.com/aetim/core/internal/domain/association"
	"github.com/aetim/core/internal/domain/feed"
	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/shared"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/infrastructure/monitoring"
	"github.com/aetim/core/internal/ports/outbound"
)

// PipelineModule wires the event-bus subscriptions that turn the
// otherwise-independent ingestion, correlation, scoring, and emission
// services into a single flow: ThreatIngested -> correlate ->
// AssociationCreated -> score -> RiskAssessmentCompleted -> ticket +
// critical-threat notice, and ReportGenerated -> weekly-report notice.
// Each service package stays ignorant of this wiring (they only know how
// to publish or be called directly); this is the one place that stitches
// the chain together, keeping the event bus a physical coupling seam
// rather than a compile-time dependency between stages.
var PipelineModule = fx.Invoke(RegisterEventPipeline)

// RegisterEventPipeline subscribes the downstream stage of each handoff
// in the pipeline to the event the upstream stage publishes. Handlers
// never receive a context (shared.EventHandler's signature has none), so
// each uses a background context; every handler error is logged by the
// bus itself (eventbus.Bus.dispatch) rather than propagated, so a failed
// subscriber never interrupts the publisher.
func RegisterEventPipeline(
	bus outbound.EventBus,
	correlator *correlation.Service,
	scorer *scoring.Service,
	tickets *emission.TicketGenerator,
	notifier *emission.NotificationDispatcher,
	assessments outbound.RiskAssessmentRepository,
	threats outbound.ThreatRepository,
	reports outbound.ReportRepository,
	metrics *monitoring.MetricsCollector,
	business *monitoring.BusinessMetrics,
	access *monitoring.RequestLogger,
	logger *zap.Logger,
) {
	log := logger.Named("pipeline")

	bus.Subscribe(feed.CollectionStatusUpdatedEvent{}.EventName(), func(e shared.DomainEvent) error {
		evt, ok := e.(feed.CollectionStatusUpdatedEvent)
		if !ok {
			return nil
		}
		var runErr error
		if evt.ErrorMessage != "" {
			runErr = errors.New(evt.ErrorMessage)
		}
		metrics.FeedCollectionCompleted(evt.Name, string(evt.Status), evt.Elapsed, evt.RecordCount)
		business.RecordCollectionCycle(context.Background(), evt.Name, evt.RecordCount, evt.Elapsed)
		access.Collection(context.Background(), evt.Name, evt.Elapsed, evt.RecordCount, runErr)
		return nil
	})

	bus.Subscribe(threat.IngestedEvent{}.EventName(), func(e shared.DomainEvent) error {
		evt, ok := e.(threat.IngestedEvent)
		if !ok {
			return nil
		}
		return correlator.CorrelateThreat(context.Background(), evt.ThreatID)
	})

	bus.Subscribe(association.CreatedEvent{}.EventName(), func(e shared.DomainEvent) error {
		evt, ok := e.(association.CreatedEvent)
		if !ok {
			return nil
		}
		ctx := context.Background()
		metrics.AssociationCreated()
		business.RecordAssociationCreated(ctx, evt.ThreatID.String(), evt.AssetID.String())

		started := time.Now()
		err := scorer.ScoreAssociation(ctx, evt.ThreatID, evt.AssociationID)
		if err == nil {
			business.RecordRiskAssessment(ctx, evt.AssociationID.String(), time.Since(started))
		}
		return err
	})

	bus.Subscribe(risk.AssessmentCompletedEvent{}.EventName(), func(e shared.DomainEvent) error {
		evt, ok := e.(risk.AssessmentCompletedEvent)
		if !ok {
			return nil
		}
		ctx := context.Background()

		a, err := assessments.FindByAssociationID(ctx, evt.AssociationID)
		if err != nil {
			return err
		}
		t, err := threats.FindByID(ctx, evt.ThreatID)
		if err != nil {
			return err
		}

		if _, err := tickets.GenerateFromAssessment(ctx, a, report.FormatTXT); err != nil && !errors.Is(err, emission.ErrBelowThreshold) {
			log.Warn("ticket generation failed", zap.Error(err), zap.String("threat", evt.ThreatID.String()))
		}

		if err := notifier.DispatchCriticalThreat(ctx, t, a.Breakdown()); err != nil {
			metrics.NotificationSent("critical_threat", "error")
			business.RecordNotificationSent(ctx, "critical_threat", false)
			log.Warn("critical-threat notification failed", zap.Error(err), zap.String("threat", evt.ThreatID.String()))
		} else {
			metrics.NotificationSent("critical_threat", "dispatched")
			business.RecordNotificationSent(ctx, "critical_threat", true)
		}
		return nil
	})

	bus.Subscribe(report.GeneratedEvent{}.EventName(), func(e shared.DomainEvent) error {
		evt, ok := e.(report.GeneratedEvent)
		if !ok {
			return nil
		}
		business.RecordReportGenerated(context.Background(), string(evt.Kind))
		if evt.Kind != report.KindCisoWeekly {
			return nil
		}
		ctx := context.Background()

		rpt, err := reports.FindByID(ctx, evt.ReportID)
		if err != nil {
			return err
		}
		return notifier.DispatchWeeklyReportNotice(ctx, rpt)
	})
}
