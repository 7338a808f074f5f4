package scoring

import (
	"context"

	"github.com/aetim/core/internal/domain/asset"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service computes and persists risk assessments for (threat, asset)
// associations, appending the prior breakdown to history on every rescore.
type Service struct {
	threats      outbound.ThreatRepository
	feeds        outbound.FeedRepository
	assets       outbound.AssetRepository
	pirs         outbound.PIRRepository
	assessments  outbound.RiskAssessmentRepository
	associations outbound.AssociationRepository
	bus          outbound.EventBus
	logger       *zap.Logger
}

func NewService(
	threats outbound.ThreatRepository,
	feeds outbound.FeedRepository,
	assets outbound.AssetRepository,
	pirs outbound.PIRRepository,
	assessments outbound.RiskAssessmentRepository,
	associations outbound.AssociationRepository,
	bus outbound.EventBus,
	logger *zap.Logger,
) *Service {
	return &Service{
		threats:      threats,
		feeds:        feeds,
		assets:       assets,
		pirs:         pirs,
		assessments:  assessments,
		associations: associations,
		bus:          bus,
		logger:       logger.Named("scoring"),
	}
}

// ScoreAssociation computes (or rescores) the risk assessment for a single
// (threat, association) pair, using every asset currently associated with
// the threat to derive the importance and count weights.
func (s *Service) ScoreAssociation(ctx context.Context, threatID, associationID uuid.UUID) error {
	t, err := s.threats.FindByID(ctx, threatID)
	if err != nil {
		return err
	}

	assocs, err := s.associations.FindByThreatID(ctx, threatID)
	if err != nil {
		return err
	}

	var affected []*asset.Asset
	for _, a := range assocs {
		assetEntity, err := s.assets.FindByID(ctx, a.AssetID())
		if err != nil {
			s.logger.Warn("scoring: asset lookup failed", zap.Error(err))
			continue
		}
		affected = append(affected, assetEntity)
	}

	enabledPIRs, err := s.pirs.FindEnabled(ctx)
	if err != nil {
		return err
	}

	isCISAKEV := false
	if feed, err := s.feeds.FindByID(ctx, t.FeedID()); err == nil {
		isCISAKEV = feed.IsCISAKEV()
	}

	breakdown := Calculate(t, affected, enabledPIRs, isCISAKEV)

	existing, err := s.assessments.FindByAssociationID(ctx, associationID)
	if err == nil && existing != nil {
		s.appendHistory(ctx, existing)
		if err := existing.Rescore(breakdown); err != nil {
			return err
		}
		if err := s.assessments.Upsert(ctx, existing); err != nil {
			return err
		}
		s.publish(ctx, existing)
		return nil
	}

	assessment, err := risk.New(threatID, associationID, breakdown)
	if err != nil {
		return err
	}
	if err := s.assessments.Upsert(ctx, assessment); err != nil {
		return err
	}
	s.publish(ctx, assessment)
	return nil
}

func (s *Service) appendHistory(ctx context.Context, a *risk.Assessment) {
	entry := risk.NewHistoryEntry(a.ID(), a.Breakdown())
	if err := s.assessments.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("scoring: history append failed", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, a *risk.Assessment) {
	for _, e := range a.Events() {
		s.bus.Publish(ctx, e)
	}
}
