package correlation

import (
	"context"

	"github.com/aetim/core/internal/domain/asset"
	"github.com/aetim/core/internal/domain/association"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service drives the correlation engine against persisted threats and
// assets, upserting Associations and advancing the Threat lifecycle.
type Service struct {
	threats      outbound.ThreatRepository
	assets       outbound.AssetRepository
	associations outbound.AssociationRepository
	bus          outbound.EventBus
	engine       *Engine
	logger       *zap.Logger
}

func NewService(
	threats outbound.ThreatRepository,
	assets outbound.AssetRepository,
	associations outbound.AssociationRepository,
	bus outbound.EventBus,
	logger *zap.Logger,
) *Service {
	return &Service{
		threats:      threats,
		assets:       assets,
		associations: associations,
		bus:          bus,
		engine:       NewEngine(),
		logger:       logger.Named("correlation"),
	}
}

// CorrelateThreat runs the engine for a single threat against the full
// asset inventory, upserting an Association per matched asset. The Threat
// moves New->Analyzing on entry and Analyzing->Processed on completion.
func (s *Service) CorrelateThreat(ctx context.Context, threatID uuid.UUID) error {
	t, err := s.threats.FindByID(ctx, threatID)
	if err != nil {
		return err
	}

	if t.Status() == threat.StatusNew {
		if err := t.UpdateStatus(threat.StatusAnalyzing); err != nil {
			return err
		}
		if err := s.threats.Update(ctx, t); err != nil {
			return err
		}
		s.publishThreatEvents(ctx, t)
	}

	assets, err := s.assets.FindAll(ctx)
	if err != nil {
		return err
	}

	results := s.engine.Correlate(t, assets)
	for _, r := range results {
		if err := s.upsert(ctx, threatID, r); err != nil {
			s.logger.Warn("association upsert failed", zap.Error(err), zap.String("asset_id", r.AssetID.String()))
		}
	}

	if t.Status() == threat.StatusAnalyzing {
		if err := t.UpdateStatus(threat.StatusProcessed); err != nil {
			return err
		}
		if err := s.threats.Update(ctx, t); err != nil {
			return err
		}
		s.publishThreatEvents(ctx, t)
	}

	return nil
}

// RecorrelateAsset re-runs matching for a single asset against every
// threat currently associated with it, rescoring in place. Called when
// the asset-management collaborator reports a product/OS change.
func (s *Service) RecorrelateAsset(ctx context.Context, assetID uuid.UUID) error {
	a, err := s.assets.FindByID(ctx, assetID)
	if err != nil {
		return err
	}

	existing, err := s.associations.FindByAssetID(ctx, assetID)
	if err != nil {
		return err
	}

	for _, assoc := range existing {
		t, err := s.threats.FindByID(ctx, assoc.ThreatID())
		if err != nil {
			s.logger.Warn("recorrelation: threat lookup failed", zap.Error(err))
			continue
		}

		r, matched := s.rematch(t, a)
		if !matched {
			if err := s.associations.Delete(ctx, assoc.ID()); err != nil {
				s.logger.Warn("recorrelation: stale association delete failed", zap.Error(err))
			}
			continue
		}

		if err := assoc.Rescore(r.Confidence, r.MatchKind, r.Details.json()); err != nil {
			s.logger.Warn("recorrelation: rescore failed", zap.Error(err))
			continue
		}
		if err := s.associations.Upsert(ctx, assoc); err != nil {
			s.logger.Warn("recorrelation: upsert failed", zap.Error(err))
		}
	}

	return nil
}

func (s *Service) rematch(t *threat.Threat, a *asset.Asset) (Result, bool) {
	results := s.engine.Correlate(t, []*asset.Asset{a})
	if len(results) == 0 {
		return Result{}, false
	}
	return results[0], true
}

func (s *Service) upsert(ctx context.Context, threatID uuid.UUID, r Result) error {
	existing, err := s.associations.FindByThreatAndAsset(ctx, threatID, r.AssetID)
	if err == nil && existing != nil {
		if err := existing.Rescore(r.Confidence, r.MatchKind, r.Details.json()); err != nil {
			return err
		}
		return s.associations.Upsert(ctx, existing)
	}

	a, err := association.New(threatID, r.AssetID, r.Confidence, r.MatchKind, r.Details.json())
	if err != nil {
		return err
	}
	if err := s.associations.Upsert(ctx, a); err != nil {
		return err
	}
	for _, e := range a.Events() {
		s.bus.Publish(ctx, e)
	}
	return nil
}

func (s *Service) publishThreatEvents(ctx context.Context, t *threat.Threat) {
	for _, e := range t.Events() {
		s.bus.Publish(ctx, e)
	}
}
