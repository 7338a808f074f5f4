// Package pirmgmt implements the inbound PIRService port: analyst CRUD
// over Priority-of-Interest Rules, gated through the authorization layer.
package pirmgmt

import (
	"context"

	appaudit "github.com/aetim/core/internal/application/audit"
	domainaudit "github.com/aetim/core/internal/domain/audit"
	"github.com/aetim/core/internal/domain/pir"
	"github.com/aetim/core/internal/domain/shared"
	"github.com/aetim/core/internal/ports/inbound"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

const resourceKind = "pir"

// Service implements inbound.PIRService.
type Service struct {
	pirs outbound.PIRRepository
	gate *appaudit.Gate
	sink *appaudit.Sink
}

func NewService(pirs outbound.PIRRepository, gate *appaudit.Gate, sink *appaudit.Sink) *Service {
	return &Service{pirs: pirs, gate: gate, sink: sink}
}

var _ inbound.PIRService = (*Service)(nil)

func (s *Service) CreatePIR(ctx context.Context, cmd inbound.CreatePIRCommand) (*pir.PIR, error) {
	if err := s.gate.Require(ctx, cmd.Principal, cmd.Origin, "pir:write", resourceKind, ""); err != nil {
		return nil, err
	}

	p, err := pir.New(cmd.Name, cmd.Description, cmd.Priority, cmd.ConditionType, cmd.ConditionValue)
	if err != nil {
		return nil, err
	}
	if err := s.pirs.Create(ctx, p); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, cmd.Principal, cmd.Origin, domainaudit.VerbCreate, resourceKind, p.ID().String(), map[string]any{"name": p.Name()})
	return p, nil
}

func (s *Service) UpdatePIR(ctx context.Context, cmd inbound.UpdatePIRCommand) (*pir.PIR, error) {
	if err := s.gate.Require(ctx, cmd.Principal, cmd.Origin, "pir:write", resourceKind, cmd.PIRID.String()); err != nil {
		return nil, err
	}

	p, err := s.pirs.FindByID(ctx, cmd.PIRID)
	if err != nil {
		return nil, err
	}

	replacement, err := applyPIRPatch(p, cmd)
	if err != nil {
		return nil, err
	}
	if err := s.pirs.Update(ctx, replacement); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, cmd.Principal, cmd.Origin, domainaudit.VerbUpdate, resourceKind, replacement.ID().String(), nil)
	return replacement, nil
}

// applyPIRPatch rebuilds a PIR from its current state plus any non-nil
// patch fields. PIR has no in-place field setters beyond Toggle, so a
// patched update goes through Rehydrate with the merged values.
func applyPIRPatch(p *pir.PIR, cmd inbound.UpdatePIRCommand) (*pir.PIR, error) {
	name := p.Name()
	if cmd.Name != nil {
		name = *cmd.Name
	}
	description := p.Description()
	if cmd.Description != nil {
		description = *cmd.Description
	}
	priority := p.Priority()
	if cmd.Priority != nil {
		priority = *cmd.Priority
	}
	conditionType := p.ConditionType()
	if cmd.ConditionType != nil {
		conditionType = *cmd.ConditionType
	}
	conditionValue := p.ConditionValue()
	if cmd.ConditionValue != nil {
		conditionValue = *cmd.ConditionValue
	}

	if !priority.Valid() {
		return nil, pir.ErrInvalidPriority
	}
	if !conditionType.Valid() {
		return nil, pir.ErrInvalidConditionType
	}

	return pir.Rehydrate(p.ID(), name, description, priority, conditionType, conditionValue, p.Enabled(), p.CreatedAt(), p.UpdatedAt()), nil
}

func (s *Service) TogglePIR(ctx context.Context, pirID uuid.UUID, principal shared.Principal, origin shared.Origin) (*pir.PIR, error) {
	if err := s.gate.Require(ctx, principal, origin, "pir:write", resourceKind, pirID.String()); err != nil {
		return nil, err
	}

	p, err := s.pirs.FindByID(ctx, pirID)
	if err != nil {
		return nil, err
	}
	p.Toggle()
	if err := s.pirs.Update(ctx, p); err != nil {
		return nil, err
	}

	s.sink.Record(ctx, principal, origin, domainaudit.VerbToggle, resourceKind, p.ID().String(), map[string]any{"enabled": p.Enabled()})
	return p, nil
}

func (s *Service) ListPIRs(ctx context.Context) ([]*pir.PIR, error) {
	return s.pirs.FindAll(ctx)
}
