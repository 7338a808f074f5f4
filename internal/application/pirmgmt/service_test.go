package pirmgmt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appaudit "github.com/aetim/core/internal/application/audit"
	"github.com/aetim/core/internal/domain/pir"
	"github.com/aetim/core/internal/domain/shared"
	"github.com/aetim/core/internal/infrastructure/persistence/memory"
	"github.com/aetim/core/internal/ports/inbound"
)

func newTestService(t *testing.T) (*Service, *memory.PIRRepository) {
	pirs := memory.NewPIRRepository()
	auditRepo := memory.NewAuditRepository()
	gate := appaudit.NewGate(auditRepo, zap.NewNop())
	sink := appaudit.NewSink(auditRepo, zap.NewNop())
	return NewService(pirs, gate, sink), pirs.(*memory.PIRRepository)
}

var itAdmin = shared.Principal{SubjectID: "admin-1", Roles: []string{appaudit.RoleITAdmin}}
var viewer = shared.Principal{SubjectID: "viewer-1", Roles: []string{appaudit.RoleViewer}}
var noOrigin = shared.Origin{}

func TestCreatePIR_SucceedsForITAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	p, err := svc.CreatePIR(ctx, inbound.CreatePIRCommand{
		Name: "Apache threats", Description: "Track Apache advisories", Priority: pir.PriorityHigh,
		ConditionType: pir.ConditionProductName, ConditionValue: "apache",
		Principal: itAdmin, Origin: noOrigin,
	})
	require.NoError(t, err)
	assert.Equal(t, "Apache threats", p.Name())
	assert.True(t, p.Enabled())
}

func TestCreatePIR_DeniedForViewer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreatePIR(ctx, inbound.CreatePIRCommand{
		Name: "Apache threats", Priority: pir.PriorityHigh,
		ConditionType: pir.ConditionProductName, ConditionValue: "apache",
		Principal: viewer, Origin: noOrigin,
	})
	assert.ErrorIs(t, err, appaudit.ErrPermissionDenied)
}

func TestCreatePIR_InvalidDomainInputPropagatesError(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreatePIR(ctx, inbound.CreatePIRCommand{
		Name: "", Priority: pir.PriorityHigh,
		ConditionType: pir.ConditionProductName, ConditionValue: "apache",
		Principal: itAdmin, Origin: noOrigin,
	})
	assert.Error(t, err)
}

func TestUpdatePIR_PatchesOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.CreatePIR(ctx, inbound.CreatePIRCommand{
		Name: "Apache threats", Description: "Track Apache advisories", Priority: pir.PriorityHigh,
		ConditionType: pir.ConditionProductName, ConditionValue: "apache",
		Principal: itAdmin, Origin: noOrigin,
	})
	require.NoError(t, err)

	newName := "Apache and Nginx threats"
	updated, err := svc.UpdatePIR(ctx, inbound.UpdatePIRCommand{
		PIRID: created.ID(), Name: &newName,
		Principal: itAdmin, Origin: noOrigin,
	})
	require.NoError(t, err)
	assert.Equal(t, "Apache and Nginx threats", updated.Name())
	assert.Equal(t, pir.PriorityHigh, updated.Priority())
	assert.Equal(t, "apache", updated.ConditionValue())
}

func TestUpdatePIR_RejectsInvalidPatchedPriority(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.CreatePIR(ctx, inbound.CreatePIRCommand{
		Name: "Apache threats", Description: "Track Apache advisories", Priority: pir.PriorityHigh,
		ConditionType: pir.ConditionProductName, ConditionValue: "apache",
		Principal: itAdmin, Origin: noOrigin,
	})
	require.NoError(t, err)

	badPriority := pir.Priority("Urgent")
	_, err = svc.UpdatePIR(ctx, inbound.UpdatePIRCommand{
		PIRID: created.ID(), Priority: &badPriority,
		Principal: itAdmin, Origin: noOrigin,
	})
	assert.ErrorIs(t, err, pir.ErrInvalidPriority)
}

func TestTogglePIR_FlipsEnabledAndPersists(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	created, err := svc.CreatePIR(ctx, inbound.CreatePIRCommand{
		Name: "Apache threats", Description: "Track Apache advisories", Priority: pir.PriorityHigh,
		ConditionType: pir.ConditionProductName, ConditionValue: "apache",
		Principal: itAdmin, Origin: noOrigin,
	})
	require.NoError(t, err)

	toggled, err := svc.TogglePIR(ctx, created.ID(), itAdmin, noOrigin)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled())

	stored, err := repo.FindByID(ctx, created.ID())
	require.NoError(t, err)
	assert.False(t, stored.Enabled())
}

func TestListPIRs_ReturnsAllCreated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreatePIR(ctx, inbound.CreatePIRCommand{
		Name: "Apache threats", Description: "Track Apache advisories", Priority: pir.PriorityHigh,
		ConditionType: pir.ConditionProductName, ConditionValue: "apache",
		Principal: itAdmin, Origin: noOrigin,
	})
	require.NoError(t, err)
	_, err = svc.CreatePIR(ctx, inbound.CreatePIRCommand{
		Name: "Critical CVSS", Description: "Track critical CVSS scores", Priority: pir.PriorityHigh,
		ConditionType: pir.ConditionCVSSScore, ConditionValue: ">=9.0",
		Principal: itAdmin, Origin: noOrigin,
	})
	require.NoError(t, err)

	all, err := svc.ListPIRs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
