package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/aetim/core/internal/infrastructure/persistence/memory"
)

func newTestGate() *Gate {
	return NewGate(memory.NewAuditRepository(), zap.NewNop())
}

func TestRequire_CISOBypassesPermissionTable(t *testing.T) {
	gate := newTestGate()
	principal := shared.Principal{SubjectID: "u1", Roles: []string{RoleCISO}}

	err := gate.Require(context.Background(), principal, shared.Origin{}, "asset:write", "asset", "a1")
	assert.NoError(t, err)
}

func TestRequire_ViewerHasReadOnlyPermissions(t *testing.T) {
	gate := newTestGate()
	principal := shared.Principal{SubjectID: "u1", Roles: []string{RoleViewer}}

	assert.NoError(t, gate.Require(context.Background(), principal, shared.Origin{}, "threat:read", "threat", "t1"))
	assert.ErrorIs(t, gate.Require(context.Background(), principal, shared.Origin{}, "threat:update", "threat", "t1"), ErrPermissionDenied)
}

func TestRequire_AnalystCanUpdateButNotWriteAssets(t *testing.T) {
	gate := newTestGate()
	principal := shared.Principal{SubjectID: "u1", Roles: []string{RoleAnalyst}}

	assert.NoError(t, gate.Require(context.Background(), principal, shared.Origin{}, "threat:update", "threat", "t1"))
	assert.ErrorIs(t, gate.Require(context.Background(), principal, shared.Origin{}, "asset:write", "asset", "a1"), ErrPermissionDenied)
}

func TestRequire_ITAdminCanWriteAssetsAndFeeds(t *testing.T) {
	gate := newTestGate()
	principal := shared.Principal{SubjectID: "u1", Roles: []string{RoleITAdmin}}

	assert.NoError(t, gate.Require(context.Background(), principal, shared.Origin{}, "asset:write", "asset", "a1"))
	assert.NoError(t, gate.Require(context.Background(), principal, shared.Origin{}, "feed:run", "feed", "f1"))
}

func TestRequire_DeniedPermissionIsAudited(t *testing.T) {
	repo := memory.NewAuditRepository()
	gate := NewGate(repo, zap.NewNop())
	principal := shared.Principal{SubjectID: "u1", Roles: []string{RoleViewer}}

	err := gate.Require(context.Background(), principal, shared.Origin{IP: "10.0.0.1"}, "asset:write", "asset", "a1")
	require.ErrorIs(t, err, ErrPermissionDenied)

	entries, err := repo.FindByResource(context.Background(), "asset", "a1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].SubjectID)
	assert.Equal(t, "denied", entries[0].Details["status"])
}

func TestRequireRole_CISOBypasses(t *testing.T) {
	gate := newTestGate()
	principal := shared.Principal{SubjectID: "u1", Roles: []string{RoleCISO}}

	err := gate.RequireRole(context.Background(), principal, shared.Origin{}, RoleITAdmin, "report", "r1")
	assert.NoError(t, err)
}

func TestRequireRole_MatchingRolePasses(t *testing.T) {
	gate := newTestGate()
	principal := shared.Principal{SubjectID: "u1", Roles: []string{RoleITAdmin}}

	err := gate.RequireRole(context.Background(), principal, shared.Origin{}, RoleITAdmin, "report", "r1")
	assert.NoError(t, err)
}

func TestRequireRole_MismatchedRoleDenied(t *testing.T) {
	gate := newTestGate()
	principal := shared.Principal{SubjectID: "u1", Roles: []string{RoleAnalyst}}

	err := gate.RequireRole(context.Background(), principal, shared.Origin{}, RoleITAdmin, "report", "r1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
