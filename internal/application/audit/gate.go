// Package audit implements the authorization gate (C10) and the
// append-only audit sink. Every command that mutates state, or reads
// something sensitive, passes through Gate.Require before taking effect;
// denials are themselves recorded as audit entries, matching every other
// outcome the sink writes.
package audit

import (
	"context"
	"errors"

	"github.com/aetim/core/internal/domain/audit"
	"github.com/aetim/core/internal/domain/shared"
	"github.com/aetim/core/internal/ports/outbound"
	"go.uber.org/zap"
)

// Role names recognized by the gate. CISO carries every permission;
// the rest are layered, each a superset of the one before it.
const (
	RoleCISO    = "ciso"
	RoleITAdmin = "it_admin"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

var viewerPermissions = []string{
	"feed:read", "threat:read", "asset:read", "pir:read",
	"risk:read", "report:read", "ticket:read", "audit:read",
	"notification:read",
}

var analystPermissions = append(append([]string{}, viewerPermissions...),
	"threat:update", "association:update", "ticket:update", "report:export",
)

var itAdminPermissions = append(append([]string{}, analystPermissions...),
	"asset:write", "feed:write", "feed:toggle", "pir:write",
	"notification:write", "feed:run",
)

var rolePermissions = map[string]map[string]bool{
	RoleViewer:  toSet(viewerPermissions),
	RoleAnalyst: toSet(analystPermissions),
	RoleITAdmin: toSet(itAdminPermissions),
}

func toSet(perms []string) map[string]bool {
	set := make(map[string]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return set
}

// ErrPermissionDenied is returned when the principal's roles carry none
// of the permissions required for the attempted action.
var ErrPermissionDenied = errors.New("audit: permission denied")

// Gate enforces role-based access control ahead of every protected
// command, recording denials to the audit trail.
type Gate struct {
	repo   outbound.AuditRepository
	logger *zap.Logger
}

func NewGate(repo outbound.AuditRepository, logger *zap.Logger) *Gate {
	return &Gate{repo: repo, logger: logger.Named("authz")}
}

// Require checks whether principal holds permission (formatted
// "resource:action", e.g. "feed:write"). CISO bypasses the table
// entirely. On denial, a VIEW audit entry is appended recording the
// attempted permission and the caller gets ErrPermissionDenied.
func (g *Gate) Require(ctx context.Context, principal shared.Principal, origin shared.Origin, permission, resourceKind, resourceID string) error {
	if g.hasPermission(principal, permission) {
		return nil
	}

	details := map[string]any{
		"permission": permission,
		"status":     "denied",
	}
	entry, err := audit.New(principal.SubjectID, audit.VerbView, resourceKind, resourceID, details, origin.IP, origin.UserAgent)
	if err == nil {
		if appendErr := g.repo.Append(ctx, entry); appendErr != nil {
			g.logger.Warn("failed to persist permission-denied audit entry", zap.Error(appendErr))
		}
	}

	g.logger.Warn("permission denied",
		zap.String("subject_id", principal.SubjectID),
		zap.Strings("roles", principal.Roles),
		zap.String("permission", permission),
		zap.String("resource_kind", resourceKind),
	)

	return ErrPermissionDenied
}

// RequireRole checks membership in a specific role rather than a granted
// permission, for operations gated on identity rather than capability
// (e.g. CISO-only report distribution overrides). Denials are audited
// the same way as Require.
func (g *Gate) RequireRole(ctx context.Context, principal shared.Principal, origin shared.Origin, role, resourceKind, resourceID string) error {
	if principal.HasRole(RoleCISO) || principal.HasRole(role) {
		return nil
	}

	details := map[string]any{"role": role, "status": "denied"}
	entry, err := audit.New(principal.SubjectID, audit.VerbView, resourceKind, resourceID, details, origin.IP, origin.UserAgent)
	if err == nil {
		if appendErr := g.repo.Append(ctx, entry); appendErr != nil {
			g.logger.Warn("failed to persist role-denied audit entry", zap.Error(appendErr))
		}
	}

	g.logger.Warn("role denied",
		zap.String("subject_id", principal.SubjectID),
		zap.Strings("roles", principal.Roles),
		zap.String("required_role", role),
	)

	return ErrPermissionDenied
}

func (g *Gate) hasPermission(principal shared.Principal, permission string) bool {
	for _, role := range principal.Roles {
		if role == RoleCISO {
			return true
		}
		if set, ok := rolePermissions[role]; ok && set[permission] {
			return true
		}
	}
	return false
}
