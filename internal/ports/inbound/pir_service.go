package inbound

import (
	"context"

	"github.com/aetim/core/internal/domain/pir"
	"github.com/aetim/core/internal/domain/shared"
	"github.com/google/uuid"
)

// PIRService is the primary port for Priority-of-Interest Rule management.
type PIRService interface {
	CreatePIR(ctx context.Context, cmd CreatePIRCommand) (*pir.PIR, error)
	UpdatePIR(ctx context.Context, cmd UpdatePIRCommand) (*pir.PIR, error)
	TogglePIR(ctx context.Context, pirID uuid.UUID, principal shared.Principal, origin shared.Origin) (*pir.PIR, error)
	ListPIRs(ctx context.Context) ([]*pir.PIR, error)
}

type CreatePIRCommand struct {
	Name           string
	Description    string
	Priority       pir.Priority
	ConditionType  pir.ConditionType
	ConditionValue string
	Principal      shared.Principal
	Origin         shared.Origin
}

type UpdatePIRCommand struct {
	PIRID          uuid.UUID
	Name           *string
	Description    *string
	Priority       *pir.Priority
	ConditionType  *pir.ConditionType
	ConditionValue *string
	Principal      shared.Principal
	Origin         shared.Origin
}
