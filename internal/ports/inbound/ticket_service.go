package inbound

import (
	"context"

	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/domain/shared"
	"github.com/google/uuid"
)

// TicketService is the primary port for IT ticket lifecycle management
// and export.
type TicketService interface {
	TransitionTicket(ctx context.Context, cmd TransitionTicketCommand) (*report.Report, error)
	GetTicket(ctx context.Context, ticketID uuid.UUID) (*report.Report, error)
	ListTicketsByStatus(ctx context.Context, status report.TicketStatus) ([]*report.Report, error)
	ExportTicket(ctx context.Context, ticketID uuid.UUID, format report.Format) ([]byte, error)
	ExportTicketBatch(ctx context.Context, ticketIDs []uuid.UUID, format report.Format) (BatchTicketExport, error)
}

type TransitionTicketCommand struct {
	TicketID  uuid.UUID
	NewStatus report.TicketStatus
	Principal shared.Principal
	Origin    shared.Origin
}

// BatchTicketExport is the JSON envelope produced by a batch export:
// {exported_at, ticket_count, tickets:[...]}.
type BatchTicketExport struct {
	ExportedAt  string   `json:"exported_at"`
	TicketCount int      `json:"ticket_count"`
	Tickets     [][]byte `json:"tickets"`
}
