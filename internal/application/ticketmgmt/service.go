// Package ticketmgmt implements the inbound TicketService port: IT ticket
// lifecycle transitions and single/batch export, gated through the
// authorization layer.
package ticketmgmt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	appaudit "github.com/aetim/core/internal/application/audit"
	domainaudit "github.com/aetim/core/internal/domain/audit"
	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/ports/inbound"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const resourceKind = "ticket"

// Service implements inbound.TicketService.
type Service struct {
	reports outbound.ReportRepository
	storage outbound.StorageService
	bus     outbound.EventBus
	gate    *appaudit.Gate
	sink    *appaudit.Sink
	logger  *zap.Logger
}

func NewService(
	reports outbound.ReportRepository,
	storage outbound.StorageService,
	bus outbound.EventBus,
	gate *appaudit.Gate,
	sink *appaudit.Sink,
	logger *zap.Logger,
) *Service {
	return &Service{reports: reports, storage: storage, bus: bus, gate: gate, sink: sink, logger: logger.Named("ticketmgmt")}
}

var _ inbound.TicketService = (*Service)(nil)

func (s *Service) TransitionTicket(ctx context.Context, cmd inbound.TransitionTicketCommand) (*report.Report, error) {
	if err := s.gate.Require(ctx, cmd.Principal, cmd.Origin, "ticket:update", resourceKind, cmd.TicketID.String()); err != nil {
		return nil, err
	}

	rpt, err := s.reports.FindByID(ctx, cmd.TicketID)
	if err != nil {
		return nil, err
	}
	if err := rpt.TransitionTicket(cmd.NewStatus); err != nil {
		return nil, err
	}
	if err := s.reports.Update(ctx, rpt); err != nil {
		return nil, err
	}
	for _, e := range rpt.Events() {
		s.bus.Publish(ctx, e)
	}

	s.sink.Record(ctx, cmd.Principal, cmd.Origin, domainaudit.VerbUpdate, resourceKind, rpt.ID().String(), map[string]any{"new_status": string(cmd.NewStatus)})
	return rpt, nil
}

func (s *Service) GetTicket(ctx context.Context, ticketID uuid.UUID) (*report.Report, error) {
	return s.reports.FindByID(ctx, ticketID)
}

func (s *Service) ListTicketsByStatus(ctx context.Context, status report.TicketStatus) ([]*report.Report, error) {
	return s.reports.FindTicketsByStatus(ctx, status)
}

// ExportTicket returns the ticket's rendered bytes. When the requested
// format matches the format it was generated in, the stored artefact is
// returned unchanged; otherwise it is re-rendered on the fly from the
// report's own metadata (a lighter-weight render than the original,
// since the full risk breakdown that produced it is not retained).
func (s *Service) ExportTicket(ctx context.Context, ticketID uuid.UUID, format report.Format) ([]byte, error) {
	rpt, err := s.reports.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if rpt.Format() == format {
		return s.storage.Read(ctx, rpt.Path())
	}
	return renderTicketAs(rpt, format)
}

func (s *Service) ExportTicketBatch(ctx context.Context, ticketIDs []uuid.UUID, format report.Format) (inbound.BatchTicketExport, error) {
	export := inbound.BatchTicketExport{ExportedAt: time.Now().Format(time.RFC3339), TicketCount: 0}

	for _, id := range ticketIDs {
		content, err := s.ExportTicket(ctx, id, format)
		if err != nil {
			s.logger.Warn("batch export: ticket skipped", zap.String("ticket_id", id.String()), zap.Error(err))
			continue
		}
		export.Tickets = append(export.Tickets, content)
		export.TicketCount++
	}
	return export, nil
}

func renderTicketAs(rpt *report.Report, format report.Format) ([]byte, error) {
	switch format {
	case report.FormatJSON:
		payload := map[string]any{
			"id":              rpt.ID().String(),
			"title":           rpt.Title(),
			"status":          rpt.TicketStatus(),
			"priority":        rpt.TicketPriority(),
			"generated_at":    rpt.GeneratedAt(),
			"metadata":        rpt.Metadata(),
		}
		return json.MarshalIndent(payload, "", "  ")
	default:
		var sb bytes.Buffer
		fmt.Fprintf(&sb, "%s\n\n", rpt.Title())
		for k, v := range rpt.Metadata() {
			fmt.Fprintf(&sb, "%s: %s\n", strings.ToUpper(k), v)
		}
		if rpt.TicketStatus() != nil {
			fmt.Fprintf(&sb, "Ticket status: %s\n", *rpt.TicketStatus())
		}
		return sb.Bytes(), nil
	}
}
