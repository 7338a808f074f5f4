// Package emission implements the three output-side components driven by
// a completed risk assessment: IT ticket synthesis (C9.1), CISO weekly
// digest generation (C9.2), and notification dispatch (C9.3).
package emission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/asset"
	"github.com/aetim/core/internal/domain/association"
	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ticketRiskThreshold is the minimum final risk score a (threat, asset)
// assessment must clear before a ticket is synthesised.
const ticketRiskThreshold = 6.0

// affectedAsset is the subset of inventory data surfaced on a ticket.
type affectedAsset struct {
	Hostname        string   `json:"host_name"`
	IPAddress       string   `json:"ip_address"`
	Owner           string   `json:"owner"`
	OperatingSystem string   `json:"operating_system"`
	Products        []string `json:"products"`
	MatchConfidence float64  `json:"match_confidence"`
	MatchKind       string   `json:"match_kind"`
}

// TicketGenerator synthesises an IT ticket report from a risk assessment
// once its final score crosses the remediation threshold.
type TicketGenerator struct {
	threats      outbound.ThreatRepository
	assets       outbound.AssetRepository
	associations outbound.AssociationRepository
	reports      outbound.ReportRepository
	storage      outbound.StorageService
	bus          outbound.EventBus
	logger       *zap.Logger
}

func NewTicketGenerator(
	threats outbound.ThreatRepository,
	assets outbound.AssetRepository,
	associations outbound.AssociationRepository,
	reports outbound.ReportRepository,
	storage outbound.StorageService,
	bus outbound.EventBus,
	logger *zap.Logger,
) *TicketGenerator {
	return &TicketGenerator{
		threats: threats, assets: assets, associations: associations,
		reports: reports, storage: storage, bus: bus, logger: logger.Named("emission.tickets"),
	}
}

// GenerateFromAssessment creates (and persists) an IT ticket for the given
// assessment, or returns ErrBelowThreshold if its final score does not
// qualify.
func (g *TicketGenerator) GenerateFromAssessment(ctx context.Context, a *risk.Assessment, format report.Format) (*report.Report, error) {
	breakdown := a.Breakdown()
	if breakdown.FinalRiskScore < ticketRiskThreshold {
		return nil, ErrBelowThreshold
	}

	t, err := g.threats.FindByID(ctx, a.ThreatID())
	if err != nil {
		return nil, err
	}

	affected, err := g.affectedAssetsForThreat(ctx, a.ThreatID())
	if err != nil {
		g.logger.Warn("ticket: affected asset lookup failed", zap.Error(err))
	}

	title := ticketTitle(t)
	var content []byte
	switch format {
	case report.FormatJSON:
		content = renderTicketJSON(t, breakdown, affected)
	default:
		format = report.FormatTXT
		content = []byte(renderTicketText(t, breakdown, affected))
	}

	path := fmt.Sprintf("tickets/%s.%s", t.ID().String(), strings.ToLower(string(format)))
	if g.storage != nil {
		if err := g.storage.Write(ctx, path, content); err != nil {
			return nil, err
		}
	}

	rpt, err := report.NewTicket(title, path, format, breakdown.FinalRiskScore, map[string]string{
		"threat_id":            t.ID().String(),
		"cve_id":               t.CVEID(),
		"risk_level":           string(breakdown.RiskLevel),
		"affected_asset_count": fmt.Sprintf("%d", len(affected)),
	})
	if err != nil {
		return nil, err
	}

	if err := g.reports.Create(ctx, rpt); err != nil {
		return nil, err
	}
	for _, e := range rpt.Events() {
		g.bus.Publish(ctx, e)
	}
	return rpt, nil
}

func (g *TicketGenerator) affectedAssetsForThreat(ctx context.Context, threatID uuid.UUID) ([]affectedAsset, error) {
	assocs, err := g.associations.FindByThreatID(ctx, threatID)
	if err != nil {
		return nil, err
	}

	var out []affectedAsset
	for _, assoc := range assocs {
		a, err := g.assets.FindByID(ctx, assoc.AssetID())
		if err != nil {
			continue
		}
		out = append(out, toAffectedAsset(a, assoc))
	}
	return out, nil
}

func toAffectedAsset(a *asset.Asset, assoc *association.Association) affectedAsset {
	var products []string
	for _, p := range a.Products {
		products = append(products, strings.TrimSpace(p.Name+" "+p.Version))
	}
	ip := "N/A"
	if len(a.IPs) > 0 {
		ip = a.IPs[0]
	}
	return affectedAsset{
		Hostname:        a.Hostname,
		IPAddress:       ip,
		Owner:           a.Owner,
		OperatingSystem: a.OperatingSystem,
		Products:        products,
		MatchConfidence: assoc.Confidence(),
		MatchKind:       string(assoc.MatchKind()),
	}
}

func ticketTitle(t *threat.Threat) string {
	if t.CVEID() != "" {
		return "IT Ticket - " + t.CVEID()
	}
	return "IT Ticket - " + t.Title()
}

func renderTicketText(t *threat.Threat, b risk.Breakdown, affected []affectedAsset) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "================================================================================\n")
	fmt.Fprintf(&sb, "%s\n", ticketTitle(t))
	fmt.Fprintf(&sb, "================================================================================\n\n")
	fmt.Fprintf(&sb, "CVE: %s\nTitle: %s\nDescription: %s\n\n", orNA(t.CVEID()), t.Title(), orNA(t.Description()))
	fmt.Fprintf(&sb, "CVSS base score: %.2f\nFinal risk score: %.2f\nRisk level: %s\n\n", b.BaseCVSSScore, b.FinalRiskScore, b.RiskLevel)

	if len(affected) == 0 {
		sb.WriteString("No affected assets on record.\n")
	} else {
		fmt.Fprintf(&sb, "%d affected assets:\n\n", len(affected))
		for i, a := range affected {
			fmt.Fprintf(&sb, "%d. Host: %s\n   IP: %s\n   Owner: %s\n   OS: %s\n   Products: %s\n   Match confidence: %.2f%%\n   Match kind: %s\n\n",
				i+1, a.Hostname, a.IPAddress, a.Owner, a.OperatingSystem, strings.Join(a.Products, ", "), a.MatchConfidence*100, a.MatchKind)
		}
	}

	fmt.Fprintf(&sb, "Patch reference: %s\n\n", orNA(t.SourceURL()))
	fmt.Fprintf(&sb, "================================================================================\n")
	fmt.Fprintf(&sb, "Ticket status: Pending\nGenerated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&sb, "================================================================================\n")
	return sb.String()
}

func renderTicketJSON(t *threat.Threat, b risk.Breakdown, affected []affectedAsset) []byte {
	type ticketPayload struct {
		Title          string          `json:"ticket_title"`
		CVEID          string          `json:"cve_id"`
		Description    string          `json:"description"`
		SourceURL      string          `json:"source_url"`
		CVSSBase       float64         `json:"cvss_base_score"`
		FinalRiskScore float64         `json:"final_risk_score"`
		RiskLevel      risk.Level      `json:"risk_level"`
		AffectedAssets []affectedAsset `json:"affected_assets"`
		TicketStatus   string          `json:"ticket_status"`
		GeneratedAt    time.Time       `json:"generated_at"`
	}

	payload := ticketPayload{
		Title: ticketTitle(t), CVEID: t.CVEID(), Description: t.Description(), SourceURL: t.SourceURL(),
		CVSSBase: b.BaseCVSSScore, FinalRiskScore: b.FinalRiskScore, RiskLevel: b.RiskLevel,
		AffectedAssets: affected, TicketStatus: string(report.TicketPending), GeneratedAt: time.Now(),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return []byte("{}")
	}
	return data
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
