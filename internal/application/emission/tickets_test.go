package emission

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetim/core/internal/domain/asset"
	"github.com/aetim/core/internal/domain/association"
	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/infrastructure/eventbus"
	"github.com/aetim/core/internal/infrastructure/persistence/memory"
)

func newTestTicketGenerator(t *testing.T, seedAssets ...*asset.Asset) (*TicketGenerator, *memory.ThreatRepository, *memory.AssociationRepository, *memory.ReportRepository) {
	threats := memory.NewThreatRepository()
	assocs := memory.NewAssociationRepository()
	reports := memory.NewReportRepository()
	assets := memory.NewAssetRepository(seedAssets...)
	bus := eventbus.New(zap.NewNop())

	gen := NewTicketGenerator(threats, assets, assocs, reports, nil, bus, zap.NewNop())
	return gen, threats.(*memory.ThreatRepository), assocs.(*memory.AssociationRepository), reports.(*memory.ReportRepository)
}

func seedThreatAndAssessment(t *testing.T, threats *memory.ThreatRepository, finalScore float64) (*threat.Threat, *risk.Assessment) {
	base := 7.0
	th, err := threat.New(uuid.New(), "Remote Code Execution in Widget", "desc", "CVE-2026-1234", &base, "AV:N/AC:L", "https://vendor.example/advisory", nil, nil)
	require.NoError(t, err)
	require.NoError(t, threats.Create(context.Background(), th))

	breakdown := risk.Breakdown{
		BaseCVSSScore:         base,
		AssetImportanceWeight: 1.0,
		AffectedAssetCount:    1,
		AssetCountWeight:      0.01,
		PIRMatchWeight:        0,
		CISAKEVWeight:         0.5,
		FinalRiskScore:        finalScore,
		RiskLevel:             risk.LevelFromScore(finalScore),
	}
	a, err := risk.New(th.ID(), uuid.New(), breakdown)
	require.NoError(t, err)
	return th, a
}

func TestGenerateFromAssessment_QualifyingScoreCreatesTicketWithAffectedAsset(t *testing.T) {
	ctx := context.Background()

	assetID := uuid.New()
	owner := "alice@example.com"
	seededAsset := &asset.Asset{
		ID:                assetID,
		Hostname:          "web-01.prod",
		IPs:               []string{"10.0.0.5"},
		OperatingSystem:   "Ubuntu 22.04",
		Owner:             owner,
		SensitivityWeight: 1.0,
		CriticalityWeight: 1.0,
		Products:          []asset.Product{{Name: "nginx", Version: "1.18.0"}},
	}

	gen, threats, assocs, reports := newTestTicketGenerator(t, seededAsset)
	th, a := seedThreatAndAssessment(t, threats, 7.5)

	assoc, err := association.New(th.ID(), assetID, 0.9, association.ProductKind(association.NameMatchExact, association.VersionMatchRange), nil)
	require.NoError(t, err)
	require.NoError(t, assocs.Upsert(ctx, assoc))

	rpt, err := gen.GenerateFromAssessment(ctx, a, report.FormatTXT)
	require.NoError(t, err)
	require.NotNil(t, rpt)

	assert.Equal(t, report.KindItTicket, rpt.Kind())
	require.NotNil(t, rpt.TicketStatus())
	assert.Equal(t, report.TicketPending, *rpt.TicketStatus())
	require.NotNil(t, rpt.TicketPriority())
	assert.Equal(t, report.TicketPriorityMedium, *rpt.TicketPriority())
	assert.Contains(t, rpt.Title(), "CVE-2026-1234")

	stored, _, err := reports.FindByKind(ctx, report.KindItTicket, 0, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, rpt.ID(), stored[0].ID())
}

func TestGenerateFromAssessment_BelowThresholdReturnsError(t *testing.T) {
	ctx := context.Background()
	gen, threats, _, _ := newTestTicketGenerator(t)
	_, a := seedThreatAndAssessment(t, threats, 5.99)

	rpt, err := gen.GenerateFromAssessment(ctx, a, report.FormatTXT)
	assert.ErrorIs(t, err, ErrBelowThreshold)
	assert.Nil(t, rpt)
}

func TestGenerateFromAssessment_NoAffectedAssetsStillGeneratesTicket(t *testing.T) {
	ctx := context.Background()
	gen, threats, _, _ := newTestTicketGenerator(t)
	_, a := seedThreatAndAssessment(t, threats, 9.2)

	rpt, err := gen.GenerateFromAssessment(ctx, a, report.FormatTXT)
	require.NoError(t, err)
	require.NotNil(t, rpt.TicketPriority())
	assert.Equal(t, report.TicketPriorityHigh, *rpt.TicketPriority())
	assert.Equal(t, "0", rpt.Metadata()["affected_asset_count"])
}

func TestGenerateFromAssessment_JSONFormatRendersAffectedAssets(t *testing.T) {
	ctx := context.Background()

	assetID := uuid.New()
	seededAsset := &asset.Asset{
		ID:                assetID,
		Hostname:          "db-02.prod",
		IPs:               []string{"10.0.0.9"},
		OperatingSystem:   "RHEL 9",
		Owner:             "bob@example.com",
		SensitivityWeight: 1.0,
		CriticalityWeight: 1.0,
		Products:          []asset.Product{{Name: "postgresql", Version: "15.2"}},
	}

	gen, threats, assocs, _ := newTestTicketGenerator(t, seededAsset)
	th, a := seedThreatAndAssessment(t, threats, 6.0)

	assoc, err := association.New(th.ID(), assetID, 1.0, association.ProductKind(association.NameMatchExact, association.VersionMatchExact), nil)
	require.NoError(t, err)
	require.NoError(t, assocs.Upsert(ctx, assoc))

	rpt, err := gen.GenerateFromAssessment(ctx, a, report.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, report.FormatJSON, rpt.Format())
	assert.Contains(t, rpt.Path(), ".json")

	affected, err := gen.affectedAssetsForThreat(ctx, th.ID())
	require.NoError(t, err)
	require.Len(t, affected, 1)
	assert.Equal(t, "bob@example.com", affected[0].Owner)

	raw := renderTicketJSON(th, a.Breakdown(), affected)
	var payload struct {
		AffectedAssets []struct {
			Owner string `json:"owner"`
		} `json:"affected_assets"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Len(t, payload.AffectedAssets, 1)
	assert.Equal(t, "bob@example.com", payload.AffectedAssets[0].Owner)
}

func TestTicketTitle_FallsBackToThreatTitleWhenNoCVE(t *testing.T) {
	base := 5.0
	th, err := threat.New(uuid.New(), "Unidentified Suspicious Activity", "desc", "", &base, "", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "IT Ticket - Unidentified Suspicious Activity", ticketTitle(th))
}
