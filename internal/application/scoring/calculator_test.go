package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetim/core/internal/domain/asset"
	"github.com/aetim/core/internal/domain/pir"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/threat"
)

func floatPtr(f float64) *float64 { return &f }

func newThreat(t *testing.T, cveID string, baseScore *float64) *threat.Threat {
	th, err := threat.New(uuid.New(), "title", "desc", cveID, baseScore, "", "", nil, nil)
	require.NoError(t, err)
	return th
}

func TestCalculate_NoAssetsNoPIRsNoKEV(t *testing.T) {
	th := newThreat(t, "CVE-2024-0001", floatPtr(6.0))

	breakdown := Calculate(th, nil, nil, false)

	assert.Equal(t, 6.0, breakdown.BaseCVSSScore)
	assert.Equal(t, 1.0, breakdown.AssetImportanceWeight)
	assert.Equal(t, 0, breakdown.AffectedAssetCount)
	assert.Equal(t, 0.0, breakdown.AssetCountWeight)
	assert.Equal(t, 0.0, breakdown.PIRMatchWeight)
	assert.Equal(t, 0.0, breakdown.CISAKEVWeight)
	assert.Equal(t, 6.0, breakdown.FinalRiskScore)
	assert.Equal(t, risk.LevelHigh, breakdown.RiskLevel)
}

func TestCalculate_NilBaseScoreTreatedAsZero(t *testing.T) {
	th := newThreat(t, "", nil)

	breakdown := Calculate(th, nil, nil, false)

	assert.Equal(t, 0.0, breakdown.BaseCVSSScore)
	assert.Equal(t, 0.0, breakdown.FinalRiskScore)
	assert.Equal(t, risk.LevelLow, breakdown.RiskLevel)
}

func TestCalculate_AssetImportanceAveraged(t *testing.T) {
	th := newThreat(t, "CVE-2024-0001", floatPtr(5.0))

	assets := []*asset.Asset{
		{SensitivityWeight: 1.0, CriticalityWeight: 1.0},
		{SensitivityWeight: 0.5, CriticalityWeight: 0.5},
	}

	breakdown := Calculate(th, assets, nil, false)

	assert.InDelta(t, 0.625, breakdown.AssetImportanceWeight, 0.0001)
	assert.Equal(t, 2, breakdown.AffectedAssetCount)
}

func TestCalculate_AssetCountWeight(t *testing.T) {
	th := newThreat(t, "CVE-2024-0001", floatPtr(0.0))

	assets := make([]*asset.Asset, 10)
	for i := range assets {
		assets[i] = &asset.Asset{SensitivityWeight: 1.0, CriticalityWeight: 1.0}
	}

	breakdown := Calculate(th, assets, nil, false)

	assert.InDelta(t, 0.1, breakdown.AssetCountWeight, 0.0001)
}

func TestCalculate_CISAKEVWeight(t *testing.T) {
	th := newThreat(t, "CVE-2024-0001", floatPtr(0.0))

	breakdown := Calculate(th, nil, nil, true)

	assert.Equal(t, 0.5, breakdown.CISAKEVWeight)
	assert.Equal(t, 0.5, breakdown.FinalRiskScore)
}

func TestCalculate_PIRHighPriorityMatchContributesWeight(t *testing.T) {
	th := newThreat(t, "CVE-2024-0001", floatPtr(0.0))

	rule, err := pir.New("watch cve prefix", "desc", pir.PriorityHigh, pir.ConditionCVEID, "CVE-2024-")
	require.NoError(t, err)

	breakdown := Calculate(th, nil, []*pir.PIR{rule}, false)

	assert.Equal(t, 0.3, breakdown.PIRMatchWeight)
}

func TestCalculate_PIRMediumPriorityDoesNotContribute(t *testing.T) {
	th := newThreat(t, "CVE-2024-0001", floatPtr(0.0))

	rule, err := pir.New("watch cve prefix", "desc", pir.PriorityMedium, pir.ConditionCVEID, "CVE-2024-")
	require.NoError(t, err)

	breakdown := Calculate(th, nil, []*pir.PIR{rule}, false)

	assert.Equal(t, 0.0, breakdown.PIRMatchWeight)
}

func TestCalculate_DisabledPIRDoesNotContribute(t *testing.T) {
	th := newThreat(t, "CVE-2024-0001", floatPtr(0.0))

	rule, err := pir.New("watch cve prefix", "desc", pir.PriorityHigh, pir.ConditionCVEID, "CVE-2024-")
	require.NoError(t, err)
	rule.Toggle()

	breakdown := Calculate(th, nil, []*pir.PIR{rule}, false)

	assert.Equal(t, 0.0, breakdown.PIRMatchWeight)
}

func TestCalculate_FinalScoreClampedAtTen(t *testing.T) {
	th := newThreat(t, "CVE-2024-0001", floatPtr(10.0))

	assets := []*asset.Asset{{SensitivityWeight: 1.0, CriticalityWeight: 1.0}}
	rule, err := pir.New("watch everything", "desc", pir.PriorityHigh, pir.ConditionCVSSScore, "0.0")
	require.NoError(t, err)

	breakdown := Calculate(th, assets, []*pir.PIR{rule}, true)

	assert.Equal(t, 10.0, breakdown.FinalRiskScore)
	assert.Equal(t, risk.LevelCritical, breakdown.RiskLevel)
}

func TestCalculate_TicketThresholdExampleScenario(t *testing.T) {
	th := newThreat(t, "CVE-2024-0001", floatPtr(7.0))

	assets := []*asset.Asset{{SensitivityWeight: 1.0, CriticalityWeight: 1.0}}

	breakdown := Calculate(th, assets, nil, true)

	assert.InDelta(t, 7.51, breakdown.FinalRiskScore, 0.0001)
	assert.Equal(t, risk.LevelHigh, breakdown.RiskLevel)
}
