// Package scoring implements the risk scorer (C7): combines a threat's
// base CVSS score with asset importance, affected-asset-count, PIR-match,
// and CISA KEV weights into a single clamped risk score and level.
package scoring

import (
	"strings"

	"github.com/aetim/core/internal/domain/asset"
	"github.com/aetim/core/internal/domain/pir"
	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/domain/threat"
)

const (
	assetCountWeightPer10  = 0.1
	pirHighPriorityWeight  = 0.3
	cisaKEVWeight          = 0.5
)

// Calculate assembles the full risk.Breakdown for a threat given its
// associated assets, the currently enabled PIRs, and whether the
// originating feed is a CISA KEV source.
func Calculate(t *threat.Threat, associatedAssets []*asset.Asset, enabledPIRs []*pir.PIR, isCISAKEV bool) risk.Breakdown {
	base := baseCVSSScore(t)
	assetWeight := assetImportanceWeight(associatedAssets)
	count := len(associatedAssets)
	countWeight := assetCountWeight(count)
	pirWeight := pirMatchWeight(t, enabledPIRs)
	kevWeight := 0.0
	if isCISAKEV {
		kevWeight = cisaKEVWeight
	}

	final := base*assetWeight + countWeight + pirWeight + kevWeight
	final = clamp(final, 0.0, 10.0)

	return risk.Breakdown{
		BaseCVSSScore:         base,
		AssetImportanceWeight: assetWeight,
		AffectedAssetCount:    count,
		AssetCountWeight:      countWeight,
		PIRMatchWeight:        pirWeight,
		CISAKEVWeight:         kevWeight,
		FinalRiskScore:        final,
		RiskLevel:             risk.LevelFromScore(final),
	}
}

func baseCVSSScore(t *threat.Threat) float64 {
	if t.BaseScore() != nil {
		return *t.BaseScore()
	}
	return 0.0
}

// assetImportanceWeight averages sensitivity*criticality across the
// affected assets, defaulting to 1.0 when none are associated.
func assetImportanceWeight(assets []*asset.Asset) float64 {
	if len(assets) == 0 {
		return 1.0
	}

	var total float64
	for _, a := range assets {
		total += a.SensitivityWeight * a.CriticalityWeight
	}
	return total / float64(len(assets))
}

func assetCountWeight(count int) float64 {
	if count <= 0 {
		return 0.0
	}
	return (float64(count) / 10.0) * assetCountWeightPer10
}

// pirMatchWeight awards the high-priority weight if any enabled,
// high-priority PIR matches the threat's CVE, product names, title, or
// CVSS score.
func pirMatchWeight(t *threat.Threat, pirs []*pir.PIR) float64 {
	if len(pirs) == 0 {
		return 0.0
	}

	score := 0.0
	if t.BaseScore() != nil {
		score = *t.BaseScore()
	}

	var productNames []string
	for _, p := range t.Products() {
		productNames = append(productNames, p.Name())
	}

	criteria := pir.Criteria{
		CVE:         t.CVEID(),
		ProductName: strings.Join(productNames, ", "),
		ThreatType:  t.Title(),
		CVSSScore:   score,
	}

	for _, p := range pirs {
		if !p.IsHighPriority() {
			continue
		}
		if p.Matches(criteria) {
			return pirHighPriorityWeight
		}
	}

	return 0.0
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
