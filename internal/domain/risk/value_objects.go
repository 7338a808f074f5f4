package risk

// Level is the risk-level band derived from the final risk score. These
// thresholds are deliberately distinct from threat.Severity's CVSS bands:
// [0,4)->Low, [4,6)->Medium, [6,8)->High, [8,10]->Critical.
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

func LevelFromScore(score float64) Level {
	switch {
	case score >= 8.0:
		return LevelCritical
	case score >= 6.0:
		return LevelHigh
	case score >= 4.0:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Breakdown is the opaque structured record reproducing the scoring
// formula, persisted verbatim for audit/explainability.
type Breakdown struct {
	BaseCVSSScore          float64 `json:"base_cvss_score"`
	AssetImportanceWeight  float64 `json:"asset_importance_weight"`
	AffectedAssetCount     int     `json:"affected_asset_count"`
	AssetCountWeight       float64 `json:"asset_count_weight"`
	PIRMatchWeight         float64 `json:"pir_match_weight"`
	CISAKEVWeight          float64 `json:"cisa_kev_weight"`
	FinalRiskScore         float64 `json:"final_risk_score"`
	RiskLevel              Level   `json:"risk_level"`
}
