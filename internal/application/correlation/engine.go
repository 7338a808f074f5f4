package correlation

import (
	"encoding/json"
	"strings"

	"github.com/aetim/core/internal/domain/asset"
	"github.com/aetim/core/internal/domain/association"
	"github.com/aetim/core/internal/domain/threat"
	"github.com/google/uuid"
)

// Result is the best single-asset match found for a threat, ready to be
// turned into an Association.
type Result struct {
	AssetID    uuid.UUID
	Confidence float64
	MatchKind  association.Kind
	Details    matchDetails
}

type matchDetails struct {
	ThreatProduct string `json:"threat_product,omitempty"`
	ThreatVersion string `json:"threat_version,omitempty"`
	AssetProduct  string `json:"asset_product,omitempty"`
	AssetVersion  string `json:"asset_version,omitempty"`
	ThreatOS      string `json:"threat_os,omitempty"`
	AssetOS       string `json:"asset_os,omitempty"`
}

func (d matchDetails) json() json.RawMessage {
	b, err := json.Marshal(d)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

// Engine correlates a Threat against an Asset inventory, keeping the
// single best match per asset.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Correlate evaluates every asset against the threat and returns one
// Result per asset that matched, confidence > 0.
func (e *Engine) Correlate(t *threat.Threat, assets []*asset.Asset) []Result {
	var results []Result
	for _, a := range assets {
		if r, ok := e.matchOne(t, a); ok {
			results = append(results, r)
		}
	}
	return results
}

func (e *Engine) matchOne(t *threat.Threat, a *asset.Asset) (Result, bool) {
	var best Result
	found := false

	for _, tp := range t.Products() {
		for _, ap := range a.Products {
			if r, ok := matchProducts(tp, ap); ok {
				if !found || r.Confidence > best.Confidence {
					best, found = r, true
				}
			}
		}
	}

	if r, ok := matchOperatingSystem(t, a); ok {
		if !found || r.Confidence > best.Confidence {
			best, found = r, true
		}
	}

	if found {
		best.AssetID = a.ID
	}
	return best, found
}

func matchProducts(tp threat.Product, ap asset.Product) (Result, bool) {
	threatName := normalizeProductName(tp.Name())
	assetName := normalizeProductName(ap.Name)

	details := matchDetails{
		ThreatProduct: tp.Name(),
		ThreatVersion: tp.Version(),
		AssetProduct:  ap.Name,
		AssetVersion:  ap.Version,
	}

	if threatName == assetName {
		matched, versionKind := matchVersions(tp.Version(), ap.Version)
		if !matched {
			return Result{}, false
		}
		confidence := 1.0 * versionKind.Multiplier()
		return Result{
			Confidence: clampConfidence(confidence),
			MatchKind:  association.ProductKind(association.NameMatchExact, versionKind),
			Details:    details,
		}, true
	}

	similarity := stringSimilarity(threatName, assetName)
	if similarity < similarityThreshold {
		return Result{}, false
	}

	matched, versionKind := matchVersions(tp.Version(), ap.Version)
	if !matched {
		return Result{}, false
	}

	confidence := similarity * versionKind.FuzzyMultiplier()
	return Result{
		Confidence: clampConfidence(confidence),
		MatchKind:  association.ProductKind(association.NameMatchFuzzy, versionKind),
		Details:    details,
	}, true
}

func matchOperatingSystem(t *threat.Threat, a *asset.Asset) (Result, bool) {
	var osProducts []threat.Product
	for _, p := range t.Products() {
		pt := strings.ToLower(string(p.Type()))
		if pt == "os" || pt == "operating system" {
			osProducts = append(osProducts, p)
		}
	}
	if len(osProducts) == 0 {
		return Result{}, false
	}

	assetOS := normalizeProductName(a.OperatingSystem)

	for _, p := range osProducts {
		threatOS := normalizeProductName(p.Name())

		if threatOS == assetOS {
			return Result{
				Confidence: 0.9,
				MatchKind:  association.KindOSMatch,
				Details:    matchDetails{ThreatOS: p.Name(), AssetOS: a.OperatingSystem},
			}, true
		}

		similarity := stringSimilarity(threatOS, assetOS)
		if similarity >= similarityThreshold {
			return Result{
				Confidence: clampConfidence(0.8 * similarity),
				MatchKind:  association.KindOSMatch,
				Details:    matchDetails{ThreatOS: p.Name(), AssetOS: a.OperatingSystem},
			}, true
		}
	}

	return Result{}, false
}

func clampConfidence(c float64) float64 {
	if c > 1.0 {
		return 1.0
	}
	if c < 0.0 {
		return 0.0
	}
	return c
}
