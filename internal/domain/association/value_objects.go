package association

// NameMatchKind classifies how the product name pair matched.
type NameMatchKind string

const (
	NameMatchExact NameMatchKind = "exact"
	NameMatchFuzzy NameMatchKind = "fuzzy"
)

// VersionMatchKind classifies how the product version pair reconciled.
type VersionMatchKind string

const (
	VersionMatchExact   VersionMatchKind = "exact"
	VersionMatchRange   VersionMatchKind = "range"
	VersionMatchMajor   VersionMatchKind = "major"
	VersionMatchNone    VersionMatchKind = "no"
)

// versionMultiplier is the confidence multiplier table for exact product
// name matches, keyed by VersionMatchKind, per the correlation engine's
// confidence formula.
var versionMultiplier = map[VersionMatchKind]float64{
	VersionMatchExact: 1.0,
	VersionMatchRange: 0.9,
	VersionMatchMajor: 0.8,
	VersionMatchNone:  0.7,
}

// fuzzyVersionMultiplier is the counterpart table for fuzzy product name
// matches, one step below each exact value so a fuzzy match can never
// outrank the same version reconciliation on an exact name.
var fuzzyVersionMultiplier = map[VersionMatchKind]float64{
	VersionMatchExact: 0.9,
	VersionMatchRange: 0.8,
	VersionMatchMajor: 0.7,
	VersionMatchNone:  0.6,
}

func (v VersionMatchKind) Multiplier() float64 {
	return versionMultiplier[v]
}

func (v VersionMatchKind) FuzzyMultiplier() float64 {
	return fuzzyVersionMultiplier[v]
}

// Kind is the combined match-kind tag persisted on an Association:
// {exact|fuzzy}_product_{exact|range|major|no}_version, or os_match.
type Kind string

func ProductKind(name NameMatchKind, version VersionMatchKind) Kind {
	return Kind(string(name) + "_product_" + string(version) + "_version")
}

const KindOSMatch Kind = "os_match"
