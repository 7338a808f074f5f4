package correlation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aetim/core/internal/domain/association"
)

var (
	versionPartPattern      = regexp.MustCompile(`\D`)
	versionYearPattern      = regexp.MustCompile(`^(\d{4})`)
	versionComparisonPrefix = regexp.MustCompile(`^(>=|<=|>|<)\s*(\d+(?:\.\d+)*)`)
)

// parseVersion splits a normalised version string into its numeric
// components, falling back to a bare 4-digit year when no dotted numeric
// form is present.
func parseVersion(version string) []int {
	if version == "" {
		return nil
	}

	normalized := normalizeVersion(version)
	parts := strings.Split(normalized, ".")
	var out []int
	for _, part := range parts {
		cleaned := versionPartPattern.ReplaceAllString(part, "")
		if cleaned == "" {
			break
		}
		n, err := strconv.Atoi(cleaned)
		if err != nil {
			break
		}
		out = append(out, n)
	}

	if len(out) == 0 {
		if m := versionYearPattern.FindStringSubmatch(normalized); m != nil {
			year, _ := strconv.Atoi(m[1])
			return []int{year}
		}
		return nil
	}

	return out
}

// compareVersions returns 1, -1, or 0 following standard lexicographic
// tuple comparison, treating absent trailing components as 0.
func compareVersions(a, b []int) int {
	if a == nil || b == nil {
		return 0
	}
	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	for i := 0; i < max; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av > bv {
			return 1
		}
		if av < bv {
			return -1
		}
	}
	return 0
}

func matchVersionComparison(threatVersionNormalized string, assetParsed []int) bool {
	m := versionComparisonPrefix.FindStringSubmatch(threatVersionNormalized)
	if m == nil {
		return false
	}

	operator := m[1]
	comparisonVersion := parseVersion(m[2])
	if comparisonVersion == nil {
		return false
	}

	cmp := compareVersions(assetParsed, comparisonVersion)
	switch operator {
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	}
	return false
}

// matchVersions reconciles a threat product version against an asset
// product version, trying exact match, then range/".x" suffix, then
// comparator operators, then major-version, in that order. The
// comparator check must run before the major-component fallback: a
// threat version ">=7.0" against asset "7.5.0" shares a leading 7 and
// would otherwise be tagged a major match instead of a range match.
func matchVersions(threatVersion, assetVersion string) (bool, association.VersionMatchKind) {
	if threatVersion == "" && assetVersion == "" {
		return true, association.VersionMatchNone
	}
	if threatVersion == "" {
		return true, association.VersionMatchNone
	}
	if assetVersion == "" {
		return false, ""
	}

	threatClean := normalizeVersion(threatVersion)
	assetClean := normalizeVersion(assetVersion)

	if threatClean == assetClean {
		return true, association.VersionMatchExact
	}

	threatParsed := parseVersion(threatVersion)
	assetParsed := parseVersion(assetVersion)
	if threatParsed == nil || assetParsed == nil {
		return false, ""
	}

	if strings.HasSuffix(threatClean, ".x") {
		base := strings.TrimSuffix(threatClean, ".x")
		if strings.HasPrefix(assetClean, base) {
			return true, association.VersionMatchRange
		}
	}

	if matchVersionComparison(threatClean, assetParsed) {
		return true, association.VersionMatchRange
	}

	if len(threatParsed) >= 1 && len(assetParsed) >= 1 && threatParsed[0] == assetParsed[0] {
		return true, association.VersionMatchMajor
	}

	return false, ""
}
