package extraction

import (
	"regexp"
	"sort"
	"strconv"
)

// cvePattern matches CVE[-\s]?YYYY[-\s]?NNNNN, case-insensitively, with a
// 4-to-7-digit sequence number.
var cvePattern = regexp.MustCompile(`(?i)CVE[-\s]?(\d{4})[-\s]?(\d{4,7})`)

const (
	minCVEYear = 1999
	maxCVEYear = 2099
)

// ExtractCVEs returns every distinct, valid CVE identifier in text,
// canonicalised to CVE-YYYY-NNNNN and sorted ascending.
func ExtractCVEs(text string) []string {
	matches := cvePattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string

	for _, m := range matches {
		year, err := strconv.Atoi(m[1])
		if err != nil || year < minCVEYear || year > maxCVEYear {
			continue
		}
		canonical := "CVE-" + m[1] + "-" + m[2]
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}

	sort.Strings(out)
	return out
}

// IsValidCVE reports whether the literal id string is a well-formed,
// in-range CVE identifier.
func IsValidCVE(id string) bool {
	m := cvePattern.FindStringSubmatch(id)
	if m == nil || len(m[0]) != len(id) {
		return false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	return year >= minCVEYear && year <= maxCVEYear
}
