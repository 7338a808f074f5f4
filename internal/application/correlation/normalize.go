// Package correlation implements the correlation engine (C6): matching
// Threat products and operating systems against Asset inventory to produce
// or rescore Associations.
package correlation

import (
	"regexp"
	"sort"
	"strings"
)

// productNameAliases maps common product-name variants to a canonical
// spelling, applied after version-stripping during normalisation.
var productNameAliases = map[string]string{
	"ms sql":          "microsoft sql server",
	"mssql":           "microsoft sql server",
	"sql server":      "microsoft sql server",
	"mssql server":    "microsoft sql server",
	"win server":      "windows server",
	"win":             "windows",
	"esxi":            "vmware esxi",
	"vmware esxi":     "vmware esxi",
	"iis":             "internet information services",
	"apache httpd":    "apache http server",
	"tomcat":          "apache tomcat",
	"apache tomcat":   "apache tomcat",
	"oracle db":       "oracle database",
	"oracle database": "oracle database",
	"postgres":        "postgresql",
}

// productNameAliasOrder fixes the substitution order, longest variant
// first, so a single pass never re-matches a variant inside text its own
// canonical form just introduced (e.g. "ms sql" -> "microsoft sql server"
// must not then also trigger the "sql server" rule).
var productNameAliasOrder = sortedAliasKeysByLengthDesc(productNameAliases)

func sortedAliasKeysByLengthDesc(aliases map[string]string) []string {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

var (
	trailingYearPattern    = regexp.MustCompile(`\s+\d{4}$`)
	trailingVersionPattern = regexp.MustCompile(`\s+\d+\.\d+.*$`)
	trailingVPattern       = regexp.MustCompile(`(?i)\s+v\d+.*$`)
	trailingVersionWord    = regexp.MustCompile(`(?i)\s+version\s+\d+.*$`)
	nonWordPattern         = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern      = regexp.MustCompile(`\s+`)
)

// normalizeProductName lower-cases, strips trailing version/year suffixes,
// rewrites known variants, then strips punctuation and collapses
// whitespace.
func normalizeProductName(name string) string {
	if name == "" {
		return ""
	}

	n := strings.ToLower(strings.TrimSpace(name))
	n = trailingYearPattern.ReplaceAllString(n, "")
	n = trailingVersionPattern.ReplaceAllString(n, "")
	n = trailingVPattern.ReplaceAllString(n, "")
	n = trailingVersionWord.ReplaceAllString(n, "")

	for _, variant := range productNameAliasOrder {
		canonical := productNameAliases[variant]
		// A name already carrying the canonical spelling contains its own
		// variant substring ("microsoft sql server" contains "sql server");
		// rewriting it would double the prefix.
		if strings.Contains(n, variant) && !strings.Contains(n, canonical) {
			n = strings.ReplaceAll(n, variant, canonical)
			break
		}
	}

	n = nonWordPattern.ReplaceAllString(n, "")
	n = whitespacePattern.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

var versionPrefixPattern = regexp.MustCompile(`(?i)^v(ersion)?\s*`)

func normalizeVersion(version string) string {
	if version == "" {
		return ""
	}
	return versionPrefixPattern.ReplaceAllString(strings.TrimSpace(version), "")
}
