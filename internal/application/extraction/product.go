package extraction

import (
	"regexp"
	"strings"

	"github.com/aetim/core/internal/domain/threat"
)

// ExtractedProduct is outbound.ExtractedProduct plus a per-match
// Confidence, which Extractor.extractRuleEngine folds into the result's
// overall confidence.
type ExtractedProduct struct {
	Name         string
	Version      string
	Type         threat.ProductType
	OriginalText string
	Confidence   float64
}

// productKeywords is the ~30-entry vendor/product spelling list the rule
// engine recognises directly, independent of the correlation engine's
// broader normalisation synonym table.
var productKeywords = []string{
	"windows server", "windows", "apache tomcat", "apache http server", "apache struts",
	"nginx", "microsoft sql server", "mysql", "postgresql", "oracle database",
	"vmware esxi", "vmware vcenter", "cisco ios", "cisco asa", "juniper junos",
	"openssl", "openssh", "php", "wordpress", "drupal", "joomla",
	"internet information services", "exchange server", "sharepoint",
	"chrome", "firefox", "adobe acrobat", "adobe reader", "java",
	"log4j", "kubernetes", "docker", "jenkins", "gitlab", "confluence",
}

// versionCascade is tried in order; the first pattern that matches wins.
// Every pattern is anchored at the start of the tail immediately following
// the keyword, per spec: "keyword \s+ v?(version)" for the first four
// stages, and a looser "keyword[^\w]*(version)" for the last — neither
// permits a version-looking token anywhere later in the sentence (e.g. a
// nearby CVE year) to be mistaken for the product's version.
var versionCascade = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s+v?(\d+\.\d+(\.\d+){0,2})`),
	regexp.MustCompile(`(?i)^\s+v?(\d+\.\d+)`),
	regexp.MustCompile(`(?i)^\s+v?(\d+)`),
	regexp.MustCompile(`(?i)^\s+v?(\d{4})`),
	regexp.MustCompile(`(?i)^[^\w]*(\d+\.\d+(\.\d+)?)`),
}

// osKeywords flags the subset of productKeywords that name an operating
// system rather than an application, so the rule engine can hint
// threat.ProductTypeOS the same way NVD's CPE part ("o") does.
var osKeywords = map[string]struct{}{
	"windows server": {}, "windows": {}, "cisco ios": {}, "cisco asa": {}, "juniper junos": {},
}

// ExtractProducts scans text for known product keywords and, per hit,
// attempts a version-regex cascade immediately following the keyword.
func ExtractProducts(text string) []ExtractedProduct {
	lower := strings.ToLower(text)
	var out []ExtractedProduct
	seen := map[string]struct{}{}

	for _, keyword := range productKeywords {
		idx := strings.Index(lower, keyword)
		if idx < 0 {
			continue
		}
		if _, ok := seen[keyword]; ok {
			continue
		}
		seen[keyword] = struct{}{}

		tail := safeSlice(text, idx+len(keyword), idx+len(keyword)+40)
		version := matchVersionCascade(tail)

		kind := threat.ProductTypeApplication
		if _, ok := osKeywords[keyword]; ok {
			kind = threat.ProductTypeOS
		}

		out = append(out, ExtractedProduct{
			Name:         keyword,
			Version:      version,
			Type:         kind,
			OriginalText: safeSlice(text, idx, idx+len(keyword)+len(version)+10),
			Confidence:   0.8,
		})
	}

	return out
}

func matchVersionCascade(tail string) string {
	for _, pattern := range versionCascade {
		if m := pattern.FindStringSubmatch(tail); m != nil {
			return m[1]
		}
	}
	return ""
}

func safeSlice(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return ""
	}
	return s[start:end]
}
