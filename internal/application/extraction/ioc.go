package extraction

import (
	"net"
	"regexp"
	"strings"
)

var (
	ipv4Pattern   = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`)
	ipv6Pattern   = regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`)
	domainPattern = regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}\b`)
	hashPattern   = regexp.MustCompile(`\b[a-fA-F0-9]{32,64}\b`)
)

var excludedDomains = []string{"example.com", "localhost", "127.0.0.1"}

// ExtractedIOCs has the same fields as outbound.ExtractedIOCs;
// Extractor.extractRuleEngine copies it into that type.
type ExtractedIOCs struct {
	IPs     []string
	Domains []string
	Hashes  []string
}

// ExtractIOCs scans free text for IPv4/IPv6 addresses, domains, and file
// hashes, applying the same exclusion rules in every implementation.
func ExtractIOCs(text string) ExtractedIOCs {
	return ExtractedIOCs{
		IPs:     dedupeAppend(extractIPv4(text), extractIPv6(text)),
		Domains: extractDomains(text),
		Hashes:  extractHashes(text),
	}
}

func extractIPv4(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, candidate := range ipv4Pattern.FindAllString(text, -1) {
		if _, ok := seen[candidate]; ok {
			continue
		}
		ip := net.ParseIP(candidate)
		if ip == nil || ip.To4() == nil {
			continue
		}
		if ip.IsLoopback() || candidate == "0.0.0.0" || strings.HasPrefix(candidate, "127.") {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

func extractIPv6(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, candidate := range ipv6Pattern.FindAllString(text, -1) {
		if _, ok := seen[candidate]; ok {
			continue
		}
		if ip := net.ParseIP(candidate); ip == nil {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

func extractDomains(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, candidate := range domainPattern.FindAllString(text, -1) {
		lower := strings.ToLower(candidate)
		if len(lower) < 4 || strings.Contains(lower, "@") {
			continue
		}
		if isExcludedDomain(lower) {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

func isExcludedDomain(domain string) bool {
	for _, excluded := range excludedDomains {
		if domain == excluded {
			return true
		}
	}
	if strings.HasPrefix(domain, "localhost") || strings.HasPrefix(domain, "127.") {
		return true
	}
	if strings.Contains(domain, "test") && strings.Contains(domain, "example") {
		return true
	}
	return false
}

func extractHashes(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, candidate := range hashPattern.FindAllString(text, -1) {
		length := len(candidate)
		if length != 32 && length != 40 && length != 64 {
			continue
		}
		lower := strings.ToLower(candidate)
		if isExcludedHash(lower) {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

// isExcludedHash rejects degenerate all-zero/all-F MD5-length sentinels
// that are never real indicators.
func isExcludedHash(hash string) bool {
	if len(hash) != 32 {
		return false
	}
	allZero, allF := true, true
	for _, r := range hash {
		if r != '0' {
			allZero = false
		}
		if r != 'f' {
			allF = false
		}
	}
	return allZero || allF
}

func dedupeAppend(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
