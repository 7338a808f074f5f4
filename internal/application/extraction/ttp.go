package extraction

import (
	"sort"
	"strings"
)

// ttpDictionary maps lower-cased technique tokens to their canonical
// MITRE ATT&CK identifier. Extend as new techniques are observed in feeds.
var ttpDictionary = map[string]string{
	"phishing":                  "T1566",
	"spearphishing attachment":  "T1566.001",
	"spearphishing link":        "T1566.002",
	"powershell":                "T1059.001",
	"command and scripting":     "T1059",
	"valid accounts":            "T1078",
	"exploit public-facing":     "T1190",
	"remote services":           "T1021",
	"data encrypted for impact": "T1486",
	"credential dumping":        "T1003",
	"sql injection":             "T1190",
	"drive-by compromise":       "T1189",
	"supply chain compromise":   "T1195",
	"exploitation for privilege escalation": "T1068",
	"remote code execution":     "T1210",
}

// ExtractTTPs returns the sorted set of ATT&CK identifiers whose dictionary
// token appears in text. The first match per identifier wins.
func ExtractTTPs(text string) []string {
	lower := strings.ToLower(text)
	seen := map[string]struct{}{}
	var out []string

	for token, id := range ttpDictionary {
		if _, ok := seen[id]; ok {
			continue
		}
		if strings.Contains(lower, token) {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	sort.Strings(out)
	return out
}
