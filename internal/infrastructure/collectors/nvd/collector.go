// Package nvd implements the National Vulnerability Database feed driver:
// paginated REST calls against the CVE 2.0 API, CPE parsing for affected
// products, with a stricter API-key-aware rate ceiling enforced one layer
// up by the ingestion scheduler's rate limiter.
package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/infrastructure/retry"
	"github.com/aetim/core/internal/ports/outbound"
)

const (
	feedName       = "nvd"
	apiBaseURL     = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	resultsPerPage = 2000
	lookbackWindow = 7 * 24 * time.Hour
)

type cveDescription struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type cvssData struct {
	BaseScore    float64 `json:"baseScore"`
	VectorString string  `json:"vectorString"`
}

type cvssMetric struct {
	CVSSData cvssData `json:"cvssData"`
}

type cveMetrics struct {
	CVSSMetricV31 []cvssMetric `json:"cvssMetricV31"`
	CVSSMetricV30 []cvssMetric `json:"cvssMetricV30"`
	CVSSMetricV2  []cvssMetric `json:"cvssMetricV2"`
}

// cpeMatch is a single leaf of a configuration node: a CPE 2.3 URI together
// with whether it names the vulnerable software/platform itself (as
// opposed to a running-on prerequisite).
type cpeMatch struct {
	Vulnerable bool   `json:"vulnerable"`
	Criteria   string `json:"criteria"`
}

type cveNode struct {
	CPEMatch []cpeMatch `json:"cpeMatch"`
}

type cveConfiguration struct {
	Nodes []cveNode `json:"nodes"`
}

type cveItem struct {
	ID             string             `json:"id"`
	Published      string             `json:"published"`
	Descriptions   []cveDescription   `json:"descriptions"`
	Metrics        cveMetrics         `json:"metrics"`
	Configurations []cveConfiguration `json:"configurations"`
}

type vulnerabilityEnvelope struct {
	CVE cveItem `json:"cve"`
}

type cveResponse struct {
	Vulnerabilities []vulnerabilityEnvelope `json:"vulnerabilities"`
}

// Driver pulls published CVEs over a trailing window, since the feed's
// own last-run bookkeeping lives on the Feed aggregate rather than here.
type Driver struct {
	client *http.Client
}

func New(client *http.Client) *Driver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Driver{client: client}
}

func (d *Driver) Name() string { return feedName }

// Collect reads an optional API key out of credentialBlob (treated as the
// raw key, already decrypted by the caller) and pages through every CVE
// published in the trailing week.
func (d *Driver) Collect(ctx context.Context, credentialBlob []byte) ([]outbound.RawAdvisory, error) {
	apiKey := strings.TrimSpace(string(credentialBlob))

	end := time.Now().UTC()
	start := end.Add(-lookbackWindow)

	var advisories []outbound.RawAdvisory
	startIndex := 0
	for {
		batch, err := d.fetchBatch(ctx, apiKey, startIndex, start, end)
		if err != nil {
			return advisories, err
		}
		if len(batch.Vulnerabilities) == 0 {
			break
		}

		for _, v := range batch.Vulnerabilities {
			if adv, ok := toAdvisory(v.CVE); ok {
				advisories = append(advisories, adv)
			}
		}

		if len(batch.Vulnerabilities) < resultsPerPage {
			break
		}
		startIndex += resultsPerPage
	}

	return advisories, nil
}

func (d *Driver) fetchBatch(ctx context.Context, apiKey string, startIndex int, start, end time.Time) (*cveResponse, error) {
	q := url.Values{}
	q.Set("startIndex", fmt.Sprintf("%d", startIndex))
	q.Set("resultsPerPage", fmt.Sprintf("%d", resultsPerPage))
	q.Set("pubStartDate", start.Format("2006-01-02T15:04:05.000-07:00"))
	q.Set("pubEndDate", end.Format("2006-01-02T15:04:05.000-07:00"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		req.Header.Set("apiKey", apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nvd: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, retry.NewStatusError(feedName, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nvd: reading response body: %w", err)
	}

	var out cveResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, retry.NewDataFormatError(feedName, fmt.Errorf("decoding response: %w", err))
	}
	return &out, nil
}

func toAdvisory(item cveItem) (outbound.RawAdvisory, bool) {
	if item.ID == "" {
		return outbound.RawAdvisory{}, false
	}

	description := englishDescription(item.Descriptions)
	if description == "" {
		description = fmt.Sprintf("CVE: %s", item.ID)
	}

	title := item.ID
	if description != "" {
		firstSentence := description
		if idx := strings.IndexByte(description, '.'); idx >= 0 {
			firstSentence = description[:idx]
		}
		if len(firstSentence) > 100 {
			firstSentence = firstSentence[:100]
		}
		title = fmt.Sprintf("%s: %s", item.ID, firstSentence)
	}

	baseScore, vector := bestCVSS(item.Metrics)

	raw, err := json.Marshal(item)
	if err != nil {
		raw = nil
	}

	return outbound.RawAdvisory{
		CVEID:       item.ID,
		Title:       title,
		Description: description,
		BaseScore:   baseScore,
		Vector:      vector,
		SourceURL:   fmt.Sprintf("https://nvd.nist.gov/vuln/detail/%s", item.ID),
		PublishedAt: parsePublished(item.Published),
		RawPayload:  raw,
		Products:    affectedProducts(item.Configurations),
	}, true
}

// affectedProducts walks every configuration node's cpeMatch leaves and
// parses each vulnerable CPE 2.3 URI into a product, deduplicating on
// vendor+product+version so a CVE referencing the same platform across
// several OR'd nodes doesn't produce repeat entries.
func affectedProducts(configurations []cveConfiguration) []outbound.ExtractedProduct {
	var products []outbound.ExtractedProduct
	seen := map[string]struct{}{}

	for _, config := range configurations {
		for _, node := range config.Nodes {
			for _, match := range node.CPEMatch {
				if !match.Vulnerable {
					continue
				}
				p, ok := parseCPE(match.Criteria)
				if !ok {
					continue
				}
				key := string(p.Type) + "|" + p.Name + "|" + p.Version
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				products = append(products, p)
			}
		}
	}

	return products
}

// parseCPE parses a CPE 2.3 formatted URI, e.g.
// "cpe:2.3:a:apache:tomcat:9.0.30:*:*:*:*:*:*:*", into a product. Per the
// CPE 2.3 binding grammar: part is one of "a" (application), "o" (operating
// system), or "h" (hardware).
func parseCPE(criteria string) (outbound.ExtractedProduct, bool) {
	fields := strings.Split(criteria, ":")
	if len(fields) < 6 || fields[0] != "cpe" {
		return outbound.ExtractedProduct{}, false
	}

	part, vendor, product, version := fields[2], fields[3], fields[4], fields[5]

	var productType threat.ProductType
	switch part {
	case "a":
		productType = threat.ProductTypeApplication
	case "o":
		productType = threat.ProductTypeOS
	case "h":
		productType = threat.ProductTypeHardware
	default:
		return outbound.ExtractedProduct{}, false
	}

	name := strings.TrimSpace(strings.ReplaceAll(vendor, "_", " ") + " " + strings.ReplaceAll(product, "_", " "))
	if name == "" {
		return outbound.ExtractedProduct{}, false
	}
	if version == "*" || version == "-" {
		version = ""
	}

	return outbound.ExtractedProduct{
		Name:         name,
		Version:      version,
		Type:         productType,
		OriginalText: criteria,
	}, true
}

// bestCVSS prefers v3.1, falls back to v3.0, then v2.0, matching NVD's own
// preference order for a single representative score.
func bestCVSS(m cveMetrics) (*float64, string) {
	switch {
	case len(m.CVSSMetricV31) > 0:
		score := m.CVSSMetricV31[0].CVSSData.BaseScore
		return &score, m.CVSSMetricV31[0].CVSSData.VectorString
	case len(m.CVSSMetricV30) > 0:
		score := m.CVSSMetricV30[0].CVSSData.BaseScore
		return &score, m.CVSSMetricV30[0].CVSSData.VectorString
	case len(m.CVSSMetricV2) > 0:
		score := m.CVSSMetricV2[0].CVSSData.BaseScore
		return &score, m.CVSSMetricV2[0].CVSSData.VectorString
	default:
		return nil, ""
	}
}

func englishDescription(descriptions []cveDescription) string {
	for _, d := range descriptions {
		if d.Lang == "en" {
			return d.Value
		}
	}
	if len(descriptions) > 0 {
		return descriptions[0].Value
	}
	return ""
}

func parsePublished(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.Replace(s, "Z", "+00:00", 1))
	if err != nil {
		return nil
	}
	return &t
}
