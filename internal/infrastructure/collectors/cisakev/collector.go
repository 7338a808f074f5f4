// Package cisakev implements the CISA Known Exploited Vulnerabilities feed
// driver: a single JSON document with no pagination and no authentication.
package cisakev

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/infrastructure/retry"
	"github.com/aetim/core/internal/ports/outbound"
)

const (
	feedName   = "cisa_kev"
	catalogURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	catalogRef = "https://www.cisa.gov/known-exploited-vulnerabilities-catalog"
)

type kevEntry struct {
	CVEID          string   `json:"cveID"`
	VendorProject  string   `json:"vendorProject"`
	Product        string   `json:"product"`
	VulnName       string   `json:"vulnerabilityName"`
	ShortDesc      string   `json:"shortDescription"`
	DateAdded      string   `json:"dateAdded"`
	RequiredAction string   `json:"requiredAction"`
	CVSSScore      *float64 `json:"cvssScore"`
}

type kevCatalog struct {
	Vulnerabilities []kevEntry `json:"vulnerabilities"`
}

// Driver fetches the full KEV catalogue on every Collect call; CISA
// republishes the whole document rather than offering incremental deltas.
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

// Collect ignores credentialBlob: the KEV feed requires no authentication.
func (d *Driver) Collect(ctx context.Context, _ []byte) ([]outbound.RawAdvisory, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, catalogURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cisakev: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, retry.NewStatusError(feedName, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cisakev: reading response body: %w", err)
	}

	var catalog kevCatalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, retry.NewDataFormatError(feedName, fmt.Errorf("decoding catalogue: %w", err))
	}

	advisories := make([]outbound.RawAdvisory, 0, len(catalog.Vulnerabilities))
	for _, v := range catalog.Vulnerabilities {
		if v.CVEID == "" {
			continue
		}
		advisories = append(advisories, entryToAdvisory(v))
	}

	return advisories, nil
}

// entryToAdvisory maps one catalogue entry onto the normalised advisory
// shape. A KEV listing already implies exploitation in the wild, so an
// entry without a CVSS score is still tagged High rather than landing
// unrated, and the catalogue's required action travels with the
// description.
func entryToAdvisory(v kevEntry) outbound.RawAdvisory {
	var titleParts []string
	if v.VulnName != "" {
		titleParts = append(titleParts, v.VulnName)
	} else {
		if v.VendorProject != "" {
			titleParts = append(titleParts, v.VendorProject)
		}
		if v.Product != "" {
			titleParts = append(titleParts, v.Product)
		}
	}
	title := v.CVEID
	if len(titleParts) > 0 {
		title = fmt.Sprintf("%s: %s", v.CVEID, strings.Join(titleParts, " "))
	}

	description := v.ShortDesc
	if description == "" {
		description = fmt.Sprintf("CVE: %s, known to be exploited in the wild (CISA KEV)", v.CVEID)
	}
	if v.RequiredAction != "" {
		description = fmt.Sprintf("%s\n\nRequired Action: %s", description, v.RequiredAction)
	}

	var severity threat.Severity
	if v.CVSSScore == nil {
		severity = threat.SeverityHigh
	}

	raw, err := json.Marshal(v)
	if err != nil {
		raw = nil
	}

	return outbound.RawAdvisory{
		CVEID:       v.CVEID,
		Title:       title,
		Description: description,
		BaseScore:   v.CVSSScore,
		Severity:    severity,
		SourceURL:   catalogRef,
		PublishedAt: parseDateAdded(v.DateAdded),
		RawPayload:  raw,
	}
}

func parseDateAdded(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
