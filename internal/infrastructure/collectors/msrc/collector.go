// Package msrc implements the Microsoft Security Response Center feed
// driver: a list-of-updates call followed by one CVRF document fetch per
// update, each document covering one or more CVEs.
package msrc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aetim/core/internal/infrastructure/retry"
	"github.com/aetim/core/internal/ports/outbound"
)

const (
	feedName   = "msrc"
	apiBaseURL = "https://api.msrc.microsoft.com/cvrf/v2.0"
)

type updateList struct {
	Value []updateSummary `json:"value"`
}

type updateSummary struct {
	ID string `json:"ID"`
}

type cvrfDocument struct {
	DocumentTitle    string          `json:"DocumentTitle"`
	DocumentTracking documentTracking `json:"DocumentTracking"`
	Vulnerability    []vulnerability `json:"Vulnerability"`
}

type documentTracking struct {
	InitialReleaseDate string `json:"InitialReleaseDate"`
}

type vulnerability struct {
	CVE              string            `json:"CVE"`
	Notes            []note            `json:"Notes"`
	CVSSScoreSets    []cvssScoreSet    `json:"CVSSScoreSets"`
	ProductStatuses  []productStatus   `json:"ProductStatuses"`
}

type note struct {
	Type string `json:"Type"`
	Lang string `json:"Lang"`
	Text string `json:"Text"`
}

type cvssScoreSet struct {
	BaseScore json.Number `json:"BaseScore"`
	Vector    string      `json:"Vector"`
}

type productStatus struct {
	ProductID []string `json:"ProductID"`
}

// Driver fetches the current list of Microsoft security updates and
// retrieves each update's CVRF document to extract per-CVE detail.
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

// Collect reads an optional API key out of credentialBlob.
func (d *Driver) Collect(ctx context.Context, credentialBlob []byte) ([]outbound.RawAdvisory, error) {
	apiKey := strings.TrimSpace(string(credentialBlob))

	updates, err := d.fetchUpdates(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	var advisories []outbound.RawAdvisory
	for _, u := range updates {
		if u.ID == "" {
			continue
		}
		doc, err := d.fetchCVRF(ctx, apiKey, u.ID)
		if err != nil {
			continue
		}
		advisories = append(advisories, documentToAdvisories(doc)...)
	}
	return advisories, nil
}

func (d *Driver) fetchUpdates(ctx context.Context, apiKey string) ([]updateSummary, error) {
	body, err := d.get(ctx, apiKey, apiBaseURL+"/updates")
	if err != nil {
		return nil, fmt.Errorf("msrc: fetching updates: %w", err)
	}
	var list updateList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, retry.NewDataFormatError(feedName, fmt.Errorf("decoding updates list: %w", err))
	}
	return list.Value, nil
}

func (d *Driver) fetchCVRF(ctx context.Context, apiKey, updateID string) (cvrfDocument, error) {
	body, err := d.get(ctx, apiKey, fmt.Sprintf("%s/cvrf/%s", apiBaseURL, updateID))
	if err != nil {
		return cvrfDocument{}, err
	}
	var doc cvrfDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return cvrfDocument{}, retry.NewDataFormatError(feedName, fmt.Errorf("decoding cvrf document: %w", err))
	}
	return doc, nil
}

func (d *Driver) get(ctx context.Context, apiKey, targetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		req.Header.Set("apiKey", apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, retry.NewStatusError(feedName, resp)
	}
	return io.ReadAll(resp.Body)
}

func documentToAdvisories(doc cvrfDocument) []outbound.RawAdvisory {
	published := parseISODate(doc.DocumentTracking.InitialReleaseDate)

	var advisories []outbound.RawAdvisory
	for _, v := range doc.Vulnerability {
		if v.CVE == "" {
			continue
		}

		title := v.CVE
		if doc.DocumentTitle != "" {
			title = fmt.Sprintf("%s: %s", v.CVE, doc.DocumentTitle)
		}

		description := englishDescriptionNote(v.Notes)
		if description == "" {
			description = fmt.Sprintf("Microsoft Security Update: %s", v.CVE)
		}

		var baseScore *float64
		vector := ""
		if len(v.CVSSScoreSets) > 0 {
			if f, err := strconv.ParseFloat(v.CVSSScoreSets[0].BaseScore.String(), 64); err == nil {
				baseScore = &f
			}
			vector = v.CVSSScoreSets[0].Vector
		}

		raw, err := json.Marshal(v)
		if err != nil {
			raw = nil
		}

		advisories = append(advisories, outbound.RawAdvisory{
			CVEID:       v.CVE,
			Title:       title,
			Description: description,
			BaseScore:   baseScore,
			Vector:      vector,
			SourceURL:   fmt.Sprintf("https://msrc.microsoft.com/update-guide/vulnerability/%s", v.CVE),
			PublishedAt: published,
			RawPayload:  raw,
		})
	}
	return advisories
}

func englishDescriptionNote(notes []note) string {
	for _, n := range notes {
		if n.Type == "Description" && n.Lang == "en" {
			return n.Text
		}
	}
	return ""
}

func parseISODate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.Replace(s, "Z", "+00:00", 1))
	if err != nil {
		return nil
	}
	return &t
}
