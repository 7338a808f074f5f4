// Package twcert implements the TWCERT/CC advisory feed driver: the
// advisory index has no machine-readable feed, so this scrapes the listing
// page for advisory links, then fetches and strips tags from each
// advisory page. CVE extraction from the resulting Chinese/English mixed
// text is left entirely to the shared extractor (C1) downstream, since
// this collector has no AI collaborator of its own; when no CVE surfaces
// later, the ingestion pipeline still keeps the advisory under its raw
// title as a CVE-less threat record.
package twcert

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aetim/core/internal/infrastructure/collectors/scrape"
	"github.com/aetim/core/internal/infrastructure/retry"
	"github.com/aetim/core/internal/ports/outbound"
)

const (
	feedName       = "twcert"
	baseURL        = "https://www.twcert.org.tw"
	advisoryPage   = "https://www.twcert.org.tw/twcert/advisory"
	advisoryPrefix = "/twcert/advisory/"
	maxDescLen     = 1000
)

type advisoryLink struct {
	url   string
	title string
}

// Driver scrapes the TWCERT/CC advisory index and each linked advisory
// page for its text content.
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

// Collect ignores credentialBlob: the TWCERT/CC site requires no
// authentication.
func (d *Driver) Collect(ctx context.Context, _ []byte) ([]outbound.RawAdvisory, error) {
	links, err := d.fetchAdvisoryLinks(ctx)
	if err != nil {
		return nil, err
	}

	var advisories []outbound.RawAdvisory
	for _, link := range links {
		adv, err := d.fetchAdvisory(ctx, link)
		if err != nil {
			continue
		}
		advisories = append(advisories, adv)
	}
	return advisories, nil
}

func (d *Driver) fetchAdvisoryLinks(ctx context.Context) ([]advisoryLink, error) {
	body, err := d.get(ctx, advisoryPage)
	if err != nil {
		return nil, fmt.Errorf("twcert: fetching advisory index: %w", err)
	}

	anchors, err := scrape.Links(body)
	if err != nil {
		return nil, retry.NewDataFormatError(feedName, fmt.Errorf("parsing advisory index: %w", err))
	}

	var links []advisoryLink
	for _, a := range anchors {
		if !strings.HasPrefix(a.Href, advisoryPrefix) || a.Text == "" {
			continue
		}
		links = append(links, advisoryLink{url: joinURL(a.Href), title: a.Text})
	}
	return links, nil
}

func (d *Driver) fetchAdvisory(ctx context.Context, link advisoryLink) (outbound.RawAdvisory, error) {
	body, err := d.get(ctx, link.url)
	if err != nil {
		return outbound.RawAdvisory{}, err
	}

	content, err := scrape.Text(body)
	if err != nil {
		return outbound.RawAdvisory{}, retry.NewDataFormatError(feedName, fmt.Errorf("parsing advisory page: %w", err))
	}
	if len(content) > maxDescLen {
		content = content[:maxDescLen]
	}

	return outbound.RawAdvisory{
		Title:       link.title,
		Description: content,
		SourceURL:   link.url,
		PublishedAt: extractDate(string(body)),
	}, nil
}

func (d *Driver) get(ctx context.Context, targetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
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

func joinURL(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return baseURL + path
}

var datePattern = regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}`)

func extractDate(html string) *time.Time {
	match := datePattern.FindString(html)
	if match == "" {
		return nil
	}
	normalized := strings.ReplaceAll(match, "/", "-")
	t, err := time.Parse("2006-1-2", normalized)
	if err != nil {
		return nil
	}
	return &t
}
