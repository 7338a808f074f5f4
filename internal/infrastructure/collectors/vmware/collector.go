// Package vmware implements the VMware Security Advisories (VMSA) feed
// driver: an RSS feed with one advisory per item, which can reference
// more than one CVE. When the RSS feed comes back empty the driver falls
// back to scraping the advisories index page for VMSA links and fetching
// each advisory page directly.
package vmware

import (
	"context"
	"encoding/xml"
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
	feedName   = "vmware_vmsa"
	rssURL     = "https://www.vmware.com/security/advisories.xml"
	indexURL   = "https://www.vmware.com/security/advisories.html"
	baseURL    = "https://www.vmware.com"
	maxDescLen = 2000
)

var (
	vmsaIDPattern = regexp.MustCompile(`VMSA-\d{4}-\d{4,5}`)
	cvePattern    = regexp.MustCompile(`CVE-\d{4}-\d{4,7}`)
)

type rssFeed struct {
	XMLName xml.Name  `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
}

// Driver reads the VMSA RSS feed and emits one RawAdvisory per CVE
// referenced in each item, since a single advisory commonly covers
// several CVEs.
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

// Collect ignores credentialBlob: the VMSA RSS feed is public.
func (d *Driver) Collect(ctx context.Context, _ []byte) ([]outbound.RawAdvisory, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rssURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vmware: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, retry.NewStatusError(feedName, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vmware: reading response body: %w", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, retry.NewDataFormatError(feedName, fmt.Errorf("parsing RSS: %w", err))
	}

	if len(feed.Channel.Items) == 0 {
		return d.collectFromIndex(ctx)
	}

	var advisories []outbound.RawAdvisory
	for _, item := range feed.Channel.Items {
		advisories = append(advisories, itemToAdvisories(item)...)
	}
	return advisories, nil
}

// collectFromIndex scrapes the advisories index page for VMSA links and
// fetches each linked advisory page, emitting one advisory per CVE on
// the page or a single CVE-less advisory when the page names none.
func (d *Driver) collectFromIndex(ctx context.Context) ([]outbound.RawAdvisory, error) {
	body, err := d.get(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("vmware: fetching advisories index: %w", err)
	}

	anchors, err := scrape.Links(body)
	if err != nil {
		return nil, retry.NewDataFormatError(feedName, fmt.Errorf("parsing advisories index: %w", err))
	}

	seen := make(map[string]bool)
	var advisories []outbound.RawAdvisory
	for _, a := range anchors {
		vmsaID := vmsaIDPattern.FindString(a.Text)
		if vmsaID == "" {
			vmsaID = vmsaIDPattern.FindString(a.Href)
		}
		if vmsaID == "" || seen[vmsaID] {
			continue
		}
		seen[vmsaID] = true

		pageURL := a.Href
		if strings.HasPrefix(pageURL, "/") {
			pageURL = baseURL + pageURL
		}

		adv, err := d.fetchAdvisoryPage(ctx, vmsaID, a.Text, pageURL)
		if err != nil {
			continue
		}
		advisories = append(advisories, adv...)
	}
	return advisories, nil
}

func (d *Driver) fetchAdvisoryPage(ctx context.Context, vmsaID, anchorText, pageURL string) ([]outbound.RawAdvisory, error) {
	body, err := d.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	text, err := scrape.Text(body)
	if err != nil {
		return nil, err
	}

	title := anchorText
	if title == "" || title == vmsaID {
		title = vmsaID + " security advisory"
	}
	if !strings.Contains(title, vmsaID) {
		title = fmt.Sprintf("%s: %s", vmsaID, title)
	}

	description := text
	if len(description) > maxDescLen {
		description = description[:maxDescLen]
	}

	cveIDs := uniqueMatches(cvePattern.FindAllString(text, -1))
	if len(cveIDs) == 0 {
		return []outbound.RawAdvisory{{
			Title:       title,
			Description: description,
			SourceURL:   pageURL,
		}}, nil
	}

	advisories := make([]outbound.RawAdvisory, 0, len(cveIDs))
	for _, cveID := range cveIDs {
		advisories = append(advisories, outbound.RawAdvisory{
			CVEID:       cveID,
			Title:       title,
			Description: description,
			SourceURL:   pageURL,
		})
	}
	return advisories, nil
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

// itemToAdvisories emits one RawAdvisory per CVE referenced in the item;
// when the item carries no CVE at all, it still emits a single CVE-less
// advisory identified by its VMSA/title rather than being dropped.
func itemToAdvisories(item rssItem) []outbound.RawAdvisory {
	cveIDs := uniqueMatches(cvePattern.FindAllString(item.Title+" "+item.Description, -1))

	vmsaID := vmsaIDPattern.FindString(item.Title)
	title := item.Title
	if vmsaID != "" {
		title = fmt.Sprintf("%s: %s", vmsaID, item.Title)
	}

	published := parsePubDate(item.PubDate)

	if len(cveIDs) == 0 {
		return []outbound.RawAdvisory{{
			Title:       title,
			Description: item.Description,
			SourceURL:   item.Link,
			PublishedAt: published,
		}}
	}

	advisories := make([]outbound.RawAdvisory, 0, len(cveIDs))
	for _, cveID := range cveIDs {
		advisories = append(advisories, outbound.RawAdvisory{
			CVEID:       cveID,
			Title:       title,
			Description: item.Description,
			SourceURL:   item.Link,
			PublishedAt: published,
		})
	}
	return advisories
}

func uniqueMatches(matches []string) []string {
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func parsePubDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC1123, s)
	if err != nil {
		t, err = time.Parse(time.RFC1123Z, s)
		if err != nil {
			return nil
		}
	}
	return &t
}
