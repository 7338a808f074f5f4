// Package scrape holds the HTML walking shared by the drivers that have
// no machine-readable feed (TWCERT's advisory index, VMware's advisories
// page when the RSS feed comes back empty).
package scrape

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Link is one anchor found in a document.
type Link struct {
	Href string
	Text string
}

// Links parses body and returns every anchor carrying an href, with the
// anchor's flattened text content.
func Links(body []byte) ([]Link, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || attr.Val == "" {
					continue
				}
				links = append(links, Link{Href: attr.Val, Text: strings.Join(strings.Fields(nodeText(n)), " ")})
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// Text parses body and returns its visible text with whitespace
// collapsed. Script and style contents are dropped.
func Text(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(nodeText(doc)), " "), nil
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}

	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
		sb.WriteString(" ")
	}
	return sb.String()
}
