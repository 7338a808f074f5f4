package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinks_CollectsAnchorsWithHref(t *testing.T) {
	page := []byte(`<html><body>
		<a href="/twcert/advisory/cp-139-1">TWCERT advisory one</a>
		<a name="no-href">skipped</a>
		<div><a href="https://example.org/a2"><span>nested</span> text</a></div>
	</body></html>`)

	links, err := Links(page)
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, "/twcert/advisory/cp-139-1", links[0].Href)
	assert.Equal(t, "TWCERT advisory one", links[0].Text)
	assert.Equal(t, "https://example.org/a2", links[1].Href)
	assert.Equal(t, "nested text", links[1].Text)
}

func TestText_DropsMarkupAndScripts(t *testing.T) {
	page := []byte(`<html><head><style>p{color:red}</style></head><body>
		<script>var hidden = 1;</script>
		<h1>VMSA-2024-0001</h1>
		<p>Multiple   vulnerabilities in
		ESXi.</p>
	</body></html>`)

	text, err := Text(page)
	require.NoError(t, err)

	assert.Equal(t, "VMSA-2024-0001 Multiple vulnerabilities in ESXi.", text)
	assert.NotContains(t, text, "hidden")
	assert.NotContains(t, text, "color")
}
