package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIOCs_IPv4(t *testing.T) {
	result := ExtractIOCs("Beaconing observed to 203.0.113.5 and again to 203.0.113.5.")
	assert.Equal(t, []string{"203.0.113.5"}, result.IPs)
}

func TestExtractIOCs_IPv4ExcludesLoopback(t *testing.T) {
	result := ExtractIOCs("connections to 127.0.0.1 and 0.0.0.0 should be ignored, 198.51.100.7 should not")
	assert.Equal(t, []string{"198.51.100.7"}, result.IPs)
}

func TestExtractIOCs_IPv6(t *testing.T) {
	result := ExtractIOCs("exfil target 2001:0db8:85a3:0000:0000:8a2e:0370:7334")
	assert.Contains(t, result.IPs, "2001:0db8:85a3:0000:0000:8a2e:0370:7334")
}

func TestExtractIOCs_DomainsExcludeKnownSafe(t *testing.T) {
	result := ExtractIOCs("malicious.attacker-domain.com reached out, but example.com and localhost were not indicators")
	assert.Contains(t, result.Domains, "malicious.attacker-domain.com")
	assert.NotContains(t, result.Domains, "example.com")
	assert.NotContains(t, result.Domains, "localhost")
}

func TestExtractIOCs_HashesByLength(t *testing.T) {
	md5 := "d41d8cd98f00b204e9800998ecf8427e"
	sha1 := "da39a3ee5e6b4b0d3255bfef95601890afd80709"
	sha256 := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	result := ExtractIOCs("hashes: " + md5 + " " + sha1 + " not-a-hash " + sha256[:63])

	assert.Contains(t, result.Hashes, md5)
	assert.Contains(t, result.Hashes, sha1)
}

func TestExtractIOCs_ExcludesDegenerateAllZeroHash(t *testing.T) {
	allZero := "00000000000000000000000000000000"[:32]
	result := ExtractIOCs("hash: " + allZero)
	assert.NotContains(t, result.Hashes, allZero)
}

func TestExtractIOCs_NoIndicators(t *testing.T) {
	result := ExtractIOCs("this text has no indicators of compromise at all")
	assert.Empty(t, result.IPs)
	assert.Empty(t, result.Domains)
	assert.Empty(t, result.Hashes)
}
