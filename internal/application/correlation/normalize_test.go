package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeProductName_StripsTrailingVersionAndYear(t *testing.T) {
	assert.Equal(t, "nginx", normalizeProductName("nginx 1.18.0"))
	assert.Equal(t, "windows server", normalizeProductName("Windows Server 2019"))
}

func TestNormalizeProductName_AppliesKnownAliases(t *testing.T) {
	assert.Equal(t, "microsoft sql server", normalizeProductName("MS SQL"))
	assert.Equal(t, "microsoft sql server", normalizeProductName("SQL Server"))
	assert.Equal(t, "vmware esxi", normalizeProductName("ESXi"))
	assert.Equal(t, "vmware esxi", normalizeProductName("VMware ESXi"))
}

func TestNormalizeProductName_CanonicalSpellingsAreStable(t *testing.T) {
	// Names that already contain the canonical form of one of their own
	// alias substrings must not be rewritten again.
	assert.Equal(t, "microsoft sql server", normalizeProductName("Microsoft SQL Server"))
	assert.Equal(t, "microsoft sql server", normalizeProductName("SQL Server 2019"))
	assert.Equal(t, "postgresql", normalizeProductName("PostgreSQL"))
}

func TestNormalizeProductName_StripsPunctuationAndWhitespace(t *testing.T) {
	assert.Equal(t, "apache http server", normalizeProductName("Apache HTTPD!!"))
}

func TestNormalizeProductName_Empty(t *testing.T) {
	assert.Equal(t, "", normalizeProductName(""))
}

func TestNormalizeVersion_StripsLeadingVPrefix(t *testing.T) {
	assert.Equal(t, "1.18.0", normalizeVersion("v1.18.0"))
	assert.Equal(t, "2.0", normalizeVersion("Version 2.0"))
	assert.Equal(t, "", normalizeVersion(""))
}
