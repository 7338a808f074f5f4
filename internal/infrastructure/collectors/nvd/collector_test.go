package nvd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetim/core/internal/domain/threat"
)

func TestParseCPE_MapsPartToProductType(t *testing.T) {
	cases := []struct {
		criteria string
		wantType threat.ProductType
		wantName string
		wantVer  string
	}{
		{"cpe:2.3:a:apache:tomcat:9.0.30:*:*:*:*:*:*:*", threat.ProductTypeApplication, "apache tomcat", "9.0.30"},
		{"cpe:2.3:o:microsoft:windows_server_2019:*:*:*:*:*:*:*:*", threat.ProductTypeOS, "microsoft windows server 2019", ""},
		{"cpe:2.3:h:cisco:asr_1000:-:*:*:*:*:*:*:*", threat.ProductTypeHardware, "cisco asr 1000", ""},
	}

	for _, c := range cases {
		p, ok := parseCPE(c.criteria)
		require.True(t, ok, c.criteria)
		assert.Equal(t, c.wantType, p.Type)
		assert.Equal(t, c.wantName, p.Name)
		assert.Equal(t, c.wantVer, p.Version)
		assert.Equal(t, c.criteria, p.OriginalText)
	}
}

func TestParseCPE_RejectsMalformedCriteria(t *testing.T) {
	_, ok := parseCPE("not-a-cpe-string")
	assert.False(t, ok)
}

func TestAffectedProducts_DedupesAcrossNodesAndSkipsNonVulnerable(t *testing.T) {
	configs := []cveConfiguration{
		{
			Nodes: []cveNode{
				{CPEMatch: []cpeMatch{
					{Vulnerable: true, Criteria: "cpe:2.3:a:apache:tomcat:9.0.30:*:*:*:*:*:*:*"},
					{Vulnerable: false, Criteria: "cpe:2.3:o:linux:linux_kernel:*:*:*:*:*:*:*:*"},
				}},
			},
		},
		{
			Nodes: []cveNode{
				{CPEMatch: []cpeMatch{
					{Vulnerable: true, Criteria: "cpe:2.3:a:apache:tomcat:9.0.30:*:*:*:*:*:*:*"},
				}},
			},
		},
	}

	products := affectedProducts(configs)
	require.Len(t, products, 1)
	assert.Equal(t, "apache tomcat", products[0].Name)
	assert.Equal(t, threat.ProductTypeApplication, products[0].Type)
}

func TestToAdvisory_PopulatesProductsFromConfigurations(t *testing.T) {
	item := cveItem{
		ID: "CVE-2024-12345",
		Descriptions: []cveDescription{
			{Lang: "en", Value: "A flaw in Tomcat."},
		},
		Configurations: []cveConfiguration{
			{Nodes: []cveNode{
				{CPEMatch: []cpeMatch{
					{Vulnerable: true, Criteria: "cpe:2.3:a:apache:tomcat:9.0.30:*:*:*:*:*:*:*"},
				}},
			}},
		},
	}

	adv, ok := toAdvisory(item)
	require.True(t, ok)
	require.Len(t, adv.Products, 1)
	assert.Equal(t, "apache tomcat", adv.Products[0].Name)
	assert.Equal(t, "9.0.30", adv.Products[0].Version)
	assert.Equal(t, threat.ProductTypeApplication, adv.Products[0].Type)
}
