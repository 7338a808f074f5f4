package vmware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemToAdvisories_FansOutOnePerCVE(t *testing.T) {
	item := rssItem{
		Title:       "VMSA-2024-0001 VMware ESXi updates",
		Description: "Addresses CVE-2024-22252 and CVE-2024-22253. CVE-2024-22252 is critical.",
		Link:        "https://www.vmware.com/security/advisories/VMSA-2024-0001.html",
		PubDate:     "Tue, 05 Mar 2024 00:00:00 GMT",
	}

	advisories := itemToAdvisories(item)
	require.Len(t, advisories, 2)

	assert.Equal(t, "CVE-2024-22252", advisories[0].CVEID)
	assert.Equal(t, "CVE-2024-22253", advisories[1].CVEID)
	for _, adv := range advisories {
		assert.Contains(t, adv.Title, "VMSA-2024-0001")
		assert.Equal(t, item.Link, adv.SourceURL)
		require.NotNil(t, adv.PublishedAt)
	}
}

func TestItemToAdvisories_EmitsCVELessAdvisoryWhenNoneReferenced(t *testing.T) {
	item := rssItem{
		Title:       "VMSA-2024-0002 VMware Tools update",
		Description: "A security issue was privately reported.",
		Link:        "https://www.vmware.com/security/advisories/VMSA-2024-0002.html",
	}

	advisories := itemToAdvisories(item)
	require.Len(t, advisories, 1)
	assert.Empty(t, advisories[0].CVEID)
	assert.Contains(t, advisories[0].Title, "VMSA-2024-0002")
}
