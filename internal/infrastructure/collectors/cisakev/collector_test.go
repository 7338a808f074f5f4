package cisakev

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetim/core/internal/domain/threat"
)

func TestEntryToAdvisory_DefaultsSeverityHighWithoutCVSS(t *testing.T) {
	adv := entryToAdvisory(kevEntry{
		CVEID:          "CVE-2024-1709",
		VendorProject:  "ConnectWise",
		Product:        "ScreenConnect",
		ShortDesc:      "Authentication bypass using an alternate path.",
		DateAdded:      "2024-02-22",
		RequiredAction: "Apply mitigations per vendor instructions.",
	})

	assert.Equal(t, threat.SeverityHigh, adv.Severity)
	assert.Nil(t, adv.BaseScore)
	assert.Contains(t, adv.Description, "Authentication bypass")
	assert.Contains(t, adv.Description, "Required Action: Apply mitigations per vendor instructions.")
	assert.Equal(t, catalogRef, adv.SourceURL)
	require.NotNil(t, adv.PublishedAt)
}

func TestEntryToAdvisory_KeepsCVSSWhenPresent(t *testing.T) {
	score := 9.8
	adv := entryToAdvisory(kevEntry{
		CVEID:     "CVE-2024-21887",
		VulnName:  "Ivanti Connect Secure Command Injection",
		ShortDesc: "A command injection vulnerability.",
		CVSSScore: &score,
	})

	// With a score present, severity derivation is left to the CVSS band.
	assert.Empty(t, adv.Severity)
	require.NotNil(t, adv.BaseScore)
	assert.Equal(t, 9.8, *adv.BaseScore)
	assert.Equal(t, "CVE-2024-21887: Ivanti Connect Secure Command Injection", adv.Title)
}

func TestEntryToAdvisory_SynthesisesDescriptionWhenShortDescMissing(t *testing.T) {
	adv := entryToAdvisory(kevEntry{CVEID: "CVE-2023-0001"})

	assert.Equal(t, threat.SeverityHigh, adv.Severity)
	assert.Contains(t, adv.Description, "CVE-2023-0001")
	assert.Contains(t, adv.Description, "exploited in the wild")
}
