package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCVEs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single well formed id",
			text: "This advisory concerns CVE-2024-12345 in the wild.",
			want: []string{"CVE-2024-12345"},
		},
		{
			name: "deduplicates and sorts ascending",
			text: "Affected by CVE-2023-00002 and CVE-2021-99999, also CVE-2021-99999 again.",
			want: []string{"CVE-2021-99999", "CVE-2023-00002"},
		},
		{
			name: "case insensitive and separator variants canonicalise uppercase",
			text: "cve 2022 4567 and Cve-2022-4567",
			want: []string{"CVE-2022-4567"},
		},
		{
			name: "rejects years outside 1999-2099",
			text: "CVE-1998-0001 and CVE-2100-0001 should not match, CVE-1999-0001 should",
			want: []string{"CVE-1999-0001"},
		},
		{
			name: "no CVEs present",
			text: "nothing interesting here",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCVEs(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCVEs_Idempotent(t *testing.T) {
	text := "CVE-2024-00123 affects multiple products alongside CVE-2020-0601."
	first := ExtractCVEs(text)
	second := ExtractCVEs(text)
	assert.Equal(t, first, second)
}

func TestIsValidCVE(t *testing.T) {
	assert.True(t, IsValidCVE("CVE-2024-12345"))
	assert.False(t, IsValidCVE("CVE-1998-12345"))
	assert.False(t, IsValidCVE("CVE-2024-123"))
	assert.False(t, IsValidCVE("not a cve"))
}
