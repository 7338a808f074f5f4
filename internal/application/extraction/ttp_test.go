package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTTPs_SingleToken(t *testing.T) {
	ids := ExtractTTPs("The campaign relied heavily on phishing to gain initial access.")
	assert.Equal(t, []string{"T1566"}, ids)
}

func TestExtractTTPs_MultipleSortedAndDeduped(t *testing.T) {
	ids := ExtractTTPs("Attackers used powershell for execution and credential dumping for access, then more powershell.")
	assert.Equal(t, []string{"T1003", "T1059.001"}, ids)
}

func TestExtractTTPs_NoKnownTechnique(t *testing.T) {
	ids := ExtractTTPs("nothing matches any known technique here")
	assert.Empty(t, ids)
}

func TestExtractTTPs_CaseInsensitive(t *testing.T) {
	ids := ExtractTTPs("SQL INJECTION was used against the public endpoint")
	assert.Equal(t, []string{"T1190"}, ids)
}
