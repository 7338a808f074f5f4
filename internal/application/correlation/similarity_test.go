package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSimilarity_IdenticalStrings(t *testing.T) {
	assert.Equal(t, 1.0, stringSimilarity("nginx", "nginx"))
}

func TestStringSimilarity_BothEmpty(t *testing.T) {
	assert.Equal(t, 1.0, stringSimilarity("", ""))
}

func TestStringSimilarity_OneEmpty(t *testing.T) {
	assert.Equal(t, 0.0, stringSimilarity("nginx", ""))
	assert.Equal(t, 0.0, stringSimilarity("", "nginx"))
}

func TestStringSimilarity_CompletelyDifferent(t *testing.T) {
	assert.Equal(t, 0.0, stringSimilarity("abc", "xyz"))
}

func TestStringSimilarity_AboveThresholdForCloseVariants(t *testing.T) {
	similarity := stringSimilarity("apache tomcat", "apache tomcatt")
	assert.Greater(t, similarity, similarityThreshold)
}

func TestStringSimilarity_BelowThresholdForUnrelatedNames(t *testing.T) {
	similarity := stringSimilarity("windows server", "oracle database")
	assert.Less(t, similarity, similarityThreshold)
}
