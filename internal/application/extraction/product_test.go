package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractProducts_KeywordWithVersion(t *testing.T) {
	products := ExtractProducts("The vulnerability affects nginx 1.18.0 when compiled with module X.")
	found := findProduct(products, "nginx")
	if assert.NotNil(t, found) {
		assert.Equal(t, "1.18.0", found.Version)
		assert.Equal(t, 0.8, found.Confidence)
	}
}

func TestExtractProducts_KeywordWithoutVersionFallsBackToYear(t *testing.T) {
	products := ExtractProducts("A flaw was discovered in windows server 2019 during routine testing.")
	found := findProduct(products, "windows server")
	if assert.NotNil(t, found) {
		assert.Equal(t, "2019", found.Version)
	}
}

func TestExtractProducts_DeduplicatesRepeatedKeyword(t *testing.T) {
	products := ExtractProducts("openssl 3.0.1 and another mention of openssl 3.0.1 later in the text")
	count := 0
	for _, p := range products {
		if p.Name == "openssl" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractProducts_NoKnownKeyword(t *testing.T) {
	products := ExtractProducts("this text references only an obscure homegrown tool")
	assert.Empty(t, products)
}

func findProduct(products []ExtractedProduct, name string) *ExtractedProduct {
	for i := range products {
		if products[i].Name == name {
			return &products[i]
		}
	}
	return nil
}
