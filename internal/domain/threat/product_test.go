package threat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct_RequiresName(t *testing.T) {
	_, err := NewProduct("", "1.0", ProductTypeApplication, "")
	assert.ErrorIs(t, err, ErrProductNameRequired)
}

func TestNewProduct_Accessors(t *testing.T) {
	p, err := NewProduct("nginx", "1.18.0", ProductTypeApplication, "nginx 1.18.0")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID())
	assert.Equal(t, "nginx", p.Name())
	assert.Equal(t, "1.18.0", p.Version())
	assert.Equal(t, ProductTypeApplication, p.Type())
	assert.Equal(t, "nginx 1.18.0", p.OriginalText())
}

func TestRehydrateProduct_PreservesID(t *testing.T) {
	id := uuid.New()
	p := RehydrateProduct(id, "windows server", "2019", ProductTypeOS, "windows server 2019")

	assert.Equal(t, id, p.ID())
	assert.Equal(t, "windows server", p.Name())
	assert.Equal(t, ProductTypeOS, p.Type())
}
