package threat

import "github.com/google/uuid"

// Product is embedded in Threat: a single product reference extracted from
// advisory text, either by the rule engine or the extraction model.
type Product struct {
	id           uuid.UUID
	name         string
	version      string
	productType  ProductType
	originalText string
}

func NewProduct(name, version string, productType ProductType, originalText string) (Product, error) {
	if name == "" {
		return Product{}, ErrProductNameRequired
	}
	return Product{
		id:           uuid.New(),
		name:         name,
		version:      version,
		productType:  productType,
		originalText: originalText,
	}, nil
}

// RehydrateProduct reconstructs a Product from persisted state.
func RehydrateProduct(id uuid.UUID, name, version string, productType ProductType, originalText string) Product {
	return Product{id: id, name: name, version: version, productType: productType, originalText: originalText}
}

func (p Product) ID() uuid.UUID          { return p.id }
func (p Product) Name() string           { return p.name }
func (p Product) Version() string        { return p.version }
func (p Product) Type() ProductType      { return p.productType }
func (p Product) OriginalText() string   { return p.originalText }
