package ototahmin

import (
	"context"

	"github.com/goliatone/go-ototahmin/pkg/catalog"
	"github.com/goliatone/go-ototahmin/pkg/openapi"
)

// NewCatalogLoader constructs the reference data loader while keeping the
// concrete type hidden from consumers.
func NewCatalogLoader(options ...catalog.LoaderOption) catalog.Loader {
	return catalog.NewLoader(options...)
}

// LoadContract parses and validates the embedded API contract.
func LoadContract(ctx context.Context) (*openapi.Contract, error) {
	return openapi.Load(ctx)
}
