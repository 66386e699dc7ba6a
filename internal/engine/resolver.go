package engine

import (
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// UnclassifiedKey groups holdings whose asset is missing from the
// reference table or has no value for a dimension
const UnclassifiedKey = "Unclassified"

// Resolver maps an asset symbol to its static reference metadata. It is
// a pure lookup over an immutable table loaded by the caller.
type Resolver struct {
	assets map[string]models.Asset
}

// NewResolver builds a resolver from a reference table. Later duplicates
// of the same symbol win, matching latest-enrichment semantics.
func NewResolver(assets []models.Asset) *Resolver {
	m := make(map[string]models.Asset, len(assets))
	for _, a := range assets {
		m[a.Symbol] = a
	}
	return &Resolver{assets: m}
}

// Lookup returns the reference record for a symbol
func (r *Resolver) Lookup(symbol string) (models.Asset, bool) {
	a, ok := r.assets[symbol]
	return a, ok
}

// Key returns the grouping key for a symbol along one dimension.
// SingleAsset uses the symbol itself, bypassing the reference table.
func (r *Resolver) Key(symbol string, dim models.ExposureDimension) string {
	if dim == models.DimensionSingleAsset {
		return symbol
	}

	a, ok := r.assets[symbol]
	if !ok {
		return UnclassifiedKey
	}

	var key string
	switch dim {
	case models.DimensionAssetClass:
		key = string(a.AssetClass)
	case models.DimensionSector:
		key = a.Sector
	case models.DimensionCurrency:
		key = a.Currency
	case models.DimensionGeography:
		key = a.Geography
	case models.DimensionMarketCap:
		key = string(a.MarketCap)
	}

	if key == "" {
		return UnclassifiedKey
	}
	return key
}
