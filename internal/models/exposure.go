package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExposureDimension is a grouping axis for portfolio exposure
type ExposureDimension string

const (
	DimensionAssetClass  ExposureDimension = "asset_class"
	DimensionSector      ExposureDimension = "sector"
	DimensionCurrency    ExposureDimension = "currency"
	DimensionGeography   ExposureDimension = "geography"
	DimensionMarketCap   ExposureDimension = "market_cap"
	DimensionSingleAsset ExposureDimension = "single_asset"
)

// AllDimensions returns every exposure dimension for iteration
func AllDimensions() []ExposureDimension {
	return []ExposureDimension{
		DimensionAssetClass,
		DimensionSector,
		DimensionCurrency,
		DimensionGeography,
		DimensionMarketCap,
		DimensionSingleAsset,
	}
}

// ParseDimension validates a dimension string
func ParseDimension(s string) (ExposureDimension, bool) {
	for _, d := range AllDimensions() {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// Exposure is the percentage of total portfolio market value attributable
// to one key along one dimension at a snapshot date. For a fixed
// portfolio/dimension/date the values sum to 100 (± rounding epsilon) and
// no key repeats.
type Exposure struct {
	ID           uuid.UUID         `json:"id"`
	PortfolioID  uuid.UUID         `json:"portfolio_id"`
	Dimension    ExposureDimension `json:"dimension"`
	Key          string            `json:"key"`   // e.g., "Banking"
	Value        decimal.Decimal   `json:"value"` // 0–100, 2dp
	SnapshotDate time.Time         `json:"snapshot_date"`
}

// DriftClass attributes an exposure change to its cause
type DriftClass string

const (
	DriftFlowDriven  DriftClass = "flow_driven"  // Quantity changed in the window
	DriftPriceDriven DriftClass = "price_driven" // Quantity stable, market value moved
	DriftMixed       DriftClass = "mixed"        // Both quantity and price changed
	DriftNewPosition DriftClass = "new_position" // Key absent at T0
	DriftExited      DriftClass = "exited"       // Key absent at T1
)

// DriftRecord is the classified exposure delta for one key between two
// snapshot dates
type DriftRecord struct {
	PortfolioID uuid.UUID         `json:"portfolio_id"`
	Dimension   ExposureDimension `json:"dimension"`
	Key         string            `json:"key"`
	FromDate    time.Time         `json:"from_date"`
	ToDate      time.Time         `json:"to_date"`
	FromValue   decimal.Decimal   `json:"from_value"`
	ToValue     decimal.Decimal   `json:"to_value"`
	Delta       decimal.Decimal   `json:"delta"`
	Class       DriftClass        `json:"class"`
}
