package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeriesStats summarizes one return series over a shared window
type SeriesStats struct {
	TotalReturn decimal.Decimal `json:"total_return"` // Cumulative, percent
	Volatility  decimal.Decimal `json:"volatility"`   // Annualized, percent
	MaxDrawdown decimal.Decimal `json:"max_drawdown"` // Negative percent
}

// SectorDeviation is portfolio sector weight minus the benchmark's
// published weight for the same sector
type SectorDeviation struct {
	Sector          string          `json:"sector"`
	PortfolioWeight decimal.Decimal `json:"portfolio_weight"`
	BenchmarkWeight decimal.Decimal `json:"benchmark_weight"`
	Deviation       decimal.Decimal `json:"deviation"`
}

// BenchmarkComparison aligns a portfolio against a benchmark over the
// inner-joined date window. Dates missing on either side are dropped,
// never forward-filled.
type BenchmarkComparison struct {
	ID               uuid.UUID         `json:"id"`
	PortfolioID      uuid.UUID         `json:"portfolio_id"`
	BenchmarkSymbol  string            `json:"benchmark_symbol"` // e.g., "^NSEI"
	WindowStart      time.Time         `json:"window_start"`
	WindowEnd        time.Time         `json:"window_end"`
	Observations     int               `json:"observations"`
	Portfolio        SeriesStats       `json:"portfolio"`
	Benchmark        SeriesStats       `json:"benchmark"`
	SectorDeviations []SectorDeviation `json:"sector_deviations,omitempty"`
	Sources          DataSources       `json:"data_sources"`
}
