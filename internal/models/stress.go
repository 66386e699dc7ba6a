package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScenarioType selects which holdings a shock applies to
type ScenarioType string

const (
	// ScenarioSectorShock hits holdings whose sector matches TargetKey
	ScenarioSectorShock ScenarioType = "sector_shock"
	// ScenarioCurrencyShock hits holdings not denominated in the portfolio
	// base currency
	ScenarioCurrencyShock ScenarioType = "currency_shock"
	// ScenarioMarketShock hits every holding, scaled by its beta when one
	// is available
	ScenarioMarketShock ScenarioType = "market_shock"
)

// StressScenario is a configured hypothetical shock. ShockValue is a
// fractional price move (-0.20 = 20% drop). TargetKey names the factor for
// sector shocks and is ignored for market and currency shocks.
type StressScenario struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"` // e.g., "NIFTY -20%"
	Type        ScenarioType    `json:"scenario_type"`
	ShockValue  decimal.Decimal `json:"shock_value"`
	TargetKey   string          `json:"target_key,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// StressImpact is the per-asset breakdown of a stress run
type StressImpact struct {
	Symbol         string          `json:"symbol"`
	MarketValue    decimal.Decimal `json:"market_value"`
	SimulatedValue decimal.Decimal `json:"simulated_value"`
	Loss           decimal.Decimal `json:"loss"` // >= 0; gains never offset losses
	Sensitivity    decimal.Decimal `json:"sensitivity"`
}

// StressResult is a downside-only stress report: gains on unaffected
// assets never offset losses elsewhere. Recomputed on demand from current
// holdings, not incrementally maintained.
type StressResult struct {
	ID               uuid.UUID       `json:"id"`
	PortfolioID      uuid.UUID       `json:"portfolio_id"`
	ScenarioID       uuid.UUID       `json:"scenario_id"`
	ScenarioName     string          `json:"scenario_name"`
	EstimatedLoss    decimal.Decimal `json:"estimated_loss"`
	ImpactPercentage decimal.Decimal `json:"impact_percentage"`
	Impacts          []StressImpact  `json:"impacts"`
	SnapshotDate     time.Time       `json:"snapshot_date"`
	Sources          DataSources     `json:"data_sources"`
}
