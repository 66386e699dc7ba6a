package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RiskMetric is one portfolio's risk profile at a snapshot date, purely a
// function of the return window ending on that date. Volatility is an
// annualized percentage; MaxDrawdown and VaR95 are negative percentages.
// Beta is null when the benchmark variance is degenerate.
type RiskMetric struct {
	ID           uuid.UUID           `json:"id"`
	PortfolioID  uuid.UUID           `json:"portfolio_id"`
	Volatility   decimal.Decimal     `json:"volatility"`
	Beta         decimal.NullDecimal `json:"beta"`
	MaxDrawdown  decimal.Decimal     `json:"max_drawdown"`
	VaR95        decimal.Decimal     `json:"var_95"`
	WindowDays   int                 `json:"window_days"` // Observations used
	SnapshotDate time.Time           `json:"snapshot_date"`
	Sources      DataSources         `json:"data_sources"`
}

// LimitType distinguishes what a risk limit constrains
type LimitType string

const (
	// LimitExposure caps one exposure key; LimitKey is "<dimension>:<key>",
	// e.g. "sector:Banking" or "single_asset:RELIANCE.NS"
	LimitExposure LimitType = "exposure"
	// LimitVolatility caps annualized volatility percent
	LimitVolatility LimitType = "volatility"
	// LimitVaR caps the magnitude of VaR 95 percent
	LimitVaR LimitType = "var_95"
	// LimitDrawdown caps the magnitude of max drawdown percent
	LimitDrawdown LimitType = "max_drawdown"
)

// RiskLimit is user-authored configuration, versionless: the latest value
// is always the active one. The engine treats it as read-only input.
type RiskLimit struct {
	ID          uuid.UUID       `json:"id"`
	PortfolioID uuid.UUID       `json:"portfolio_id"`
	Type        LimitType       `json:"limit_type"`
	Key         string          `json:"limit_key,omitempty"`
	Threshold   decimal.Decimal `json:"threshold"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Severity levels for limit breaches
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// RiskBreach records one limit violation. Breaches are an append-only
// audit trail: never deleted or overwritten, only accumulated.
type RiskBreach struct {
	ID          uuid.UUID       `json:"id"`
	LimitID     uuid.UUID       `json:"limit_id"`
	PortfolioID uuid.UUID       `json:"portfolio_id"`
	ActualValue decimal.Decimal `json:"actual_value"`
	Threshold   decimal.Decimal `json:"threshold"`
	Severity    Severity        `json:"severity"`
	BreachDate  time.Time       `json:"breach_date"`
	Sources     DataSources     `json:"data_sources"`
}

// BreachKey identifies a breach for same-day idempotence
func (b *RiskBreach) BreachKey() string {
	return BreachKeyFor(b.LimitID, b.BreachDate)
}

// BreachKeyFor builds the (limit, day) idempotence key
func BreachKeyFor(limitID uuid.UUID, date time.Time) string {
	return limitID.String() + "|" + date.UTC().Format("2006-01-02")
}
