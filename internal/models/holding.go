package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Holding is a derived point-in-time position. It is recomputed from the
// transaction ledger for a snapshot date, never incrementally patched, so
// the same ledger and date always produce the same holding.
type Holding struct {
	ID           uuid.UUID       `json:"id"`
	PortfolioID  uuid.UUID       `json:"portfolio_id"`
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgCost      decimal.Decimal `json:"avg_cost"`
	MarketValue  decimal.Decimal `json:"market_value"`
	SnapshotDate time.Time       `json:"snapshot_date"`
}

// CostBasis returns quantity x average cost
func (h *Holding) CostBasis() decimal.Decimal {
	return h.Quantity.Mul(h.AvgCost)
}

// GainLoss returns the unrealized gain/loss
func (h *Holding) GainLoss() decimal.Decimal {
	return h.MarketValue.Sub(h.CostBasis())
}

// GainLossPercent returns the unrealized gain/loss as a percentage of cost
func (h *Holding) GainLossPercent() decimal.Decimal {
	basis := h.CostBasis()
	if basis.IsZero() {
		return decimal.Zero
	}
	return h.GainLoss().Div(basis).Mul(decimal.NewFromInt(100)).Round(2)
}

// TotalMarketValue sums the market value of a holdings set
func TotalMarketValue(holdings []Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.MarketValue)
	}
	return total
}
