package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// PriceFn looks up the price of a symbol on a date. The second return is
// false when no observation exists for that date.
type PriceFn func(symbol string, date time.Time) (decimal.Decimal, bool)

// AggregateHoldings collapses a portfolio's transaction ledger into
// point-in-time holdings for the cutoff date. Transactions after the
// cutoff are ignored, which is what keeps historical snapshots free of
// look-ahead. BUYs update the weighted average cost; SELLs reduce
// quantity and leave the average cost untouched (realized P&L is not
// tracked here). Positions that reach zero are dropped.
//
// Returns a *DataGapError when a price is missing for a symbol with a
// nonzero quantity at cutoff. Output is sorted by symbol so identical
// inputs always produce identical output.
func AggregateHoldings(txs []models.Transaction, cutoff time.Time, price PriceFn) ([]models.Holding, error) {
	// Replay in chronological order; order id breaks same-day ties so the
	// replay is stable regardless of input order.
	ledger := make([]models.Transaction, len(txs))
	copy(ledger, txs)
	sort.SliceStable(ledger, func(i, j int) bool {
		if !ledger[i].Date.Equal(ledger[j].Date) {
			return ledger[i].Date.Before(ledger[j].Date)
		}
		return ledger[i].ID.String() < ledger[j].ID.String()
	})

	type position struct {
		portfolioID uuid.UUID
		quantity    decimal.Decimal
		avgCost     decimal.Decimal
	}
	positions := make(map[string]*position)

	for _, tx := range ledger {
		if tx.Date.After(cutoff) {
			continue
		}

		pos, ok := positions[tx.Symbol]
		if !ok {
			pos = &position{portfolioID: tx.PortfolioID, quantity: decimal.Zero, avgCost: decimal.Zero}
			positions[tx.Symbol] = pos
		}

		switch tx.Type {
		case models.TransactionBuy:
			newQty := pos.quantity.Add(tx.Quantity)
			if newQty.IsPositive() {
				cost := pos.quantity.Mul(pos.avgCost).Add(tx.Quantity.Mul(tx.Price))
				pos.avgCost = cost.Div(newQty)
			}
			pos.quantity = newQty
		case models.TransactionSell:
			pos.quantity = pos.quantity.Sub(tx.Quantity)
			if pos.quantity.IsNegative() {
				// Oversells cannot create short positions in a retail
				// ledger; clamp and let the position drop below.
				pos.quantity = decimal.Zero
			}
		}
	}

	symbols := make([]string, 0, len(positions))
	for sym, pos := range positions {
		if pos.quantity.IsPositive() {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)

	holdings := make([]models.Holding, 0, len(symbols))
	for _, sym := range symbols {
		pos := positions[sym]

		px, ok := price(sym, cutoff)
		if !ok {
			return nil, &DataGapError{Symbol: sym, Date: cutoff}
		}

		holdings = append(holdings, models.Holding{
			// Name-based ID keeps recomputation byte-identical: the same
			// ledger and cutoff always yield the same holding rows.
			ID:           holdingID(pos.portfolioID, sym, cutoff),
			PortfolioID:  pos.portfolioID,
			Symbol:       sym,
			Quantity:     pos.quantity,
			AvgCost:      pos.avgCost,
			MarketValue:  pos.quantity.Mul(px),
			SnapshotDate: cutoff,
		})
	}

	return holdings, nil
}

func holdingID(portfolioID uuid.UUID, symbol string, cutoff time.Time) uuid.UUID {
	return uuid.NewSHA1(portfolioID, []byte(symbol+"|"+cutoff.UTC().Format("2006-01-02")))
}
