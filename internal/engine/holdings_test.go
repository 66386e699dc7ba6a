package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

var testPortfolioID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func tx(symbol string, txType models.TransactionType, date string, qty, price float64) models.Transaction {
	t := models.NewTransaction(testPortfolioID, symbol, txType, day(date), dec(qty), dec(price))
	return *t
}

func fixedPrices(prices map[string]float64) PriceFn {
	return func(symbol string, date time.Time) (decimal.Decimal, bool) {
		p, ok := prices[symbol]
		if !ok {
			return decimal.Zero, false
		}
		return dec(p), true
	}
}

func TestAggregateHoldings_WeightedAverageCost(t *testing.T) {
	txs := []models.Transaction{
		tx("RELIANCE.NS", models.TransactionBuy, "2024-01-05", 10, 100),
		tx("RELIANCE.NS", models.TransactionBuy, "2024-02-10", 10, 200),
	}

	holdings, err := AggregateHoldings(txs, day("2024-03-01"), fixedPrices(map[string]float64{"RELIANCE.NS": 150}))
	require.NoError(t, err)
	require.Len(t, holdings, 1)

	h := holdings[0]
	assert.True(t, h.Quantity.Equal(dec(20)), "quantity: %s", h.Quantity)
	assert.True(t, h.AvgCost.Equal(dec(150)), "avg cost: %s", h.AvgCost)
	assert.True(t, h.MarketValue.Equal(dec(3000)), "market value: %s", h.MarketValue)
}

func TestAggregateHoldings_SellLeavesAvgCost(t *testing.T) {
	txs := []models.Transaction{
		tx("TCS.NS", models.TransactionBuy, "2024-01-05", 10, 100),
		tx("TCS.NS", models.TransactionSell, "2024-02-01", 4, 180),
	}

	holdings, err := AggregateHoldings(txs, day("2024-03-01"), fixedPrices(map[string]float64{"TCS.NS": 200}))
	require.NoError(t, err)
	require.Len(t, holdings, 1)

	h := holdings[0]
	assert.True(t, h.Quantity.Equal(dec(6)))
	assert.True(t, h.AvgCost.Equal(dec(100)), "selling must not move average cost, got %s", h.AvgCost)
}

func TestAggregateHoldings_ZeroPositionDropped(t *testing.T) {
	txs := []models.Transaction{
		tx("INFY.NS", models.TransactionBuy, "2024-01-05", 5, 100),
		tx("INFY.NS", models.TransactionSell, "2024-02-01", 5, 120),
		tx("SBIN.NS", models.TransactionBuy, "2024-01-10", 3, 50),
	}

	holdings, err := AggregateHoldings(txs, day("2024-03-01"), fixedPrices(map[string]float64{"SBIN.NS": 60}))
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "SBIN.NS", holdings[0].Symbol)
}

func TestAggregateHoldings_CutoffExcludesLaterTransactions(t *testing.T) {
	txs := []models.Transaction{
		tx("INFY.NS", models.TransactionBuy, "2024-01-05", 5, 100),
		tx("INFY.NS", models.TransactionBuy, "2024-06-01", 50, 90),
	}

	holdings, err := AggregateHoldings(txs, day("2024-03-01"), fixedPrices(map[string]float64{"INFY.NS": 110}))
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.True(t, holdings[0].Quantity.Equal(dec(5)), "transactions after cutoff must be ignored")
}

func TestAggregateHoldings_MissingPriceIsDataGap(t *testing.T) {
	txs := []models.Transaction{
		tx("INFY.NS", models.TransactionBuy, "2024-01-05", 5, 100),
	}

	_, err := AggregateHoldings(txs, day("2024-03-01"), fixedPrices(nil))
	require.Error(t, err)

	var gap *DataGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, "INFY.NS", gap.Symbol)
}

func TestAggregateHoldings_Idempotent(t *testing.T) {
	txs := []models.Transaction{
		tx("RELIANCE.NS", models.TransactionBuy, "2024-01-05", 10, 100),
		tx("TCS.NS", models.TransactionBuy, "2024-01-06", 4, 3500),
		tx("RELIANCE.NS", models.TransactionSell, "2024-02-01", 3, 110),
	}
	prices := fixedPrices(map[string]float64{"RELIANCE.NS": 120, "TCS.NS": 3600})

	first, err := AggregateHoldings(txs, day("2024-03-01"), prices)
	require.NoError(t, err)
	second, err := AggregateHoldings(txs, day("2024-03-01"), prices)
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(first, second), "recomputation must be byte-identical")
}

func TestAggregateHoldings_InputOrderIrrelevant(t *testing.T) {
	a := tx("RELIANCE.NS", models.TransactionBuy, "2024-01-05", 10, 100)
	b := tx("RELIANCE.NS", models.TransactionBuy, "2024-02-10", 10, 200)
	prices := fixedPrices(map[string]float64{"RELIANCE.NS": 150})

	forward, err := AggregateHoldings([]models.Transaction{a, b}, day("2024-03-01"), prices)
	require.NoError(t, err)
	reversed, err := AggregateHoldings([]models.Transaction{b, a}, day("2024-03-01"), prices)
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(forward, reversed))
}
