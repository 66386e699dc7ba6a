package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

func refAsset(symbol, sector, currency, geography string, class models.AssetClass, cap models.MarketCapBucket) models.Asset {
	a := models.NewAsset(symbol, symbol)
	a.Sector = sector
	a.Currency = currency
	a.Geography = geography
	a.AssetClass = class
	a.MarketCap = cap
	return *a
}

func testResolver() *Resolver {
	return NewResolver([]models.Asset{
		refAsset("RELIANCE.NS", "Energy", "INR", "India", models.AssetClassEquity, models.MarketCapLarge),
		refAsset("HDFCBANK.NS", "Banking", "INR", "India", models.AssetClassEquity, models.MarketCapLarge),
		refAsset("ICICIBANK.NS", "Banking", "INR", "India", models.AssetClassEquity, models.MarketCapLarge),
		refAsset("AAPL", "IT", "USD", "US", models.AssetClassEquity, models.MarketCapLarge),
	})
}

func holding(symbol string, qty, price float64) models.Holding {
	q := dec(qty)
	p := dec(price)
	return models.Holding{
		PortfolioID: testPortfolioID,
		Symbol:      symbol,
		Quantity:    q,
		AvgCost:     p,
		MarketValue: q.Mul(p),
	}
}

func TestCalculateExposures_SumsToHundred(t *testing.T) {
	holdings := []models.Holding{
		holding("RELIANCE.NS", 10, 2800),
		holding("HDFCBANK.NS", 7, 1650),
		holding("ICICIBANK.NS", 13, 1230),
		holding("AAPL", 3, 19000),
	}

	for _, dim := range models.AllDimensions() {
		exposures := CalculateExposures(holdings, testResolver(), dim, day("2024-03-01"))
		require.NotEmpty(t, exposures, "dimension %s", dim)

		sum := decimal.Zero
		seen := make(map[string]bool)
		for _, e := range exposures {
			assert.False(t, seen[e.Key], "key %s repeated in dimension %s", e.Key, dim)
			seen[e.Key] = true
			sum = sum.Add(e.Value)
		}
		diff := sum.Sub(decimal.NewFromInt(100)).Abs()
		assert.True(t, diff.LessThanOrEqual(dec(0.01)), "dimension %s sums to %s", dim, sum)
	}
}

func TestCalculateExposures_GroupsBySector(t *testing.T) {
	holdings := []models.Holding{
		holding("HDFCBANK.NS", 10, 100), // Banking 1000
		holding("ICICIBANK.NS", 20, 100), // Banking 2000
		holding("RELIANCE.NS", 10, 100),  // Energy 1000
	}

	exposures := CalculateExposures(holdings, testResolver(), models.DimensionSector, day("2024-03-01"))
	require.Len(t, exposures, 2)

	byKey := make(map[string]decimal.Decimal)
	for _, e := range exposures {
		byKey[e.Key] = e.Value
	}
	assert.True(t, byKey["Banking"].Equal(dec(75)), "banking: %s", byKey["Banking"])
	assert.True(t, byKey["Energy"].Equal(dec(25)), "energy: %s", byKey["Energy"])
}

func TestCalculateExposures_ZeroValuePortfolioIsEmpty(t *testing.T) {
	exposures := CalculateExposures(nil, testResolver(), models.DimensionSector, day("2024-03-01"))
	assert.Empty(t, exposures)

	zero := []models.Holding{{Symbol: "RELIANCE.NS", Quantity: decimal.Zero, MarketValue: decimal.Zero}}
	exposures = CalculateExposures(zero, testResolver(), models.DimensionSector, day("2024-03-01"))
	assert.Empty(t, exposures)
}

func TestCalculateExposures_SingleAssetBypassesReference(t *testing.T) {
	holdings := []models.Holding{
		holding("UNLISTED.XX", 10, 100), // not in reference table
		holding("RELIANCE.NS", 10, 100),
	}

	exposures := CalculateExposures(holdings, testResolver(), models.DimensionSingleAsset, day("2024-03-01"))
	require.Len(t, exposures, 2)

	keys := []string{exposures[0].Key, exposures[1].Key}
	assert.Contains(t, keys, "UNLISTED.XX")
	assert.Contains(t, keys, "RELIANCE.NS")
}

func TestCalculateExposures_UnknownAssetIsUnclassified(t *testing.T) {
	holdings := []models.Holding{
		holding("UNLISTED.XX", 10, 100),
	}

	exposures := CalculateExposures(holdings, testResolver(), models.DimensionSector, day("2024-03-01"))
	require.Len(t, exposures, 1)
	assert.Equal(t, UnclassifiedKey, exposures[0].Key)
	assert.True(t, exposures[0].Value.Equal(dec(100)))
}

func TestCalculateExposures_BankersRounding(t *testing.T) {
	// Three equal holdings round to 33.33% apiece, leaving a 0.01
	// residual. All buckets tie for largest, so the first key in sort
	// order (AAPL) absorbs it and the sum is exactly 100.
	holdings := []models.Holding{
		holding("RELIANCE.NS", 1, 100),
		holding("HDFCBANK.NS", 1, 100),
		holding("AAPL", 1, 100),
	}

	exposures := CalculateExposures(holdings, testResolver(), models.DimensionSingleAsset, day("2024-03-01"))
	require.Len(t, exposures, 3)

	sum := decimal.Zero
	byKey := make(map[string]decimal.Decimal)
	for _, e := range exposures {
		byKey[e.Key] = e.Value
		sum = sum.Add(e.Value)
	}
	assert.True(t, byKey["AAPL"].Equal(dec(33.34)), "AAPL: %s", byKey["AAPL"])
	assert.True(t, byKey["RELIANCE.NS"].Equal(dec(33.33)))
	assert.True(t, byKey["HDFCBANK.NS"].Equal(dec(33.33)))
	assert.True(t, sum.Equal(decimal.NewFromInt(100)), "sum: %s", sum)
}

func TestCalculateExposures_RoundingResidualAccumulation(t *testing.T) {
	// Seven equal holdings each round 14.2857 up to 14.29, overshooting
	// the dimension total by 0.03. The residual must be folded back so
	// the sum stays exactly 100.
	holdings := make([]models.Holding, 0, 7)
	for _, symbol := range []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7"} {
		holdings = append(holdings, holding(symbol, 1, 100))
	}

	exposures := CalculateExposures(holdings, testResolver(), models.DimensionSingleAsset, day("2024-03-01"))
	require.Len(t, exposures, 7)

	sum := decimal.Zero
	adjusted := 0
	for _, e := range exposures {
		if e.Value.Equal(dec(14.26)) {
			adjusted++
		} else {
			assert.True(t, e.Value.Equal(dec(14.29)), "%s: %s", e.Key, e.Value)
		}
		sum = sum.Add(e.Value)
	}
	assert.Equal(t, 1, adjusted, "exactly one bucket absorbs the residual")
	assert.True(t, sum.Equal(decimal.NewFromInt(100)), "sum: %s", sum)
}

func TestCalculateExposures_ResidualLandsOnLargestBucket(t *testing.T) {
	// 400/100/100/100: 57.14 + 3x14.29 = 100.01, so the dominant bucket
	// takes the correction down to 57.13.
	holdings := []models.Holding{
		holding("A1", 4, 100),
		holding("A2", 1, 100),
		holding("A3", 1, 100),
		holding("A4", 1, 100),
	}

	exposures := CalculateExposures(holdings, testResolver(), models.DimensionSingleAsset, day("2024-03-01"))
	require.Len(t, exposures, 4)

	sum := decimal.Zero
	byKey := make(map[string]decimal.Decimal)
	for _, e := range exposures {
		byKey[e.Key] = e.Value
		sum = sum.Add(e.Value)
	}
	assert.True(t, byKey["A1"].Equal(dec(57.13)), "A1: %s", byKey["A1"])
	for _, k := range []string{"A2", "A3", "A4"} {
		assert.True(t, byKey[k].Equal(dec(14.29)), "%s: %s", k, byKey[k])
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(100)), "sum: %s", sum)
}
