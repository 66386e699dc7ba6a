package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

func TestCompareToBenchmark_InnerJoinDropsUnmatchedDates(t *testing.T) {
	portfolio := returnSeries("2024-01-01", 0.01, 0.02, -0.01, 0.015)
	// Benchmark is missing the first two portfolio dates and has one
	// extra trailing date of its own.
	benchmark := returnSeries("2024-01-03", 0.005, 0.01, 0.02)

	cmp, err := CompareToBenchmark(testPortfolioID, "^NSEI", portfolio, benchmark, nil, nil, DefaultMetricsConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, cmp.Observations)
	assert.Equal(t, day("2024-01-03"), cmp.WindowStart)
	assert.Equal(t, day("2024-01-04"), cmp.WindowEnd)
}

func TestCompareToBenchmark_TotalReturn(t *testing.T) {
	// (1.10)(0.90) - 1 = -1%
	portfolio := returnSeries("2024-01-01", 0.10, -0.10)
	benchmark := returnSeries("2024-01-01", 0.05, 0.05)

	cmp, err := CompareToBenchmark(testPortfolioID, "^NSEI", portfolio, benchmark, nil, nil, DefaultMetricsConfig())
	require.NoError(t, err)

	assert.True(t, cmp.Portfolio.TotalReturn.Equal(dec(-1)), "portfolio return %s", cmp.Portfolio.TotalReturn)
	assert.True(t, cmp.Benchmark.TotalReturn.Equal(dec(10.25)), "benchmark return %s", cmp.Benchmark.TotalReturn)
	assert.True(t, cmp.Benchmark.MaxDrawdown.IsZero())
	assert.True(t, cmp.Portfolio.MaxDrawdown.LessThan(dec(0)))
}

func TestCompareToBenchmark_InsufficientOverlap(t *testing.T) {
	portfolio := returnSeries("2024-01-01", 0.01, 0.02)
	benchmark := returnSeries("2024-06-01", 0.01, 0.02)

	_, err := CompareToBenchmark(testPortfolioID, "^NSEI", portfolio, benchmark, nil, nil, DefaultMetricsConfig())

	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Got)
}

func TestCompareToBenchmark_SectorDeviations(t *testing.T) {
	portfolio := returnSeries("2024-01-01", 0.01, 0.02)
	benchmark := returnSeries("2024-01-01", 0.01, 0.02)

	exposures := []models.Exposure{
		{Dimension: models.DimensionSector, Key: "Banking", Value: dec(40)},
		{Dimension: models.DimensionSector, Key: "Pharma", Value: dec(60)},
		// Wrong-dimension rows must be ignored.
		{Dimension: models.DimensionCurrency, Key: "INR", Value: dec(100)},
	}
	weights := map[string]decimal.Decimal{
		"Banking": dec(30),
		"IT":      dec(15),
	}

	cmp, err := CompareToBenchmark(testPortfolioID, "^NSEI", portfolio, benchmark, exposures, weights, DefaultMetricsConfig())
	require.NoError(t, err)

	require.Len(t, cmp.SectorDeviations, 3, "union of portfolio and benchmark sectors")

	bySector := make(map[string]models.SectorDeviation)
	for _, d := range cmp.SectorDeviations {
		bySector[d.Sector] = d
	}

	assert.True(t, bySector["Banking"].Deviation.Equal(dec(10)), "overweight Banking")
	assert.True(t, bySector["Pharma"].Deviation.Equal(dec(60)), "sector absent from benchmark")
	assert.True(t, bySector["IT"].Deviation.Equal(dec(-15)), "sector absent from portfolio")

	// Sorted by sector name.
	assert.Equal(t, "Banking", cmp.SectorDeviations[0].Sector)
	assert.Equal(t, "IT", cmp.SectorDeviations[1].Sector)
	assert.Equal(t, "Pharma", cmp.SectorDeviations[2].Sector)
}

func TestCompareToBenchmark_Deterministic(t *testing.T) {
	portfolio := returnSeries("2024-01-01", 0.01, -0.02, 0.015)
	benchmark := returnSeries("2024-01-01", 0.008, -0.015, 0.01)

	first, err := CompareToBenchmark(testPortfolioID, "^NSEI", portfolio, benchmark, nil, nil, DefaultMetricsConfig())
	require.NoError(t, err)
	second, err := CompareToBenchmark(testPortfolioID, "^NSEI", portfolio, benchmark, nil, nil, DefaultMetricsConfig())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
