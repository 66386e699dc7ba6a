package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

func returnSeries(start string, rets ...float64) []models.ReturnPoint {
	dates := tradingDays(start, len(rets))
	points := make([]models.ReturnPoint, len(rets))
	for i, r := range rets {
		points[i] = models.ReturnPoint{Date: dates[i], Return: r}
	}
	return points
}

func tradingDays(start string, n int) []time.Time {
	d := day(start)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = d.AddDate(0, 0, i)
	}
	return out
}

func TestComputeRiskMetrics_BasicProperties(t *testing.T) {
	portfolio := returnSeries("2024-01-01", 0.01, -0.02, 0.015, -0.005, 0.02, -0.03, 0.01, 0.005)
	benchmark := returnSeries("2024-01-01", 0.008, -0.015, 0.01, -0.004, 0.018, -0.025, 0.009, 0.004)

	metric, err := ComputeRiskMetrics(testPortfolioID, portfolio, benchmark, day("2024-01-08"), DefaultMetricsConfig())
	require.NoError(t, err)

	assert.True(t, metric.Volatility.IsPositive(), "volatility %s", metric.Volatility)
	assert.True(t, metric.MaxDrawdown.LessThanOrEqual(dec(0)), "max drawdown %s", metric.MaxDrawdown)
	assert.True(t, metric.VaR95.LessThanOrEqual(dec(0)), "VaR %s", metric.VaR95)
	assert.True(t, metric.Beta.Valid)
	assert.Equal(t, 8, metric.WindowDays)
}

func TestComputeRiskMetrics_BetaAgainstSelfIsOne(t *testing.T) {
	series := returnSeries("2024-01-01", 0.01, -0.02, 0.015, -0.005, 0.02)

	metric, err := ComputeRiskMetrics(testPortfolioID, series, series, day("2024-01-05"), DefaultMetricsConfig())
	require.NoError(t, err)

	require.True(t, metric.Beta.Valid)
	assert.True(t, metric.Beta.Decimal.Equal(dec(1)), "beta %s", metric.Beta.Decimal)
}

func TestComputeRiskMetrics_FlatBenchmarkHasNullBeta(t *testing.T) {
	portfolio := returnSeries("2024-01-01", 0.01, -0.02, 0.015, -0.005)
	benchmark := returnSeries("2024-01-01", 0, 0, 0, 0)

	metric, err := ComputeRiskMetrics(testPortfolioID, portfolio, benchmark, day("2024-01-04"), DefaultMetricsConfig())
	require.NoError(t, err)

	assert.False(t, metric.Beta.Valid, "degenerate benchmark variance must not produce a beta")
}

func TestComputeRiskMetrics_NoBenchmarkOverlapHasNullBeta(t *testing.T) {
	portfolio := returnSeries("2024-01-01", 0.01, -0.02, 0.015)
	benchmark := returnSeries("2024-06-01", 0.01, -0.02, 0.015)

	metric, err := ComputeRiskMetrics(testPortfolioID, portfolio, benchmark, day("2024-01-03"), DefaultMetricsConfig())
	require.NoError(t, err)

	assert.False(t, metric.Beta.Valid)
}

func TestComputeRiskMetrics_InsufficientData(t *testing.T) {
	portfolio := returnSeries("2024-01-01", 0.01)

	_, err := ComputeRiskMetrics(testPortfolioID, portfolio, nil, day("2024-01-01"), DefaultMetricsConfig())

	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Need)
	assert.Equal(t, 1, insufficient.Got)
}

func TestComputeRiskMetrics_Deterministic(t *testing.T) {
	portfolio := returnSeries("2024-01-01", 0.01, -0.02, 0.015, -0.005, 0.02)
	benchmark := returnSeries("2024-01-01", 0.008, -0.015, 0.01, -0.004, 0.018)

	first, err := ComputeRiskMetrics(testPortfolioID, portfolio, benchmark, day("2024-01-05"), DefaultMetricsConfig())
	require.NoError(t, err)
	second, err := ComputeRiskMetrics(testPortfolioID, portfolio, benchmark, day("2024-01-05"), DefaultMetricsConfig())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMaxDrawdown(t *testing.T) {
	// +10%, then -50%: peak 1.10, trough 0.55, drawdown -0.5.
	dd := MaxDrawdown([]float64{0.10, -0.50})
	assert.InDelta(t, -0.5, dd, 1e-9)

	assert.Zero(t, MaxDrawdown([]float64{0.01, 0.02, 0.03}), "monotonic gains have no drawdown")
	assert.Zero(t, MaxDrawdown(nil))
}

func TestMaxDrawdown_RecoveryDoesNotErase(t *testing.T) {
	// Deep early loss followed by full recovery still reports the trough.
	dd := MaxDrawdown([]float64{-0.30, 0.60})
	assert.InDelta(t, -0.30, dd, 1e-9)
}

func TestHistoricalVaR(t *testing.T) {
	rets := []float64{-0.05, -0.02, -0.01, 0.0, 0.01, 0.01, 0.02, 0.02, 0.03, 0.04}

	v := HistoricalVaR(rets, 0.95)
	assert.Less(t, v, 0.0)
	assert.GreaterOrEqual(t, v, -0.05, "VaR cannot exceed the worst observed loss")

	assert.Zero(t, HistoricalVaR(nil, 0.95))
	assert.Zero(t, HistoricalVaR([]float64{0.01, 0.02}, 0.95), "all-gain series clamps to zero")
}

func TestReturns_SkipsNonPositivePrices(t *testing.T) {
	points := []models.PricePoint{
		{Date: day("2024-01-01"), Value: dec(100)},
		{Date: day("2024-01-02"), Value: dec(110)},
		{Date: day("2024-01-03"), Value: dec(0)},
		{Date: day("2024-01-04"), Value: dec(105)},
	}

	rets := Returns(points)
	require.Len(t, rets, 2, "the step starting from a non-positive price is dropped")
	assert.InDelta(t, 0.10, rets[0].Return, 1e-9)
	assert.InDelta(t, -1.0, rets[1].Return, 1e-9)
}

func TestReturns_SortsByDate(t *testing.T) {
	points := []models.PricePoint{
		{Date: day("2024-01-03"), Value: dec(121)},
		{Date: day("2024-01-01"), Value: dec(100)},
		{Date: day("2024-01-02"), Value: dec(110)},
	}

	rets := Returns(points)
	require.Len(t, rets, 2)
	assert.InDelta(t, 0.10, rets[0].Return, 1e-9)
	assert.InDelta(t, 0.10, rets[1].Return, 1e-9)
}
