package engine

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// MetricsConfig carries the policy choices the risk formulas depend on.
// The window that produced the return series is the caller's concern;
// the engine only tags the snapshot date that ends it.
type MetricsConfig struct {
	// PeriodsPerYear annualizes periodic volatility. 252 assumes daily
	// returns over trading days.
	PeriodsPerYear float64
	// VaRConfidence is the confidence level for historical VaR,
	// e.g. 0.95 for the 5th-percentile loss.
	VaRConfidence float64
}

// DefaultMetricsConfig assumes daily returns and 95% VaR
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{PeriodsPerYear: 252, VaRConfidence: 0.95}
}

// benchmarkVarianceFloor below which beta is undefined rather than a
// huge ratio of noise
const benchmarkVarianceFloor = 1e-12

// ComputeRiskMetrics derives volatility, beta, max drawdown and VaR from
// a portfolio return series, with beta measured against the benchmark
// over their inner-joined dates only.
//
// Volatility is the annualized sample standard deviation (n-1) as a
// percentage. Max drawdown is the largest peak-to-trough decline of the
// cumulative return path, a negative percentage. VaR 95 uses the
// historical method (the empirical tail percentile with linear
// interpolation between order statistics) rather than the parametric
// alternative; it is a negative percentage for the
// one-period loss magnitude. Beta is null when the overlap is too short
// or the benchmark variance is degenerate; that is a defined outcome,
// not an error.
//
// Returns *InsufficientDataError when fewer than 2 portfolio
// observations exist.
func ComputeRiskMetrics(portfolioID uuid.UUID, portfolio, benchmark []models.ReturnPoint, snapshot time.Time, cfg MetricsConfig) (*models.RiskMetric, error) {
	rets := returnValues(portfolio)
	if len(rets) < 2 {
		return nil, &InsufficientDataError{Need: 2, Got: len(rets)}
	}

	vol := stat.StdDev(rets, nil) * math.Sqrt(cfg.PeriodsPerYear)

	metric := &models.RiskMetric{
		ID:           metricID(portfolioID, snapshot),
		PortfolioID:  portfolioID,
		Volatility:   decimal.NewFromFloat(vol * 100).Round(2),
		Beta:         computeBeta(portfolio, benchmark),
		MaxDrawdown:  decimal.NewFromFloat(MaxDrawdown(rets) * 100).Round(4),
		VaR95:        decimal.NewFromFloat(HistoricalVaR(rets, cfg.VaRConfidence) * 100).Round(4),
		WindowDays:   len(rets),
		SnapshotDate: snapshot,
	}
	return metric, nil
}

// Beta is covariance(series, benchmark) / variance(benchmark) over
// aligned dates. Sample statistics throughout (n-1). Null when the
// overlap is too short or the benchmark variance is degenerate.
func Beta(series, benchmark []models.ReturnPoint) decimal.NullDecimal {
	return computeBeta(series, benchmark)
}

// computeBeta is covariance(portfolio, benchmark) / variance(benchmark)
// over aligned dates. Sample statistics throughout (n-1).
func computeBeta(portfolio, benchmark []models.ReturnPoint) decimal.NullDecimal {
	p, b := alignReturns(portfolio, benchmark)
	if len(p) < 2 {
		return decimal.NullDecimal{}
	}

	benchVar := stat.Variance(b, nil)
	if benchVar < benchmarkVarianceFloor {
		return decimal.NullDecimal{}
	}

	beta := stat.Covariance(p, b, nil) / benchVar
	return decimal.NullDecimal{Valid: true, Decimal: decimal.NewFromFloat(beta).Round(4)}
}

// MaxDrawdown walks the cumulative return path once, tracking the
// running peak and the worst value/peak ratio seen. Always <= 0.
func MaxDrawdown(returns []float64) float64 {
	wealth := 1.0
	peak := 1.0
	maxDD := 0.0

	for _, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		if dd := wealth/peak - 1; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// HistoricalVaR returns the (1-confidence) empirical quantile of the
// return distribution, linearly interpolated between order statistics,
// clamped to <= 0 so it always reads as a loss magnitude.
func HistoricalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	q := stat.Quantile(1-confidence, stat.LinInterp, sorted, nil)
	return math.Min(q, 0)
}

func metricID(portfolioID uuid.UUID, snapshot time.Time) uuid.UUID {
	return uuid.NewSHA1(portfolioID, []byte("risk_metric|"+snapshot.UTC().Format("2006-01-02")))
}
