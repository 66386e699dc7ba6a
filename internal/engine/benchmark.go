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

// CompareToBenchmark aligns portfolio and benchmark return series on
// their shared dates (inner join, gaps are dropped rather than filled) and
// computes return, volatility and max drawdown for both over that same
// window, plus sector-weight deviation of the portfolio's current sector
// exposures against the benchmark's published weights. Benchmark weights
// are external reference data, not derived here.
//
// Returns *InsufficientDataError when the shared window has fewer than 2
// observations.
func CompareToBenchmark(portfolioID uuid.UUID, benchmarkSymbol string, portfolio, benchmark []models.ReturnPoint, sectorExposures []models.Exposure, benchmarkWeights map[string]decimal.Decimal, cfg MetricsConfig) (*models.BenchmarkComparison, error) {
	joined := innerJoin(portfolio, benchmark)
	if len(joined) < 2 {
		return nil, &InsufficientDataError{Need: 2, Got: len(joined)}
	}

	pRets := make([]float64, len(joined))
	bRets := make([]float64, len(joined))
	for i, j := range joined {
		pRets[i] = j.portfolio
		bRets[i] = j.benchmark
	}

	cmp := &models.BenchmarkComparison{
		ID:               comparisonID(portfolioID, benchmarkSymbol, joined[len(joined)-1].date),
		PortfolioID:      portfolioID,
		BenchmarkSymbol:  benchmarkSymbol,
		WindowStart:      joined[0].date,
		WindowEnd:        joined[len(joined)-1].date,
		Observations:     len(joined),
		Portfolio:        seriesStats(pRets, cfg),
		Benchmark:        seriesStats(bRets, cfg),
		SectorDeviations: sectorDeviations(sectorExposures, benchmarkWeights),
	}
	return cmp, nil
}

func seriesStats(returns []float64, cfg MetricsConfig) models.SeriesStats {
	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
	}

	vol := stat.StdDev(returns, nil) * math.Sqrt(cfg.PeriodsPerYear)

	return models.SeriesStats{
		TotalReturn: decimal.NewFromFloat((cumulative - 1) * 100).Round(2),
		Volatility:  decimal.NewFromFloat(vol * 100).Round(2),
		MaxDrawdown: decimal.NewFromFloat(MaxDrawdown(returns) * 100).Round(4),
	}
}

// sectorDeviations subtracts published benchmark weights from current
// portfolio sector exposure over the union of sectors
func sectorDeviations(sectorExposures []models.Exposure, benchmarkWeights map[string]decimal.Decimal) []models.SectorDeviation {
	portfolio := make(map[string]decimal.Decimal, len(sectorExposures))
	for _, e := range sectorExposures {
		if e.Dimension == models.DimensionSector {
			portfolio[e.Key] = e.Value
		}
	}

	sectors := make([]string, 0, len(portfolio)+len(benchmarkWeights))
	seen := make(map[string]bool)
	for s := range portfolio {
		sectors = append(sectors, s)
		seen[s] = true
	}
	for s := range benchmarkWeights {
		if !seen[s] {
			sectors = append(sectors, s)
		}
	}
	sort.Strings(sectors)

	deviations := make([]models.SectorDeviation, 0, len(sectors))
	for _, s := range sectors {
		pw := portfolio[s]
		bw := benchmarkWeights[s]
		deviations = append(deviations, models.SectorDeviation{
			Sector:          s,
			PortfolioWeight: pw,
			BenchmarkWeight: bw,
			Deviation:       pw.Sub(bw).Round(2),
		})
	}
	return deviations
}

type alignedReturn struct {
	date      time.Time
	portfolio float64
	benchmark float64
}

func innerJoin(portfolio, benchmark []models.ReturnPoint) []alignedReturn {
	byDate := make(map[string]models.ReturnPoint, len(benchmark))
	for _, p := range benchmark {
		byDate[p.Date.UTC().Format("2006-01-02")] = p
	}

	joined := make([]alignedReturn, 0, len(portfolio))
	for _, p := range portfolio {
		if b, ok := byDate[p.Date.UTC().Format("2006-01-02")]; ok {
			joined = append(joined, alignedReturn{date: p.Date, portfolio: p.Return, benchmark: b.Return})
		}
	}
	sort.Slice(joined, func(i, j int) bool { return joined[i].date.Before(joined[j].date) })
	return joined
}

func comparisonID(portfolioID uuid.UUID, benchmark string, windowEnd time.Time) uuid.UUID {
	return uuid.NewSHA1(portfolioID, []byte("benchmark|"+benchmark+"|"+windowEnd.UTC().Format("2006-01-02")))
}
