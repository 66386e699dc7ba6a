// Package snapshot orchestrates the valuation pipeline: ledger replay,
// exposure and risk computation, limit evaluation, persistence. The
// computation itself lives in internal/engine; this package only feeds it
// and stores what comes back.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/engine"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/refdata"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/storage"
)

// Config carries the policy knobs for a snapshot run
type Config struct {
	BaseCurrency   string
	RiskWindowDays int
	Metrics        engine.MetricsConfig
	Bands          engine.SeverityBands
}

// DefaultConfig returns the INR / daily-returns defaults
func DefaultConfig() Config {
	return Config{
		BaseCurrency:   "INR",
		RiskWindowDays: 252,
		Metrics:        engine.DefaultMetricsConfig(),
		Bands:          engine.DefaultSeverityBands(),
	}
}

// Repos groups the repositories a snapshot run writes to
type Repos struct {
	Portfolios   *storage.PortfolioRepository
	Transactions *storage.TransactionRepository
	Holdings     *storage.HoldingRepository
	Exposures    *storage.ExposureRepository
	Metrics      *storage.RiskMetricRepository
	Limits       *storage.RiskLimitRepository
	Breaches     *storage.RiskBreachRepository
}

// Service runs portfolio snapshots
type Service struct {
	cfg     Config
	repos   Repos
	refdata *refdata.Service
	log     zerolog.Logger
}

// NewService creates a snapshot service
func NewService(cfg Config, repos Repos, ref *refdata.Service, log zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		repos:   repos,
		refdata: ref,
		log:     log.With().Str("service", "snapshot").Logger(),
	}
}

// Report summarizes one portfolio's snapshot run
type Report struct {
	PortfolioID   uuid.UUID          `json:"portfolio_id"`
	SnapshotDate  time.Time          `json:"snapshot_date"`
	Holdings      int                `json:"holdings"`
	TotalValue    string             `json:"total_value"`
	Metric        *models.RiskMetric `json:"risk_metric,omitempty"`
	NewBreaches   int                `json:"new_breaches"`
	MetricSkipped string             `json:"metric_skipped,omitempty"`
}

// RunPortfolio computes and persists one portfolio's snapshot for a
// valuation date. A window too short for risk metrics is not a failure:
// holdings and exposures still persist and the report notes the gap.
func (s *Service) RunPortfolio(ctx context.Context, portfolioID uuid.UUID, date time.Time) (*Report, error) {
	date = date.UTC().Truncate(24 * time.Hour)

	portfolio, err := s.repos.Portfolios.GetByID(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	if portfolio == nil {
		return nil, fmt.Errorf("portfolio %s not found", portfolioID)
	}

	ledger, err := s.repos.Transactions.GetThroughDate(portfolioID, date)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	holdings, err := engine.AggregateHoldings(ledger, date, s.refdata.Price)
	if err != nil {
		return nil, fmt.Errorf("aggregate holdings: %w", err)
	}
	if err := s.repos.Holdings.ReplaceSnapshot(portfolioID, date, holdings); err != nil {
		return nil, fmt.Errorf("store holdings: %w", err)
	}

	portfolio.Holdings = holdings
	portfolio.CalculateTotals()
	if err := s.repos.Portfolios.Update(portfolio); err != nil {
		return nil, fmt.Errorf("update portfolio totals: %w", err)
	}

	resolver, err := s.buildResolver(holdings)
	if err != nil {
		return nil, err
	}

	allExposures := make([]models.Exposure, 0)
	for _, dim := range models.AllDimensions() {
		exposures := engine.CalculateExposures(holdings, resolver, dim, date)
		if err := s.repos.Exposures.ReplaceSnapshot(portfolioID, dim, date, exposures); err != nil {
			return nil, fmt.Errorf("store %s exposures: %w", dim, err)
		}
		allExposures = append(allExposures, exposures...)
	}

	report := &Report{
		PortfolioID:  portfolioID,
		SnapshotDate: date,
		Holdings:     len(holdings),
		TotalValue:   portfolio.TotalValue.String(),
	}

	metric, err := s.computeMetric(portfolioID, holdings, date)
	if err != nil {
		var insufficient *engine.InsufficientDataError
		if !errors.As(err, &insufficient) {
			return nil, err
		}
		report.MetricSkipped = insufficient.Error()
		s.log.Warn().
			Str("portfolio_id", portfolioID.String()).
			Msg("risk metrics skipped: return window too short")
	} else {
		metric.Sources = metric.Sources.
			Add("holdings:" + date.Format("2006-01-02")).
			Add("benchmark:" + s.refdata.BenchmarkSymbol())
		if err := s.repos.Metrics.Upsert(metric); err != nil {
			return nil, fmt.Errorf("store risk metric: %w", err)
		}
		report.Metric = metric
	}

	newBreaches, err := s.evaluateLimits(portfolioID, allExposures, metric, date)
	if err != nil {
		return nil, err
	}
	report.NewBreaches = newBreaches

	s.log.Info().
		Str("portfolio_id", portfolioID.String()).
		Time("snapshot_date", date).
		Int("holdings", report.Holdings).
		Int("new_breaches", report.NewBreaches).
		Msg("snapshot complete")

	return report, nil
}

// RunAll snapshots every portfolio, isolating per-portfolio failures so
// one bad ledger cannot block the batch
func (s *Service) RunAll(ctx context.Context, date time.Time) []Report {
	portfolios, err := s.repos.Portfolios.All()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list portfolios for batch run")
		return nil
	}

	reports := make([]Report, 0, len(portfolios))
	for _, p := range portfolios {
		if ctx.Err() != nil {
			break
		}
		report, err := s.RunPortfolio(ctx, p.ID, date)
		if err != nil {
			s.log.Error().Err(err).
				Str("portfolio_id", p.ID.String()).
				Msg("portfolio snapshot failed")
			continue
		}
		reports = append(reports, *report)
	}
	return reports
}

// Drift compares two stored exposure snapshots of one dimension
func (s *Service) Drift(portfolioID uuid.UUID, dim models.ExposureDimension, from, to time.Time) ([]models.DriftRecord, error) {
	t0, err := s.repos.Exposures.GetSnapshot(portfolioID, dim, from)
	if err != nil {
		return nil, err
	}
	t1, err := s.repos.Exposures.GetSnapshot(portfolioID, dim, to)
	if err != nil {
		return nil, err
	}

	h0, err := s.repos.Holdings.GetSnapshot(portfolioID, from)
	if err != nil {
		return nil, err
	}
	h1, err := s.repos.Holdings.GetSnapshot(portfolioID, to)
	if err != nil {
		return nil, err
	}

	resolver, err := s.buildResolver(append(append([]models.Holding{}, h0...), h1...))
	if err != nil {
		return nil, err
	}

	return engine.TrackDrift(t0, t1, h0, h1, resolver)
}

// Stress runs one scenario against a portfolio's stored holdings
func (s *Service) Stress(portfolioID uuid.UUID, scenario models.StressScenario, date time.Time) (*models.StressResult, error) {
	date = date.UTC().Truncate(24 * time.Hour)

	holdings, err := s.repos.Holdings.GetSnapshot(portfolioID, date)
	if err != nil {
		return nil, err
	}

	resolver, err := s.buildResolver(holdings)
	if err != nil {
		return nil, err
	}

	betas := s.assetBetas(holdings, date)

	result, err := engine.RunStressTest(holdings, resolver, scenario, betas, s.cfg.BaseCurrency, date)
	if err != nil {
		return nil, err
	}
	result.PortfolioID = portfolioID
	result.Sources = result.Sources.
		Add("holdings:" + date.Format("2006-01-02")).
		Add("scenario:" + scenario.Name)

	return result, nil
}

// Compare benchmarks a portfolio's return series and sector weights
func (s *Service) Compare(portfolioID uuid.UUID, date time.Time) (*models.BenchmarkComparison, error) {
	date = date.UTC().Truncate(24 * time.Hour)

	holdings, err := s.repos.Holdings.GetSnapshot(portfolioID, date)
	if err != nil {
		return nil, err
	}

	sectors, err := s.repos.Exposures.GetSnapshot(portfolioID, models.DimensionSector, date)
	if err != nil {
		return nil, err
	}

	from := date.AddDate(0, 0, -s.cfg.RiskWindowDays)
	portfolioReturns := engine.Returns(s.valueSeries(holdings, from, date))
	benchmarkReturns := engine.Returns(s.refdata.BenchmarkHistory(from, date))

	cmp, err := engine.CompareToBenchmark(
		portfolioID,
		s.refdata.BenchmarkSymbol(),
		portfolioReturns,
		benchmarkReturns,
		sectors,
		s.refdata.BenchmarkSectorWeights(),
		s.cfg.Metrics,
	)
	if err != nil {
		return nil, err
	}
	cmp.Sources = cmp.Sources.
		Add("holdings:" + date.Format("2006-01-02")).
		Add("benchmark:" + s.refdata.BenchmarkSymbol())

	return cmp, nil
}

func (s *Service) computeMetric(portfolioID uuid.UUID, holdings []models.Holding, date time.Time) (*models.RiskMetric, error) {
	from := date.AddDate(0, 0, -s.cfg.RiskWindowDays)

	portfolioReturns := engine.Returns(s.valueSeries(holdings, from, date))
	benchmarkReturns := engine.Returns(s.refdata.BenchmarkHistory(from, date))

	return engine.ComputeRiskMetrics(portfolioID, portfolioReturns, benchmarkReturns, date, s.cfg.Metrics)
}

// valueSeries marks the current position quantities to market across the
// window. Using fixed quantities isolates market moves from flows, which
// is what the risk window should measure.
func (s *Service) valueSeries(holdings []models.Holding, from, to time.Time) []models.PricePoint {
	if len(holdings) == 0 {
		return nil
	}

	series := make(map[string][]models.PricePoint, len(holdings))
	for _, h := range holdings {
		series[h.Symbol] = s.refdata.History(h.Symbol, from, to)
	}

	// Index by date so partially-quoted days are dropped, not guessed.
	totals := make(map[string]models.PricePoint)
	counts := make(map[string]int)
	for _, h := range holdings {
		for _, p := range series[h.Symbol] {
			key := p.Date.Format("2006-01-02")
			entry := totals[key]
			entry.Date = p.Date
			entry.Value = entry.Value.Add(h.Quantity.Mul(p.Value))
			totals[key] = entry
			counts[key]++
		}
	}

	points := make([]models.PricePoint, 0, len(totals))
	for key, p := range totals {
		if counts[key] == len(holdings) {
			points = append(points, p)
		}
	}
	return points
}

// assetBetas measures each holding's beta against the benchmark over the
// risk window, for market-shock sensitivity
func (s *Service) assetBetas(holdings []models.Holding, date time.Time) map[string]decimal.NullDecimal {
	from := date.AddDate(0, 0, -s.cfg.RiskWindowDays)
	benchmark := engine.Returns(s.refdata.BenchmarkHistory(from, date))

	betas := make(map[string]decimal.NullDecimal, len(holdings))
	for _, h := range holdings {
		assetReturns := engine.Returns(s.refdata.History(h.Symbol, from, date))
		betas[h.Symbol] = engine.Beta(assetReturns, benchmark)
	}
	return betas
}

func (s *Service) buildResolver(holdings []models.Holding) (*engine.Resolver, error) {
	for _, h := range holdings {
		if _, err := s.refdata.EnsureAsset(h.Symbol); err != nil {
			return nil, fmt.Errorf("enrich asset %s: %w", h.Symbol, err)
		}
	}

	table, err := s.refdata.ReferenceTable()
	if err != nil {
		return nil, err
	}
	return engine.NewResolver(table), nil
}

func (s *Service) evaluateLimits(portfolioID uuid.UUID, exposures []models.Exposure, metric *models.RiskMetric, date time.Time) (int, error) {
	limits, err := s.repos.Limits.GetByPortfolioID(portfolioID)
	if err != nil {
		return 0, fmt.Errorf("load limits: %w", err)
	}
	if len(limits) == 0 {
		return 0, nil
	}

	prior, err := s.repos.Breaches.PriorBreachKeys(portfolioID, date)
	if err != nil {
		return 0, fmt.Errorf("load prior breaches: %w", err)
	}

	breaches, err := engine.EvaluateLimits(limits, exposures, metric, date, s.cfg.Bands, prior)
	if err != nil {
		return 0, fmt.Errorf("evaluate limits: %w", err)
	}
	for i := range breaches {
		breaches[i].Sources = breaches[i].Sources.Add("exposures:" + date.Format("2006-01-02"))
	}

	if err := s.repos.Breaches.CreateBatch(breaches); err != nil {
		return 0, fmt.Errorf("store breaches: %w", err)
	}
	return len(breaches), nil
}
