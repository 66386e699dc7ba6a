package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/refdata"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/storage"
)

type testEnv struct {
	service     *Service
	repos       Repos
	portfolioID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	userRepo := storage.NewUserRepository(db)
	user := models.NewUser("investor@example.com", "Investor", "hash")
	if err := userRepo.Create(user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	portfolioRepo := storage.NewPortfolioRepository(db)
	portfolio := models.NewPortfolio(user.ID, "Core")
	if err := portfolioRepo.Create(portfolio); err != nil {
		t.Fatalf("Failed to create portfolio: %v", err)
	}

	txRepo := storage.NewTransactionRepository(db)
	buys := []models.Transaction{
		*models.NewTransaction(portfolio.ID, "RELIANCE.NS", models.TransactionBuy,
			time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			decimal.NewFromInt(10), decimal.NewFromInt(2800)),
		*models.NewTransaction(portfolio.ID, "HDFCBANK.NS", models.TransactionBuy,
			time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
			decimal.NewFromInt(5), decimal.NewFromInt(1500)),
	}
	for i := range buys {
		buys[i].Currency = "INR"
	}
	if _, err := txRepo.CreateBatch(buys); err != nil {
		t.Fatalf("Failed to store transactions: %v", err)
	}

	repos := Repos{
		Portfolios:   portfolioRepo,
		Transactions: txRepo,
		Holdings:     storage.NewHoldingRepository(db),
		Exposures:    storage.NewExposureRepository(db),
		Metrics:      storage.NewRiskMetricRepository(db),
		Limits:       storage.NewRiskLimitRepository(db),
		Breaches:     storage.NewRiskBreachRepository(db),
	}

	ref := refdata.NewService(refdata.Config{BenchmarkSymbol: "^NSEI"}, storage.NewAssetRepository(db))
	service := NewService(DefaultConfig(), repos, ref, zerolog.Nop())

	return &testEnv{service: service, repos: repos, portfolioID: portfolio.ID}
}

var valuationDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func TestRunPortfolio(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.service.RunPortfolio(context.Background(), env.portfolioID, valuationDate)
	if err != nil {
		t.Fatalf("RunPortfolio failed: %v", err)
	}

	if report.Holdings != 2 {
		t.Errorf("Expected 2 holdings, got %d", report.Holdings)
	}

	holdings, err := env.repos.Holdings.GetSnapshot(env.portfolioID, valuationDate)
	if err != nil {
		t.Fatalf("Failed to load holdings: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("Expected 2 stored holdings, got %d", len(holdings))
	}
	for _, h := range holdings {
		if !h.MarketValue.IsPositive() {
			t.Errorf("Holding %s has non-positive market value %s", h.Symbol, h.MarketValue)
		}
	}

	sectors, err := env.repos.Exposures.GetSnapshot(env.portfolioID, models.DimensionSector, valuationDate)
	if err != nil {
		t.Fatalf("Failed to load sector exposures: %v", err)
	}
	if len(sectors) != 2 {
		t.Fatalf("Expected Energy and Banking exposures, got %d rows", len(sectors))
	}
	sum := decimal.Zero
	for _, e := range sectors {
		sum = sum.Add(e.Value)
	}
	if sum.Sub(decimal.NewFromInt(100)).Abs().GreaterThan(decimal.NewFromFloat(0.1)) {
		t.Errorf("Sector exposures sum to %s, want 100", sum)
	}

	if report.Metric == nil {
		t.Fatalf("Expected risk metrics, got skip: %s", report.MetricSkipped)
	}
	metric := report.Metric
	if metric.WindowDays < 2 {
		t.Errorf("Expected a multi-observation window, got %d", metric.WindowDays)
	}
	if metric.Volatility.IsNegative() {
		t.Errorf("Volatility must not be negative, got %s", metric.Volatility)
	}
	if metric.MaxDrawdown.IsPositive() {
		t.Errorf("Max drawdown must not be positive, got %s", metric.MaxDrawdown)
	}
	if metric.VaR95.IsPositive() {
		t.Errorf("VaR must not be positive, got %s", metric.VaR95)
	}
	if !metric.Beta.Valid {
		t.Error("Expected a defined beta against the simulated benchmark")
	}

	stored, err := env.repos.Metrics.GetByDate(env.portfolioID, valuationDate)
	if err != nil || stored == nil {
		t.Fatalf("Expected persisted metric, got %v, %v", stored, err)
	}
	if len(stored.Sources) == 0 {
		t.Error("Persisted metric must carry provenance")
	}
}

func TestRunPortfolio_Rerunnable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.service.RunPortfolio(ctx, env.portfolioID, valuationDate)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, err := env.service.RunPortfolio(ctx, env.portfolioID, valuationDate)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if first.TotalValue != second.TotalValue {
		t.Errorf("Reruns must agree: %s vs %s", first.TotalValue, second.TotalValue)
	}

	holdings, err := env.repos.Holdings.GetSnapshot(env.portfolioID, valuationDate)
	if err != nil {
		t.Fatalf("Failed to load holdings: %v", err)
	}
	if len(holdings) != 2 {
		t.Errorf("Rerun duplicated holdings: got %d rows", len(holdings))
	}
}

func TestRunPortfolio_LimitBreachOncePerDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	limit := &models.RiskLimit{
		ID:          uuid.New(),
		PortfolioID: env.portfolioID,
		Type:        models.LimitExposure,
		Key:         "sector:Energy",
		Threshold:   decimal.NewFromInt(10),
		CreatedAt:   time.Now().UTC(),
	}
	if err := env.repos.Limits.Create(limit); err != nil {
		t.Fatalf("Failed to create limit: %v", err)
	}

	first, err := env.service.RunPortfolio(ctx, env.portfolioID, valuationDate)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if first.NewBreaches != 1 {
		t.Fatalf("Expected 1 new breach, got %d", first.NewBreaches)
	}

	second, err := env.service.RunPortfolio(ctx, env.portfolioID, valuationDate)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if second.NewBreaches != 0 {
		t.Errorf("Same-day rerun must not re-emit the breach, got %d", second.NewBreaches)
	}

	breaches, err := env.repos.Breaches.GetByPortfolioID(env.portfolioID)
	if err != nil {
		t.Fatalf("Failed to load breaches: %v", err)
	}
	if len(breaches) != 1 {
		t.Fatalf("Expected exactly 1 stored breach, got %d", len(breaches))
	}
	if breaches[0].Severity != models.SeverityCritical {
		t.Errorf("An exposure several times its limit should be critical, got %s", breaches[0].Severity)
	}
}

func TestDriftBetweenSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	later := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	if _, err := env.service.RunPortfolio(ctx, env.portfolioID, valuationDate); err != nil {
		t.Fatalf("First snapshot failed: %v", err)
	}
	if _, err := env.service.RunPortfolio(ctx, env.portfolioID, later); err != nil {
		t.Fatalf("Second snapshot failed: %v", err)
	}

	records, err := env.service.Drift(env.portfolioID, models.DimensionSector, valuationDate, later)
	if err != nil {
		t.Fatalf("Drift failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected drift for both sectors, got %d records", len(records))
	}
	for _, rec := range records {
		if rec.Class != models.DriftPriceDriven {
			t.Errorf("No trades happened between snapshots; %s should be price driven, got %s",
				rec.Key, rec.Class)
		}
	}
}

func TestStressAgainstSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.RunPortfolio(ctx, env.portfolioID, valuationDate); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	scenario := models.StressScenario{
		ID:         uuid.New(),
		Name:       "Market -20%",
		Type:       models.ScenarioMarketShock,
		ShockValue: decimal.NewFromFloat(-0.20),
		CreatedAt:  time.Now().UTC(),
	}

	result, err := env.service.Stress(env.portfolioID, scenario, valuationDate)
	if err != nil {
		t.Fatalf("Stress failed: %v", err)
	}
	if !result.EstimatedLoss.IsPositive() {
		t.Errorf("A 20%% market drop must produce a loss, got %s", result.EstimatedLoss)
	}
	if len(result.Impacts) != 2 {
		t.Errorf("Expected per-asset impacts for both holdings, got %d", len(result.Impacts))
	}
	if len(result.Sources) == 0 {
		t.Error("Stress result must carry provenance")
	}
}

func TestCompareToBenchmark(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.RunPortfolio(ctx, env.portfolioID, valuationDate); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	cmp, err := env.service.Compare(env.portfolioID, valuationDate)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if cmp.Observations < 2 {
		t.Errorf("Expected overlapping observations, got %d", cmp.Observations)
	}
	if cmp.BenchmarkSymbol != "^NSEI" {
		t.Errorf("Unexpected benchmark symbol %s", cmp.BenchmarkSymbol)
	}
	if len(cmp.SectorDeviations) == 0 {
		t.Error("Expected sector deviations against the index weights")
	}
}
