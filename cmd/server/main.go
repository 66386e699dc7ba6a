// Portfolio risk intelligence API server
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/config"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/engine"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/handlers"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/middleware"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/advisor"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/alerting"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/auth"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/importer"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/refdata"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/snapshot"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Repositories
	userRepo := storage.NewUserRepository(db)
	sessionRepo := storage.NewSessionRepository(db)
	portfolioRepo := storage.NewPortfolioRepository(db)
	holdingRepo := storage.NewHoldingRepository(db)
	assetRepo := storage.NewAssetRepository(db)
	transactionRepo := storage.NewTransactionRepository(db)
	exposureRepo := storage.NewExposureRepository(db)
	metricRepo := storage.NewRiskMetricRepository(db)
	limitRepo := storage.NewRiskLimitRepository(db)
	breachRepo := storage.NewRiskBreachRepository(db)
	scenarioRepo := storage.NewScenarioRepository(db)
	stressRepo := storage.NewStressResultRepository(db)

	// Services
	authService := auth.NewService(cfg, userRepo, sessionRepo)
	refdataService := refdata.NewService(refdata.Config{
		BenchmarkSymbol: cfg.BenchmarkSymbol,
	}, assetRepo)
	importerService := importer.NewService()

	snapshotService := snapshot.NewService(snapshot.Config{
		BaseCurrency:   cfg.BaseCurrency,
		RiskWindowDays: cfg.RiskWindowDays,
		Metrics: engine.MetricsConfig{
			PeriodsPerYear: cfg.PeriodsPerYear,
			VaRConfidence:  cfg.VaRConfidence,
		},
		Bands: engine.SeverityBands{
			InfoWithin:    decimal.NewFromFloat(cfg.SeverityInfoOver),
			WarningWithin: decimal.NewFromFloat(cfg.SeverityWarningOver),
		},
	}, snapshot.Repos{
		Portfolios:   portfolioRepo,
		Transactions: transactionRepo,
		Holdings:     holdingRepo,
		Exposures:    exposureRepo,
		Metrics:      metricRepo,
		Limits:       limitRepo,
		Breaches:     breachRepo,
	}, refdataService, logger)

	alertingService := alerting.NewService(breachRepo, limitRepo, logger)

	advisorConfig := advisor.DefaultConfig()
	advisorConfig.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	advisorService := advisor.NewService(advisorConfig, logger)

	// HTTP layer
	h := handlers.New(cfg, handlers.Services{
		Auth:     authService,
		Importer: importerService,
		Snapshot: snapshotService,
		Alerting: alertingService,
		Advisor:  advisorService,
		Refdata:  refdataService,
	}, handlers.Repos{
		Users:        userRepo,
		Portfolios:   portfolioRepo,
		Holdings:     holdingRepo,
		Transactions: transactionRepo,
		Exposures:    exposureRepo,
		Metrics:      metricRepo,
		Limits:       limitRepo,
		Breaches:     breachRepo,
		Scenarios:    scenarioRepo,
		StressRuns:   stressRepo,
	}, logger)

	authMW := middleware.NewAuth(authService)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders)
	router.Use(chimiddleware.Timeout(60 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h.Routes(router, authMW)

	// Background jobs
	scheduler := snapshot.NewScheduler(snapshotService, logger)
	if err := scheduler.Start(cfg.SnapshotSchedule); err != nil {
		logger.Fatal().Err(err).Msg("failed to start snapshot scheduler")
	}
	defer scheduler.Stop()

	cleanupDone := make(chan struct{})
	go sessionCleanupLoop(authService, logger, cleanupDone)
	defer close(cleanupDone)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("server starting")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

// sessionCleanupLoop purges expired sessions hourly
func sessionCleanupLoop(authService *auth.Service, logger zerolog.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := authService.CleanupExpiredSessions(); err != nil {
				logger.Error().Err(err).Msg("session cleanup failed")
			}
		}
	}
}
