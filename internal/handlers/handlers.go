// Package handlers provides the JSON HTTP API
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/config"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/middleware"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/advisor"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/alerting"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/auth"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/importer"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/refdata"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/snapshot"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/storage"
)

// Services bundles the service dependencies of the API
type Services struct {
	Auth     *auth.Service
	Importer *importer.Service
	Snapshot *snapshot.Service
	Alerting *alerting.Service
	Advisor  *advisor.Service
	Refdata  *refdata.Service
}

// Repos bundles the repository dependencies of the API
type Repos struct {
	Users        *storage.UserRepository
	Portfolios   *storage.PortfolioRepository
	Holdings     *storage.HoldingRepository
	Transactions *storage.TransactionRepository
	Exposures    *storage.ExposureRepository
	Metrics      *storage.RiskMetricRepository
	Limits       *storage.RiskLimitRepository
	Breaches     *storage.RiskBreachRepository
	Scenarios    *storage.ScenarioRepository
	StressRuns   *storage.StressResultRepository
}

// Handler contains all HTTP handlers and their dependencies
type Handler struct {
	cfg      *config.Config
	services Services
	repos    Repos
	log      zerolog.Logger
}

// New creates a handler with all dependencies
func New(cfg *config.Config, services Services, repos Repos, log zerolog.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		services: services,
		repos:    repos,
		log:      log.With().Str("component", "handlers").Logger(),
	}
}

// Routes registers all API routes. Everything except health and auth
// requires a session.
func (h *Handler) Routes(r chi.Router, authMW *middleware.Auth) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAuth)

			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.Me)
			r.Post("/auth/password", h.ChangePassword)

			r.Route("/portfolios", func(r chi.Router) {
				r.Get("/", h.ListPortfolios)
				r.Post("/", h.CreatePortfolio)

				r.Route("/{portfolioID}", func(r chi.Router) {
					r.Get("/", h.GetPortfolio)
					r.Delete("/", h.DeletePortfolio)

					r.Post("/import", h.ImportTradebook)
					r.Get("/transactions", h.ListTransactions)
					r.Get("/holdings", h.GetHoldings)

					r.Post("/snapshot", h.RunSnapshot)
					r.Get("/exposures", h.GetExposures)
					r.Get("/drift", h.GetDrift)
					r.Get("/risk", h.GetRiskMetric)
					r.Get("/benchmark", h.GetBenchmarkComparison)

					r.Get("/limits", h.ListLimits)
					r.Post("/limits", h.CreateLimit)
					r.Delete("/limits/{limitID}", h.DeleteLimit)
					r.Get("/breaches", h.ListBreaches)
					r.Get("/alerts", h.GetAlerts)

					r.Post("/stress/{scenarioID}", h.RunStress)
					r.Get("/stress", h.ListStressResults)

					r.Post("/advisor/ask", h.AskAdvisor)
				})
			})

			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Post("/", h.CreateScenario)
				r.Delete("/{scenarioID}", h.DeleteScenario)
			})

			r.Get("/assets", h.ListAssets)
			r.Get("/advisor/usage", h.AdvisorUsage)
		})
	})
}

// Health reports service liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respond(w, status, map[string]string{"error": message})
}

func (h *Handler) decode(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ownedPortfolio loads a portfolio from the URL and verifies the session
// user owns it. Writes the error response itself and returns nil when the
// caller should stop.
func (h *Handler) ownedPortfolio(w http.ResponseWriter, r *http.Request) *models.Portfolio {
	user := middleware.GetUser(r)
	if user == nil {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}

	id, err := uuid.Parse(chi.URLParam(r, "portfolioID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid portfolio id")
		return nil
	}

	portfolio, err := h.repos.Portfolios.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", id.String()).Msg("failed to load portfolio")
		h.respondError(w, http.StatusInternalServerError, "failed to load portfolio")
		return nil
	}
	if portfolio == nil || portfolio.UserID != user.ID {
		h.respondError(w, http.StatusNotFound, "portfolio not found")
		return nil
	}

	return portfolio
}

// queryDate parses an optional YYYY-MM-DD query parameter, defaulting to
// today (UTC)
func queryDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be YYYY-MM-DD")
	}
	return parsed.UTC(), nil
}
