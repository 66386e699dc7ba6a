package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/engine"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// RunSnapshot recomputes holdings, exposures, risk metrics and breach
// checks for one portfolio at a valuation date
func (h *Handler) RunSnapshot(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	date, err := queryDate(r, "date")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.services.Snapshot.RunPortfolio(r.Context(), portfolio.ID, date)
	if err != nil {
		var gap *engine.DataGapError
		if errors.As(err, &gap) {
			h.respondError(w, http.StatusUnprocessableEntity, gap.Error())
			return
		}
		h.log.Error().Err(err).Str("portfolio_id", portfolio.ID.String()).Msg("snapshot failed")
		h.respondError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}
	h.services.Advisor.InvalidateCache(portfolio.ID.String())

	h.respond(w, http.StatusOK, report)
}

// GetExposures returns exposure breakdowns for a snapshot date. With a
// dimension parameter only that breakdown is returned.
func (h *Handler) GetExposures(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	date, err := h.resolveExposureDate(portfolio.ID, r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if date.IsZero() {
		h.respond(w, http.StatusOK, []models.Exposure{})
		return
	}

	var exposures []models.Exposure
	if raw := r.URL.Query().Get("dimension"); raw != "" {
		dim, ok := models.ParseDimension(raw)
		if !ok {
			h.respondError(w, http.StatusBadRequest, "unknown dimension")
			return
		}
		exposures, err = h.repos.Exposures.GetSnapshot(portfolio.ID, dim, date)
	} else {
		exposures, err = h.repos.Exposures.GetByDate(portfolio.ID, date)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load exposures")
		h.respondError(w, http.StatusInternalServerError, "failed to load exposures")
		return
	}

	h.respond(w, http.StatusOK, exposures)
}

// resolveExposureDate picks the requested date, or the latest snapshot
// when none is given. A zero return with nil error means no snapshots
// exist yet.
func (h *Handler) resolveExposureDate(portfolioID uuid.UUID, r *http.Request) (time.Time, error) {
	if r.URL.Query().Get("date") != "" {
		return queryDate(r, "date")
	}
	latest, err := h.repos.Holdings.LatestSnapshotDate(portfolioID)
	if err != nil {
		return time.Time{}, errors.New("failed to resolve snapshot date")
	}
	return latest, nil
}

// GetDrift classifies exposure changes between two snapshot dates
func (h *Handler) GetDrift(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	dim, ok := models.ParseDimension(r.URL.Query().Get("dimension"))
	if !ok {
		h.respondError(w, http.StatusBadRequest, "dimension is required")
		return
	}

	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}
	if !from.Before(to) {
		h.respondError(w, http.StatusBadRequest, "from must precede to")
		return
	}

	records, err := h.services.Snapshot.Drift(portfolio.ID, dim, from.UTC(), to.UTC())
	if err != nil {
		var gap *engine.DataGapError
		if errors.As(err, &gap) {
			h.respondError(w, http.StatusUnprocessableEntity, gap.Error())
			return
		}
		h.log.Error().Err(err).Msg("drift computation failed")
		h.respondError(w, http.StatusInternalServerError, "drift computation failed")
		return
	}

	h.respond(w, http.StatusOK, records)
}

// GetRiskMetric returns the risk metrics for a date (default: latest)
func (h *Handler) GetRiskMetric(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	var (
		metric *models.RiskMetric
		err    error
	)
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, perr := time.Parse("2006-01-02", raw)
		if perr != nil {
			h.respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		metric, err = h.repos.Metrics.GetByDate(portfolio.ID, date.UTC())
	} else {
		metric, err = h.repos.Metrics.Latest(portfolio.ID)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load risk metrics")
		h.respondError(w, http.StatusInternalServerError, "failed to load risk metrics")
		return
	}
	if metric == nil {
		h.respondError(w, http.StatusNotFound, "no risk metrics for this portfolio")
		return
	}

	h.respond(w, http.StatusOK, metric)
}

// GetBenchmarkComparison compares the portfolio to the configured index
func (h *Handler) GetBenchmarkComparison(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	date, err := queryDate(r, "date")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	comparison, err := h.services.Snapshot.Compare(portfolio.ID, date)
	if err != nil {
		var insufficient *engine.InsufficientDataError
		if errors.As(err, &insufficient) {
			h.respondError(w, http.StatusUnprocessableEntity, insufficient.Error())
			return
		}
		h.log.Error().Err(err).Msg("benchmark comparison failed")
		h.respondError(w, http.StatusInternalServerError, "benchmark comparison failed")
		return
	}

	h.respond(w, http.StatusOK, comparison)
}

// ListLimits returns the portfolio's configured risk limits
func (h *Handler) ListLimits(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	limits, err := h.repos.Limits.GetByPortfolioID(portfolio.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list limits")
		h.respondError(w, http.StatusInternalServerError, "failed to list limits")
		return
	}

	h.respond(w, http.StatusOK, limits)
}

type createLimitRequest struct {
	Type      string          `json:"limit_type"`
	Key       string          `json:"limit_key,omitempty"`
	Threshold decimal.Decimal `json:"threshold"`
}

// CreateLimit adds a risk limit. Exposure limits need a
// "<dimension>:<key>" limit key; metric limits must not carry one.
func (h *Handler) CreateLimit(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	var req createLimitRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	limitType := models.LimitType(req.Type)
	switch limitType {
	case models.LimitExposure:
		dim, _, found := strings.Cut(req.Key, ":")
		if !found {
			h.respondError(w, http.StatusBadRequest, `exposure limits need a "<dimension>:<key>" limit key`)
			return
		}
		if _, ok := models.ParseDimension(dim); !ok {
			h.respondError(w, http.StatusBadRequest, "unknown dimension in limit key")
			return
		}
	case models.LimitVolatility, models.LimitVaR, models.LimitDrawdown:
		if req.Key != "" {
			h.respondError(w, http.StatusBadRequest, "metric limits must not carry a limit key")
			return
		}
	default:
		h.respondError(w, http.StatusBadRequest, "unknown limit type")
		return
	}
	if req.Threshold.IsNegative() {
		h.respondError(w, http.StatusBadRequest, "threshold must not be negative")
		return
	}

	limit := &models.RiskLimit{
		ID:          uuid.New(),
		PortfolioID: portfolio.ID,
		Type:        limitType,
		Key:         req.Key,
		Threshold:   req.Threshold,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.repos.Limits.Create(limit); err != nil {
		h.log.Error().Err(err).Msg("failed to create limit")
		h.respondError(w, http.StatusInternalServerError, "failed to create limit")
		return
	}

	h.respond(w, http.StatusCreated, limit)
}

// DeleteLimit removes a risk limit; its historical breaches remain
func (h *Handler) DeleteLimit(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	limitID, err := uuid.Parse(chi.URLParam(r, "limitID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid limit id")
		return
	}

	limits, err := h.repos.Limits.GetByPortfolioID(portfolio.ID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load limits")
		return
	}
	owned := false
	for _, l := range limits {
		if l.ID == limitID {
			owned = true
			break
		}
	}
	if !owned {
		h.respondError(w, http.StatusNotFound, "limit not found")
		return
	}

	if err := h.repos.Limits.Delete(limitID); err != nil {
		h.log.Error().Err(err).Msg("failed to delete limit")
		h.respondError(w, http.StatusInternalServerError, "failed to delete limit")
		return
	}

	h.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListBreaches returns the portfolio's breach history, newest first
func (h *Handler) ListBreaches(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	breaches, err := h.repos.Breaches.GetByPortfolioID(portfolio.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list breaches")
		h.respondError(w, http.StatusInternalServerError, "failed to list breaches")
		return
	}

	h.respond(w, http.StatusOK, breaches)
}

// GetAlerts returns the severity-ranked alert feed
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	alerts, err := h.services.Alerting.FeedFor(portfolio.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build alert feed")
		h.respondError(w, http.StatusInternalServerError, "failed to build alert feed")
		return
	}

	h.respond(w, http.StatusOK, alerts)
}
