package handlers

import (
	"net/http"
	"strings"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/middleware"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/advisor"
)

type askRequest struct {
	Question string            `json:"question"`
	Context  map[string]string `json:"context,omitempty"`
}

// AskAdvisor answers a question about the portfolio's risk profile. The
// advisor only ever sees derived records loaded here; the raw ledger
// stays out of its context.
func (h *Handler) AskAdvisor(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}
	user := middleware.GetUser(r)

	var req askRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		h.respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	rc, err := h.buildRiskContext(portfolio)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load risk context")
		h.respondError(w, http.StatusInternalServerError, "failed to load risk context")
		return
	}

	response, err := h.services.Advisor.Ask(r.Context(), &advisor.Query{
		UserID:      user.ID.String(),
		Text:        req.Question,
		PortfolioID: portfolio.ID.String(),
		Context:     req.Context,
	}, rc)
	if err != nil {
		h.log.Error().Err(err).Msg("advisor query failed")
		h.respondError(w, http.StatusBadGateway, "advisor query failed")
		return
	}

	h.respond(w, http.StatusOK, response)
}

// buildRiskContext assembles the advisor's retrieval context from stored
// engine output
func (h *Handler) buildRiskContext(portfolio *models.Portfolio) (*advisor.RiskContext, error) {
	latest, err := h.repos.Holdings.LatestSnapshotDate(portfolio.ID)
	if err != nil {
		return nil, err
	}
	if latest.IsZero() {
		return nil, nil
	}

	exposures, err := h.repos.Exposures.GetByDate(portfolio.ID, latest)
	if err != nil {
		return nil, err
	}
	metric, err := h.repos.Metrics.Latest(portfolio.ID)
	if err != nil {
		return nil, err
	}
	breaches, err := h.repos.Breaches.GetByPortfolioID(portfolio.ID)
	if err != nil {
		return nil, err
	}
	stressRuns, err := h.repos.StressRuns.GetByPortfolioID(portfolio.ID)
	if err != nil {
		return nil, err
	}

	return &advisor.RiskContext{
		PortfolioName: portfolio.Name,
		BaseCurrency:  portfolio.BaseCurrency,
		AsOf:          latest,
		Exposures:     exposures,
		Metric:        metric,
		Breaches:      breaches,
		StressResults: stressRuns,
	}, nil
}

// AdvisorUsage returns the user's advisor token usage
func (h *Handler) AdvisorUsage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.respond(w, http.StatusOK, h.services.Advisor.GetUsageStats(user.ID.String()))
}
