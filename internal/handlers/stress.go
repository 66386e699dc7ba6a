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

// ListScenarios returns all configured stress scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.repos.Scenarios.All()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list scenarios")
		h.respondError(w, http.StatusInternalServerError, "failed to list scenarios")
		return
	}
	h.respond(w, http.StatusOK, scenarios)
}

type createScenarioRequest struct {
	Name        string          `json:"name"`
	Type        string          `json:"scenario_type"`
	ShockValue  decimal.Decimal `json:"shock_value"`
	TargetKey   string          `json:"target_key,omitempty"`
	Description string          `json:"description,omitempty"`
}

// CreateScenario adds a stress scenario. ShockValue is a fractional
// price move, so -0.20 means a 20% drop.
func (h *Handler) CreateScenario(w http.ResponseWriter, r *http.Request) {
	var req createScenarioRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	scenarioType := models.ScenarioType(req.Type)
	switch scenarioType {
	case models.ScenarioSectorShock:
		if strings.TrimSpace(req.TargetKey) == "" {
			h.respondError(w, http.StatusBadRequest, "sector shocks need a target key")
			return
		}
	case models.ScenarioCurrencyShock, models.ScenarioMarketShock:
		// TargetKey is ignored for these
	default:
		h.respondError(w, http.StatusBadRequest, "unknown scenario type")
		return
	}

	scenario := &models.StressScenario{
		ID:          uuid.New(),
		Name:        req.Name,
		Type:        scenarioType,
		ShockValue:  req.ShockValue,
		TargetKey:   strings.TrimSpace(req.TargetKey),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.repos.Scenarios.Create(scenario); err != nil {
		h.log.Error().Err(err).Msg("failed to create scenario")
		h.respondError(w, http.StatusInternalServerError, "failed to create scenario")
		return
	}

	h.respond(w, http.StatusCreated, scenario)
}

// DeleteScenario removes a stress scenario
func (h *Handler) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scenarioID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid scenario id")
		return
	}

	scenario, err := h.repos.Scenarios.GetByID(id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load scenario")
		return
	}
	if scenario == nil {
		h.respondError(w, http.StatusNotFound, "scenario not found")
		return
	}

	if err := h.repos.Scenarios.Delete(id); err != nil {
		h.log.Error().Err(err).Msg("failed to delete scenario")
		h.respondError(w, http.StatusInternalServerError, "failed to delete scenario")
		return
	}

	h.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// RunStress simulates a scenario against the portfolio's current
// holdings and persists the result
func (h *Handler) RunStress(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	scenarioID, err := uuid.Parse(chi.URLParam(r, "scenarioID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid scenario id")
		return
	}
	scenario, err := h.repos.Scenarios.GetByID(scenarioID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load scenario")
		return
	}
	if scenario == nil {
		h.respondError(w, http.StatusNotFound, "scenario not found")
		return
	}

	date, err := queryDate(r, "date")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Snapshot.Stress(portfolio.ID, *scenario, date)
	if err != nil {
		var unknown *engine.UnknownScenarioError
		if errors.As(err, &unknown) {
			h.respondError(w, http.StatusBadRequest, unknown.Error())
			return
		}
		var gap *engine.DataGapError
		if errors.As(err, &gap) {
			h.respondError(w, http.StatusUnprocessableEntity, gap.Error())
			return
		}
		h.log.Error().Err(err).Msg("stress run failed")
		h.respondError(w, http.StatusInternalServerError, "stress run failed")
		return
	}

	if err := h.repos.StressRuns.Create(result); err != nil {
		h.log.Error().Err(err).Msg("failed to store stress result")
		h.respondError(w, http.StatusInternalServerError, "failed to store stress result")
		return
	}
	h.services.Advisor.InvalidateCache(portfolio.ID.String())

	h.respond(w, http.StatusOK, result)
}

// ListStressResults returns stored stress runs for the portfolio
func (h *Handler) ListStressResults(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	results, err := h.repos.StressRuns.GetByPortfolioID(portfolio.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list stress results")
		h.respondError(w, http.StatusInternalServerError, "failed to list stress results")
		return
	}

	h.respond(w, http.StatusOK, results)
}
