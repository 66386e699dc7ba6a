package handlers

import (
	"net/http"
	"strings"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/middleware"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/services/importer"
)

// ListPortfolios returns the user's portfolios
func (h *Handler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	portfolios, err := h.repos.Portfolios.GetByUserID(user.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list portfolios")
		h.respondError(w, http.StatusInternalServerError, "failed to list portfolios")
		return
	}

	h.respond(w, http.StatusOK, portfolios)
}

type createPortfolioRequest struct {
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency,omitempty"`
}

// CreatePortfolio creates a portfolio for the user
func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createPortfolioRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	portfolio := models.NewPortfolio(user.ID, req.Name)
	if req.BaseCurrency != "" {
		portfolio.BaseCurrency = strings.ToUpper(req.BaseCurrency)
	} else {
		portfolio.BaseCurrency = h.cfg.BaseCurrency
	}

	if err := h.repos.Portfolios.Create(portfolio); err != nil {
		h.log.Error().Err(err).Msg("failed to create portfolio")
		h.respondError(w, http.StatusInternalServerError, "failed to create portfolio")
		return
	}

	h.respond(w, http.StatusCreated, portfolio)
}

// GetPortfolio returns one portfolio with its latest holdings
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}
	h.respond(w, http.StatusOK, portfolio)
}

// DeletePortfolio removes a portfolio and its derived data
func (h *Handler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	if err := h.repos.Portfolios.Delete(portfolio.ID); err != nil {
		h.log.Error().Err(err).Msg("failed to delete portfolio")
		h.respondError(w, http.StatusInternalServerError, "failed to delete portfolio")
		return
	}
	h.services.Advisor.InvalidateCache(portfolio.ID.String())

	h.respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type importResponse struct {
	Source   string              `json:"source"`
	Parsed   int                 `json:"parsed"`
	Imported int                 `json:"imported"`
	Skipped  []importer.RowError `json:"skipped,omitempty"`
}

// ImportTradebook ingests a broker CSV into the portfolio's ledger.
// Rows already imported (same broker order id) are silently skipped, so
// re-uploading an overlapping export is safe.
func (h *Handler) ImportTradebook(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		h.respondError(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	result, err := h.services.Importer.ParseCSV(file, portfolio.ID)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// Register every traded symbol in the reference table before the
	// ledger rows land
	seen := make(map[string]bool)
	for _, tx := range result.Transactions {
		if seen[tx.Symbol] {
			continue
		}
		seen[tx.Symbol] = true
		if _, err := h.services.Refdata.EnsureAsset(tx.Symbol); err != nil {
			h.log.Error().Err(err).Str("symbol", tx.Symbol).Msg("failed to register asset")
			h.respondError(w, http.StatusInternalServerError, "failed to register assets")
			return
		}
	}

	inserted, err := h.repos.Transactions.CreateBatch(result.Transactions)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to store transactions")
		h.respondError(w, http.StatusInternalServerError, "failed to store transactions")
		return
	}
	h.services.Advisor.InvalidateCache(portfolio.ID.String())

	h.log.Info().
		Str("portfolio_id", portfolio.ID.String()).
		Str("source", result.Source).
		Int("parsed", len(result.Transactions)).
		Int("imported", inserted).
		Int("skipped", len(result.Skipped)).
		Msg("tradebook imported")

	h.respond(w, http.StatusOK, importResponse{
		Source:   result.Source,
		Parsed:   len(result.Transactions),
		Imported: inserted,
		Skipped:  result.Skipped,
	})
}

// ListTransactions returns the portfolio's ledger, oldest first
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	transactions, err := h.repos.Transactions.GetByPortfolioID(portfolio.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list transactions")
		h.respondError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	h.respond(w, http.StatusOK, transactions)
}

// GetHoldings returns the holdings snapshot for a date (default: latest)
func (h *Handler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	portfolio := h.ownedPortfolio(w, r)
	if portfolio == nil {
		return
	}

	date, err := queryDate(r, "date")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.URL.Query().Get("date") == "" {
		latest, err := h.repos.Holdings.LatestSnapshotDate(portfolio.ID)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to resolve snapshot date")
			h.respondError(w, http.StatusInternalServerError, "failed to resolve snapshot date")
			return
		}
		if latest.IsZero() {
			h.respond(w, http.StatusOK, []models.Holding{})
			return
		}
		date = latest
	}

	holdings, err := h.repos.Holdings.GetSnapshot(portfolio.ID, date)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load holdings")
		h.respondError(w, http.StatusInternalServerError, "failed to load holdings")
		return
	}

	h.respond(w, http.StatusOK, holdings)
}

// ListAssets returns the reference table of known assets
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.services.Refdata.ReferenceTable()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list assets")
		h.respondError(w, http.StatusInternalServerError, "failed to list assets")
		return
	}
	h.respond(w, http.StatusOK, assets)
}
