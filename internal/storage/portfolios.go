package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// PortfolioRepository provides portfolio data access
type PortfolioRepository struct {
	db *DB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// Create inserts a new portfolio
func (r *PortfolioRepository) Create(p *models.Portfolio) error {
	query := `
		INSERT INTO portfolios (id, user_id, name, base_currency, total_value, last_updated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		p.ID.String(),
		p.UserID.String(),
		p.Name,
		p.BaseCurrency,
		p.TotalValue.String(),
		p.LastUpdated,
		p.CreatedAt,
	)
	return err
}

// GetByID retrieves a portfolio by ID with its latest holdings snapshot
func (r *PortfolioRepository) GetByID(id uuid.UUID) (*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, base_currency, total_value, last_updated, created_at
		FROM portfolios WHERE id = ?
	`
	p, err := r.scanPortfolio(r.db.QueryRow(query, id.String()))
	if err != nil || p == nil {
		return p, err
	}

	holdings := NewHoldingRepository(r.db)
	latest, err := holdings.LatestSnapshotDate(id)
	if err != nil {
		return nil, err
	}
	if !latest.IsZero() {
		p.Holdings, err = holdings.GetSnapshot(id, latest)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// GetByUserID retrieves all portfolios for a user
func (r *PortfolioRepository) GetByUserID(userID uuid.UUID) ([]*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, base_currency, total_value, last_updated, created_at
		FROM portfolios WHERE user_id = ? ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var portfolios []*models.Portfolio
	for rows.Next() {
		p, err := r.scanPortfolioRow(rows)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, p)
	}

	return portfolios, rows.Err()
}

// All retrieves every portfolio, for batch snapshot runs
func (r *PortfolioRepository) All() ([]*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, base_currency, total_value, last_updated, created_at
		FROM portfolios ORDER BY created_at
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var portfolios []*models.Portfolio
	for rows.Next() {
		p, err := r.scanPortfolioRow(rows)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, p)
	}

	return portfolios, rows.Err()
}

// Update modifies an existing portfolio
func (r *PortfolioRepository) Update(p *models.Portfolio) error {
	p.LastUpdated = time.Now().UTC()
	query := `
		UPDATE portfolios SET name = ?, base_currency = ?, total_value = ?, last_updated = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query,
		p.Name,
		p.BaseCurrency,
		p.TotalValue.String(),
		p.LastUpdated,
		p.ID.String(),
	)
	return err
}

// Delete removes a portfolio and all its derived data
func (r *PortfolioRepository) Delete(id uuid.UUID) error {
	_, err := r.db.Exec("DELETE FROM portfolios WHERE id = ?", id.String())
	return err
}

func (r *PortfolioRepository) scanPortfolio(row *sql.Row) (*models.Portfolio, error) {
	var p models.Portfolio
	var id, userID, totalValue string

	err := row.Scan(&id, &userID, &p.Name, &p.BaseCurrency, &totalValue, &p.LastUpdated, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan portfolio: %w", err)
	}

	p.ID, _ = uuid.Parse(id)
	p.UserID, _ = uuid.Parse(userID)
	p.TotalValue, _ = decimal.NewFromString(totalValue)

	return &p, nil
}

func (r *PortfolioRepository) scanPortfolioRow(rows *sql.Rows) (*models.Portfolio, error) {
	var p models.Portfolio
	var id, userID, totalValue string

	err := rows.Scan(&id, &userID, &p.Name, &p.BaseCurrency, &totalValue, &p.LastUpdated, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.ID, _ = uuid.Parse(id)
	p.UserID, _ = uuid.Parse(userID)
	p.TotalValue, _ = decimal.NewFromString(totalValue)

	return &p, nil
}

// HoldingRepository stores derived holdings snapshots
type HoldingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// ReplaceSnapshot atomically swaps the holdings for one portfolio and
// snapshot date. Snapshots are derived data, so overwriting is safe: the
// same ledger and date reproduce the same rows.
func (r *HoldingRepository) ReplaceSnapshot(portfolioID uuid.UUID, snapshotDate time.Time, holdings []models.Holding) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"DELETE FROM holdings WHERE portfolio_id = ? AND snapshot_date = ?",
		portfolioID.String(), snapshotDate,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO holdings (id, portfolio_id, symbol, quantity, avg_cost, market_value, snapshot_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range holdings {
		_, err := stmt.Exec(
			h.ID.String(),
			h.PortfolioID.String(),
			h.Symbol,
			h.Quantity.String(),
			h.AvgCost.String(),
			h.MarketValue.String(),
			h.SnapshotDate,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSnapshot retrieves the holdings for one portfolio and snapshot date
func (r *HoldingRepository) GetSnapshot(portfolioID uuid.UUID, snapshotDate time.Time) ([]models.Holding, error) {
	query := `
		SELECT id, portfolio_id, symbol, quantity, avg_cost, market_value, snapshot_date
		FROM holdings WHERE portfolio_id = ? AND snapshot_date = ? ORDER BY symbol
	`
	rows, err := r.db.Query(query, portfolioID.String(), snapshotDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		h, err := scanHoldingRow(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}

	return holdings, rows.Err()
}

// LatestSnapshotDate returns the most recent snapshot date for a
// portfolio, zero time when no snapshot exists yet
func (r *HoldingRepository) LatestSnapshotDate(portfolioID uuid.UUID) (time.Time, error) {
	var date sql.NullTime
	err := r.db.QueryRow(
		"SELECT MAX(snapshot_date) FROM holdings WHERE portfolio_id = ?",
		portfolioID.String(),
	).Scan(&date)
	if err != nil {
		return time.Time{}, err
	}
	if !date.Valid {
		return time.Time{}, nil
	}
	return date.Time, nil
}

func scanHoldingRow(rows *sql.Rows) (*models.Holding, error) {
	var h models.Holding
	var id, portfolioID string
	var quantity, avgCost, marketValue string

	err := rows.Scan(&id, &portfolioID, &h.Symbol, &quantity, &avgCost, &marketValue, &h.SnapshotDate)
	if err != nil {
		return nil, err
	}

	h.ID, _ = uuid.Parse(id)
	h.PortfolioID, _ = uuid.Parse(portfolioID)
	h.Quantity, _ = decimal.NewFromString(quantity)
	h.AvgCost, _ = decimal.NewFromString(avgCost)
	h.MarketValue, _ = decimal.NewFromString(marketValue)

	return &h, nil
}
