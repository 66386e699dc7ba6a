package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// AssetRepository stores the asset reference table
type AssetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Upsert inserts an asset or replaces its reference metadata
func (r *AssetRepository) Upsert(a *models.Asset) error {
	query := `
		INSERT INTO assets (symbol, id, name, exchange, isin, asset_class, sector, market_cap, currency, geography, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			exchange = excluded.exchange,
			isin = excluded.isin,
			asset_class = excluded.asset_class,
			sector = excluded.sector,
			market_cap = excluded.market_cap,
			currency = excluded.currency,
			geography = excluded.geography
	`
	_, err := r.db.Exec(query,
		a.Symbol,
		a.ID.String(),
		a.Name,
		a.Exchange,
		a.ISIN,
		string(a.AssetClass),
		a.Sector,
		string(a.MarketCap),
		a.Currency,
		a.Geography,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", a.Symbol, err)
	}
	return nil
}

// GetBySymbol retrieves one asset, nil when unknown
func (r *AssetRepository) GetBySymbol(symbol string) (*models.Asset, error) {
	query := `
		SELECT symbol, id, name, exchange, isin, asset_class, sector, market_cap, currency, geography, created_at
		FROM assets WHERE symbol = ?
	`
	row := r.db.QueryRow(query, symbol)

	a, err := scanAsset(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// All retrieves the full reference table
func (r *AssetRepository) All() ([]models.Asset, error) {
	query := `
		SELECT symbol, id, name, exchange, isin, asset_class, sector, market_cap, currency, geography, created_at
		FROM assets ORDER BY symbol
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows.Scan)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}

	return assets, rows.Err()
}

func scanAsset(scan func(...any) error) (*models.Asset, error) {
	var a models.Asset
	var id, assetClass, marketCap string
	var isin, sector, geography sql.NullString

	err := scan(
		&a.Symbol, &id, &a.Name, &a.Exchange, &isin,
		&assetClass, &sector, &marketCap, &a.Currency, &geography, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ID, _ = uuid.Parse(id)
	a.AssetClass = models.AssetClass(assetClass)
	a.MarketCap = models.MarketCapBucket(marketCap)
	if isin.Valid {
		a.ISIN = isin.String
	}
	if sector.Valid {
		a.Sector = sector.String
	}
	if geography.Valid {
		a.Geography = geography.String
	}

	return &a, nil
}

// TransactionRepository stores the append-only trade ledger
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts one transaction
func (r *TransactionRepository) Create(t *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, portfolio_id, symbol, type, trade_date, quantity, price, currency, order_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		t.ID.String(),
		t.PortfolioID.String(),
		t.Symbol,
		string(t.Type),
		t.Date,
		t.Quantity.String(),
		t.Price.String(),
		t.Currency,
		t.OrderID,
		t.CreatedAt,
	)
	return err
}

// CreateBatch inserts transactions in a single database transaction,
// skipping rows whose broker order id is already on file. Returns the
// number actually inserted.
func (r *TransactionRepository) CreateBatch(transactions []models.Transaction) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO transactions (id, portfolio_id, symbol, type, trade_date, quantity, price, currency, order_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range transactions {
		res, err := stmt.Exec(
			t.ID.String(),
			t.PortfolioID.String(),
			t.Symbol,
			string(t.Type),
			t.Date,
			t.Quantity.String(),
			t.Price.String(),
			t.Currency,
			t.OrderID,
			t.CreatedAt,
		)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetByPortfolioID retrieves the full ledger for a portfolio in trade
// date order
func (r *TransactionRepository) GetByPortfolioID(portfolioID uuid.UUID) ([]models.Transaction, error) {
	return r.getLedger(portfolioID, time.Time{})
}

// GetThroughDate retrieves the ledger up to and including a cutoff date
func (r *TransactionRepository) GetThroughDate(portfolioID uuid.UUID, cutoff time.Time) ([]models.Transaction, error) {
	return r.getLedger(portfolioID, cutoff)
}

func (r *TransactionRepository) getLedger(portfolioID uuid.UUID, cutoff time.Time) ([]models.Transaction, error) {
	query := `
		SELECT id, portfolio_id, symbol, type, trade_date, quantity, price, currency, order_id, created_at
		FROM transactions WHERE portfolio_id = ?
	`
	args := []any{portfolioID.String()}
	if !cutoff.IsZero() {
		query += " AND trade_date <= ?"
		args = append(args, cutoff)
	}
	query += " ORDER BY trade_date, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var id, portfolio, txType, quantity, price string
		var orderID sql.NullString

		err := rows.Scan(&id, &portfolio, &t.Symbol, &txType, &t.Date, &quantity, &price, &t.Currency, &orderID, &t.CreatedAt)
		if err != nil {
			return nil, err
		}

		t.ID, _ = uuid.Parse(id)
		t.PortfolioID, _ = uuid.Parse(portfolio)
		t.Type = models.TransactionType(txType)
		t.Quantity, _ = decimal.NewFromString(quantity)
		t.Price, _ = decimal.NewFromString(price)
		if orderID.Valid {
			t.OrderID = orderID.String
		}

		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}
