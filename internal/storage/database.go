// Package storage provides database access and repositories
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("sqlite3", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &DB{db}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate() error {
	migrations := []string{
		createUsersTable,
		createSessionsTable,
		createPortfoliosTable,
		createAssetsTable,
		createTransactionsTable,
		createHoldingsTable,
		createExposuresTable,
		createRiskMetricsTable,
		createRiskLimitsTable,
		createRiskBreachesTable,
		createStressScenariosTable,
		createStressResultsTable,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	name TEXT NOT NULL,
	mfa_enabled INTEGER DEFAULT 0,
	mfa_secret TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	token TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
`

const createPortfoliosTable = `
CREATE TABLE IF NOT EXISTS portfolios (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	base_currency TEXT NOT NULL DEFAULT 'INR',
	total_value TEXT DEFAULT '0',
	last_updated DATETIME DEFAULT CURRENT_TIMESTAMP,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_portfolios_user_id ON portfolios(user_id);
`

const createAssetsTable = `
CREATE TABLE IF NOT EXISTS assets (
	symbol TEXT PRIMARY KEY,
	id TEXT NOT NULL,
	name TEXT NOT NULL,
	exchange TEXT,
	isin TEXT,
	asset_class TEXT NOT NULL DEFAULT 'equity',
	sector TEXT,
	market_cap TEXT DEFAULT 'unknown',
	currency TEXT NOT NULL DEFAULT 'INR',
	geography TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('BUY', 'SELL')),
	trade_date DATETIME NOT NULL,
	quantity TEXT NOT NULL,
	price TEXT NOT NULL,
	currency TEXT NOT NULL DEFAULT 'INR',
	order_id TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_transactions_portfolio_id ON transactions(portfolio_id);
CREATE INDEX IF NOT EXISTS idx_transactions_symbol ON transactions(symbol);
CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_order_id
	ON transactions(portfolio_id, order_id) WHERE order_id IS NOT NULL AND order_id != '';
`

const createHoldingsTable = `
CREATE TABLE IF NOT EXISTS holdings (
	id TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	quantity TEXT NOT NULL,
	avg_cost TEXT DEFAULT '0',
	market_value TEXT DEFAULT '0',
	snapshot_date DATETIME NOT NULL,
	FOREIGN KEY (portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE,
	UNIQUE (portfolio_id, symbol, snapshot_date)
);

CREATE INDEX IF NOT EXISTS idx_holdings_portfolio_date ON holdings(portfolio_id, snapshot_date);
`

const createExposuresTable = `
CREATE TABLE IF NOT EXISTS exposures (
	id TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	dimension TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	snapshot_date DATETIME NOT NULL,
	FOREIGN KEY (portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE,
	UNIQUE (portfolio_id, dimension, key, snapshot_date)
);

CREATE INDEX IF NOT EXISTS idx_exposures_portfolio_date ON exposures(portfolio_id, snapshot_date);
`

const createRiskMetricsTable = `
CREATE TABLE IF NOT EXISTS risk_metrics (
	id TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	volatility TEXT NOT NULL,
	beta TEXT,
	max_drawdown TEXT NOT NULL,
	var_95 TEXT NOT NULL,
	window_days INTEGER NOT NULL,
	snapshot_date DATETIME NOT NULL,
	sources TEXT,
	FOREIGN KEY (portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE,
	UNIQUE (portfolio_id, snapshot_date)
);
`

const createRiskLimitsTable = `
CREATE TABLE IF NOT EXISTS risk_limits (
	id TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	type TEXT NOT NULL,
	key TEXT,
	threshold TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_risk_limits_portfolio_id ON risk_limits(portfolio_id);
`

const createRiskBreachesTable = `
CREATE TABLE IF NOT EXISTS risk_breaches (
	id TEXT PRIMARY KEY,
	limit_id TEXT NOT NULL,
	portfolio_id TEXT NOT NULL,
	actual_value TEXT NOT NULL,
	threshold TEXT NOT NULL,
	severity TEXT NOT NULL,
	breach_date DATETIME NOT NULL,
	sources TEXT,
	FOREIGN KEY (limit_id) REFERENCES risk_limits(id) ON DELETE CASCADE,
	UNIQUE (limit_id, breach_date)
);

CREATE INDEX IF NOT EXISTS idx_risk_breaches_portfolio_id ON risk_breaches(portfolio_id);
`

const createStressScenariosTable = `
CREATE TABLE IF NOT EXISTS stress_scenarios (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	scenario_type TEXT NOT NULL,
	shock_value TEXT NOT NULL,
	target_key TEXT,
	description TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const createStressResultsTable = `
CREATE TABLE IF NOT EXISTS stress_results (
	id TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	scenario_id TEXT NOT NULL,
	scenario_name TEXT NOT NULL,
	estimated_loss TEXT NOT NULL,
	impact_percentage TEXT NOT NULL,
	impacts TEXT,
	snapshot_date DATETIME NOT NULL,
	sources TEXT,
	FOREIGN KEY (portfolio_id) REFERENCES portfolios(id) ON DELETE CASCADE,
	FOREIGN KEY (scenario_id) REFERENCES stress_scenarios(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_stress_results_portfolio_id ON stress_results(portfolio_id);
`
