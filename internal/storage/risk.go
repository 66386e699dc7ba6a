package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// ExposureRepository stores derived exposure snapshots
type ExposureRepository struct {
	db *DB
}

// NewExposureRepository creates a new exposure repository
func NewExposureRepository(db *DB) *ExposureRepository {
	return &ExposureRepository{db: db}
}

// ReplaceSnapshot atomically swaps one portfolio/dimension/date exposure set
func (r *ExposureRepository) ReplaceSnapshot(portfolioID uuid.UUID, dimension models.ExposureDimension, snapshotDate time.Time, exposures []models.Exposure) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"DELETE FROM exposures WHERE portfolio_id = ? AND dimension = ? AND snapshot_date = ?",
		portfolioID.String(), string(dimension), snapshotDate,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO exposures (id, portfolio_id, dimension, key, value, snapshot_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range exposures {
		_, err := stmt.Exec(
			e.ID.String(),
			e.PortfolioID.String(),
			string(e.Dimension),
			e.Key,
			e.Value.String(),
			e.SnapshotDate,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSnapshot retrieves one portfolio/dimension/date exposure set
func (r *ExposureRepository) GetSnapshot(portfolioID uuid.UUID, dimension models.ExposureDimension, snapshotDate time.Time) ([]models.Exposure, error) {
	query := `
		SELECT id, portfolio_id, dimension, key, value, snapshot_date
		FROM exposures WHERE portfolio_id = ? AND dimension = ? AND snapshot_date = ?
		ORDER BY key
	`
	return r.queryExposures(query, portfolioID.String(), string(dimension), snapshotDate)
}

// GetByDate retrieves all dimensions for one portfolio and date
func (r *ExposureRepository) GetByDate(portfolioID uuid.UUID, snapshotDate time.Time) ([]models.Exposure, error) {
	query := `
		SELECT id, portfolio_id, dimension, key, value, snapshot_date
		FROM exposures WHERE portfolio_id = ? AND snapshot_date = ?
		ORDER BY dimension, key
	`
	return r.queryExposures(query, portfolioID.String(), snapshotDate)
}

// SnapshotDates lists the distinct snapshot dates recorded for one
// portfolio and dimension, most recent first
func (r *ExposureRepository) SnapshotDates(portfolioID uuid.UUID, dimension models.ExposureDimension) ([]time.Time, error) {
	query := `
		SELECT DISTINCT snapshot_date FROM exposures
		WHERE portfolio_id = ? AND dimension = ? ORDER BY snapshot_date DESC
	`
	rows, err := r.db.Query(query, portfolioID.String(), string(dimension))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}

	return dates, rows.Err()
}

func (r *ExposureRepository) queryExposures(query string, args ...any) ([]models.Exposure, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exposures []models.Exposure
	for rows.Next() {
		var e models.Exposure
		var id, portfolioID, dimension, value string

		err := rows.Scan(&id, &portfolioID, &dimension, &e.Key, &value, &e.SnapshotDate)
		if err != nil {
			return nil, err
		}

		e.ID, _ = uuid.Parse(id)
		e.PortfolioID, _ = uuid.Parse(portfolioID)
		e.Dimension = models.ExposureDimension(dimension)
		e.Value, _ = decimal.NewFromString(value)

		exposures = append(exposures, e)
	}

	return exposures, rows.Err()
}

// RiskMetricRepository stores derived risk metric snapshots
type RiskMetricRepository struct {
	db *DB
}

// NewRiskMetricRepository creates a new risk metric repository
func NewRiskMetricRepository(db *DB) *RiskMetricRepository {
	return &RiskMetricRepository{db: db}
}

// Upsert writes a metric snapshot, replacing any prior row for the same
// portfolio and date
func (r *RiskMetricRepository) Upsert(m *models.RiskMetric) error {
	sources, _ := json.Marshal(m.Sources)

	var beta any
	if m.Beta.Valid {
		beta = m.Beta.Decimal.String()
	}

	query := `
		INSERT INTO risk_metrics (id, portfolio_id, volatility, beta, max_drawdown, var_95, window_days, snapshot_date, sources)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id, snapshot_date) DO UPDATE SET
			volatility = excluded.volatility,
			beta = excluded.beta,
			max_drawdown = excluded.max_drawdown,
			var_95 = excluded.var_95,
			window_days = excluded.window_days,
			sources = excluded.sources
	`
	_, err := r.db.Exec(query,
		m.ID.String(),
		m.PortfolioID.String(),
		m.Volatility.String(),
		beta,
		m.MaxDrawdown.String(),
		m.VaR95.String(),
		m.WindowDays,
		m.SnapshotDate,
		string(sources),
	)
	return err
}

// Latest retrieves the most recent metric snapshot, nil when none exists
func (r *RiskMetricRepository) Latest(portfolioID uuid.UUID) (*models.RiskMetric, error) {
	query := `
		SELECT id, portfolio_id, volatility, beta, max_drawdown, var_95, window_days, snapshot_date, sources
		FROM risk_metrics WHERE portfolio_id = ?
		ORDER BY snapshot_date DESC LIMIT 1
	`
	return r.scanMetric(r.db.QueryRow(query, portfolioID.String()))
}

// GetByDate retrieves the metric snapshot for one date, nil when none
func (r *RiskMetricRepository) GetByDate(portfolioID uuid.UUID, snapshotDate time.Time) (*models.RiskMetric, error) {
	query := `
		SELECT id, portfolio_id, volatility, beta, max_drawdown, var_95, window_days, snapshot_date, sources
		FROM risk_metrics WHERE portfolio_id = ? AND snapshot_date = ?
	`
	return r.scanMetric(r.db.QueryRow(query, portfolioID.String(), snapshotDate))
}

func (r *RiskMetricRepository) scanMetric(row *sql.Row) (*models.RiskMetric, error) {
	var m models.RiskMetric
	var id, portfolioID, volatility, maxDrawdown, var95 string
	var beta, sources sql.NullString

	err := row.Scan(&id, &portfolioID, &volatility, &beta, &maxDrawdown, &var95, &m.WindowDays, &m.SnapshotDate, &sources)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.ID, _ = uuid.Parse(id)
	m.PortfolioID, _ = uuid.Parse(portfolioID)
	m.Volatility, _ = decimal.NewFromString(volatility)
	m.MaxDrawdown, _ = decimal.NewFromString(maxDrawdown)
	m.VaR95, _ = decimal.NewFromString(var95)
	if beta.Valid {
		d, err := decimal.NewFromString(beta.String)
		if err == nil {
			m.Beta = decimal.NullDecimal{Valid: true, Decimal: d}
		}
	}
	if sources.Valid && sources.String != "" {
		json.Unmarshal([]byte(sources.String), &m.Sources)
	}

	return &m, nil
}

// RiskLimitRepository stores user-authored risk limits
type RiskLimitRepository struct {
	db *DB
}

// NewRiskLimitRepository creates a new risk limit repository
func NewRiskLimitRepository(db *DB) *RiskLimitRepository {
	return &RiskLimitRepository{db: db}
}

// Create inserts a new limit
func (r *RiskLimitRepository) Create(l *models.RiskLimit) error {
	query := `
		INSERT INTO risk_limits (id, portfolio_id, type, key, threshold, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		l.ID.String(),
		l.PortfolioID.String(),
		string(l.Type),
		l.Key,
		l.Threshold.String(),
		l.CreatedAt,
	)
	return err
}

// GetByPortfolioID retrieves all limits for a portfolio
func (r *RiskLimitRepository) GetByPortfolioID(portfolioID uuid.UUID) ([]models.RiskLimit, error) {
	query := `
		SELECT id, portfolio_id, type, key, threshold, created_at
		FROM risk_limits WHERE portfolio_id = ? ORDER BY created_at
	`
	rows, err := r.db.Query(query, portfolioID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var limits []models.RiskLimit
	for rows.Next() {
		var l models.RiskLimit
		var id, portfolio, limitType, threshold string
		var key sql.NullString

		err := rows.Scan(&id, &portfolio, &limitType, &key, &threshold, &l.CreatedAt)
		if err != nil {
			return nil, err
		}

		l.ID, _ = uuid.Parse(id)
		l.PortfolioID, _ = uuid.Parse(portfolio)
		l.Type = models.LimitType(limitType)
		l.Threshold, _ = decimal.NewFromString(threshold)
		if key.Valid {
			l.Key = key.String
		}

		limits = append(limits, l)
	}

	return limits, rows.Err()
}

// Delete removes a limit
func (r *RiskLimitRepository) Delete(id uuid.UUID) error {
	_, err := r.db.Exec("DELETE FROM risk_limits WHERE id = ?", id.String())
	return err
}

// RiskBreachRepository stores the append-only breach audit trail
type RiskBreachRepository struct {
	db *DB
}

// NewRiskBreachRepository creates a new risk breach repository
func NewRiskBreachRepository(db *DB) *RiskBreachRepository {
	return &RiskBreachRepository{db: db}
}

// CreateBatch appends breaches. The (limit_id, breach_date) unique guard
// makes re-inserting the same day's breach a no-op rather than an error.
func (r *RiskBreachRepository) CreateBatch(breaches []models.RiskBreach) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO risk_breaches (id, limit_id, portfolio_id, actual_value, threshold, severity, breach_date, sources)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range breaches {
		sources, _ := json.Marshal(b.Sources)
		_, err := stmt.Exec(
			b.ID.String(),
			b.LimitID.String(),
			b.PortfolioID.String(),
			b.ActualValue.String(),
			b.Threshold.String(),
			string(b.Severity),
			b.BreachDate,
			string(sources),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByPortfolioID retrieves breaches for a portfolio, newest first
func (r *RiskBreachRepository) GetByPortfolioID(portfolioID uuid.UUID) ([]models.RiskBreach, error) {
	query := `
		SELECT id, limit_id, portfolio_id, actual_value, threshold, severity, breach_date, sources
		FROM risk_breaches WHERE portfolio_id = ? ORDER BY breach_date DESC
	`
	rows, err := r.db.Query(query, portfolioID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breaches []models.RiskBreach
	for rows.Next() {
		var b models.RiskBreach
		var id, limitID, portfolio, actual, threshold, severity string
		var sources sql.NullString

		err := rows.Scan(&id, &limitID, &portfolio, &actual, &threshold, &severity, &b.BreachDate, &sources)
		if err != nil {
			return nil, err
		}

		b.ID, _ = uuid.Parse(id)
		b.LimitID, _ = uuid.Parse(limitID)
		b.PortfolioID, _ = uuid.Parse(portfolio)
		b.ActualValue, _ = decimal.NewFromString(actual)
		b.Threshold, _ = decimal.NewFromString(threshold)
		b.Severity = models.Severity(severity)
		if sources.Valid && sources.String != "" {
			json.Unmarshal([]byte(sources.String), &b.Sources)
		}

		breaches = append(breaches, b)
	}

	return breaches, rows.Err()
}

// PriorBreachKeys returns the idempotence keys of breaches already on
// file for one portfolio and evaluation day
func (r *RiskBreachRepository) PriorBreachKeys(portfolioID uuid.UUID, date time.Time) (map[string]bool, error) {
	query := `
		SELECT limit_id, breach_date FROM risk_breaches
		WHERE portfolio_id = ? AND breach_date = ?
	`
	rows, err := r.db.Query(query, portfolioID.String(), date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var limitID string
		var breachDate time.Time
		if err := rows.Scan(&limitID, &breachDate); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(limitID)
		if err != nil {
			continue
		}
		keys[models.BreachKeyFor(id, breachDate)] = true
	}

	return keys, rows.Err()
}
