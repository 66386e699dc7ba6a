package storage

import (
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// ScenarioRepository stores configured stress scenarios
type ScenarioRepository struct {
	db *DB
}

// NewScenarioRepository creates a new scenario repository
func NewScenarioRepository(db *DB) *ScenarioRepository {
	return &ScenarioRepository{db: db}
}

// Create inserts a new scenario
func (r *ScenarioRepository) Create(s *models.StressScenario) error {
	query := `
		INSERT INTO stress_scenarios (id, name, scenario_type, shock_value, target_key, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		s.ID.String(),
		s.Name,
		string(s.Type),
		s.ShockValue.String(),
		s.TargetKey,
		s.Description,
		s.CreatedAt,
	)
	return err
}

// GetByID retrieves one scenario, nil when unknown
func (r *ScenarioRepository) GetByID(id uuid.UUID) (*models.StressScenario, error) {
	query := `
		SELECT id, name, scenario_type, shock_value, target_key, description, created_at
		FROM stress_scenarios WHERE id = ?
	`
	s, err := scanScenario(r.db.QueryRow(query, id.String()).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// All retrieves every configured scenario
func (r *ScenarioRepository) All() ([]models.StressScenario, error) {
	query := `
		SELECT id, name, scenario_type, shock_value, target_key, description, created_at
		FROM stress_scenarios ORDER BY created_at
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []models.StressScenario
	for rows.Next() {
		s, err := scanScenario(rows.Scan)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, *s)
	}

	return scenarios, rows.Err()
}

// Delete removes a scenario
func (r *ScenarioRepository) Delete(id uuid.UUID) error {
	_, err := r.db.Exec("DELETE FROM stress_scenarios WHERE id = ?", id.String())
	return err
}

func scanScenario(scan func(...any) error) (*models.StressScenario, error) {
	var s models.StressScenario
	var id, scenarioType, shockValue string
	var targetKey, description sql.NullString

	err := scan(&id, &s.Name, &scenarioType, &shockValue, &targetKey, &description, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	s.ID, _ = uuid.Parse(id)
	s.Type = models.ScenarioType(scenarioType)
	s.ShockValue, _ = decimal.NewFromString(shockValue)
	if targetKey.Valid {
		s.TargetKey = targetKey.String
	}
	if description.Valid {
		s.Description = description.String
	}

	return &s, nil
}

// StressResultRepository stores stress run reports
type StressResultRepository struct {
	db *DB
}

// NewStressResultRepository creates a new stress result repository
func NewStressResultRepository(db *DB) *StressResultRepository {
	return &StressResultRepository{db: db}
}

// Create inserts a stress result with its per-asset breakdown
func (r *StressResultRepository) Create(result *models.StressResult) error {
	impacts, _ := json.Marshal(result.Impacts)
	sources, _ := json.Marshal(result.Sources)

	query := `
		INSERT OR REPLACE INTO stress_results (id, portfolio_id, scenario_id, scenario_name, estimated_loss, impact_percentage, impacts, snapshot_date, sources)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		result.ID.String(),
		result.PortfolioID.String(),
		result.ScenarioID.String(),
		result.ScenarioName,
		result.EstimatedLoss.String(),
		result.ImpactPercentage.String(),
		string(impacts),
		result.SnapshotDate,
		string(sources),
	)
	return err
}

// GetByPortfolioID retrieves stress results for a portfolio, newest first
func (r *StressResultRepository) GetByPortfolioID(portfolioID uuid.UUID) ([]models.StressResult, error) {
	query := `
		SELECT id, portfolio_id, scenario_id, scenario_name, estimated_loss, impact_percentage, impacts, snapshot_date, sources
		FROM stress_results WHERE portfolio_id = ? ORDER BY snapshot_date DESC
	`
	rows, err := r.db.Query(query, portfolioID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.StressResult
	for rows.Next() {
		var res models.StressResult
		var id, portfolio, scenarioID, loss, impactPct string
		var impacts, sources sql.NullString

		err := rows.Scan(&id, &portfolio, &scenarioID, &res.ScenarioName, &loss, &impactPct, &impacts, &res.SnapshotDate, &sources)
		if err != nil {
			return nil, err
		}

		res.ID, _ = uuid.Parse(id)
		res.PortfolioID, _ = uuid.Parse(portfolio)
		res.ScenarioID, _ = uuid.Parse(scenarioID)
		res.EstimatedLoss, _ = decimal.NewFromString(loss)
		res.ImpactPercentage, _ = decimal.NewFromString(impactPct)
		if impacts.Valid && impacts.String != "" {
			json.Unmarshal([]byte(impacts.String), &res.Impacts)
		}
		if sources.Valid && sources.String != "" {
			json.Unmarshal([]byte(sources.String), &res.Sources)
		}

		results = append(results, res)
	}

	return results, rows.Err()
}
