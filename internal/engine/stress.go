package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// RunStressTest applies a shock scenario to current holdings and
// produces a downside-only loss estimate with a per-asset breakdown.
//
// Sensitivity is 1.0 for direct matches (sector shock on a
// matching-sector holding, currency shock on a non-base-currency
// holding), the holding's beta for market-wide shocks when one is known,
// and 1.0 otherwise. Unaffected holdings get sensitivity 0. Simulated
// gains never offset losses: estimated loss sums only the decreases, so
// the report stays a stress report rather than a net P&L.
//
// Returns *UnknownScenarioError for unsupported scenario types; a
// silent zero shock would read as safety.
func RunStressTest(holdings []models.Holding, resolver *Resolver, scenario models.StressScenario, betas map[string]decimal.NullDecimal, baseCurrency string, snapshot time.Time) (*models.StressResult, error) {
	switch scenario.Type {
	case models.ScenarioSectorShock, models.ScenarioCurrencyShock, models.ScenarioMarketShock:
	default:
		return nil, &UnknownScenarioError{ScenarioType: string(scenario.Type)}
	}

	var portfolioID uuid.UUID
	totalValue := models.TotalMarketValue(holdings)
	totalLoss := decimal.Zero
	one := decimal.NewFromInt(1)

	impacts := make([]models.StressImpact, 0, len(holdings))
	for _, h := range holdings {
		portfolioID = h.PortfolioID
		sens := sensitivity(h.Symbol, resolver, scenario, betas, baseCurrency)

		simulated := h.MarketValue.Mul(one.Add(scenario.ShockValue.Mul(sens)))
		loss := h.MarketValue.Sub(simulated)
		if loss.IsNegative() {
			loss = decimal.Zero
		} else {
			totalLoss = totalLoss.Add(loss)
		}

		impacts = append(impacts, models.StressImpact{
			Symbol:         h.Symbol,
			MarketValue:    h.MarketValue,
			SimulatedValue: simulated.Round(2),
			Loss:           loss.Round(2),
			Sensitivity:    sens,
		})
	}

	impactPct := decimal.Zero
	if totalValue.IsPositive() {
		impactPct = totalLoss.Div(totalValue).Mul(hundred).RoundBank(2)
	}

	return &models.StressResult{
		ID:               stressID(portfolioID, scenario.ID, snapshot),
		PortfolioID:      portfolioID,
		ScenarioID:       scenario.ID,
		ScenarioName:     scenario.Name,
		EstimatedLoss:    totalLoss.Round(2),
		ImpactPercentage: impactPct,
		Impacts:          impacts,
		SnapshotDate:     snapshot,
	}, nil
}

func sensitivity(symbol string, resolver *Resolver, scenario models.StressScenario, betas map[string]decimal.NullDecimal, baseCurrency string) decimal.Decimal {
	one := decimal.NewFromInt(1)

	switch scenario.Type {
	case models.ScenarioSectorShock:
		if asset, ok := resolver.Lookup(symbol); ok && asset.Sector == scenario.TargetKey {
			return one
		}
		return decimal.Zero

	case models.ScenarioCurrencyShock:
		if asset, ok := resolver.Lookup(symbol); ok && asset.Currency != baseCurrency {
			return one
		}
		return decimal.Zero

	case models.ScenarioMarketShock:
		if beta, ok := betas[symbol]; ok && beta.Valid {
			return beta.Decimal
		}
		return one
	}
	return decimal.Zero
}

func stressID(portfolioID, scenarioID uuid.UUID, snapshot time.Time) uuid.UUID {
	return uuid.NewSHA1(portfolioID, []byte("stress|"+scenarioID.String()+"|"+snapshot.UTC().Format("2006-01-02")))
}
