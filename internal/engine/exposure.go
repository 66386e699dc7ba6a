package engine

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

var hundred = decimal.NewFromInt(100)

// CalculateExposures groups holdings along one dimension and produces
// percentage-of-portfolio weights to two decimals, rounded half-to-even.
// Per-key rounding errors accumulate, so the residual against 100 is
// folded into the largest bucket and the per-dimension sum is exactly
// 100.00. A portfolio with zero total market value yields an empty set:
// that is the valid "no holdings" state, not a fault.
func CalculateExposures(holdings []models.Holding, resolver *Resolver, dim models.ExposureDimension, snapshot time.Time) []models.Exposure {
	total := models.TotalMarketValue(holdings)
	if total.IsZero() || len(holdings) == 0 {
		return []models.Exposure{}
	}

	var portfolioID uuid.UUID
	values := make(map[string]decimal.Decimal)
	for _, h := range holdings {
		portfolioID = h.PortfolioID
		key := resolver.Key(h.Symbol, dim)
		values[key] = values[key].Add(h.MarketValue)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exposures := make([]models.Exposure, 0, len(keys))
	sum := decimal.Zero
	largest := 0
	for i, key := range keys {
		pct := values[key].Div(total).Mul(hundred).RoundBank(2)
		sum = sum.Add(pct)
		if values[key].GreaterThan(values[keys[largest]]) {
			largest = i
		}
		exposures = append(exposures, models.Exposure{
			ID:           exposureID(portfolioID, dim, key, snapshot),
			PortfolioID:  portfolioID,
			Dimension:    dim,
			Key:          key,
			Value:        pct,
			SnapshotDate: snapshot,
		})
	}

	// The rounding residual lands on the largest bucket; ties go to
	// the first key in sort order so the output stays deterministic.
	if residual := hundred.Sub(sum); !residual.IsZero() {
		exposures[largest].Value = exposures[largest].Value.Add(residual)
	}

	return exposures
}

func exposureID(portfolioID uuid.UUID, dim models.ExposureDimension, key string, snapshot time.Time) uuid.UUID {
	return uuid.NewSHA1(portfolioID, []byte(string(dim)+"|"+key+"|"+snapshot.UTC().Format("2006-01-02")))
}
