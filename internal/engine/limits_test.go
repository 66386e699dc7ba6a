package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

func limit(id string, limitType models.LimitType, key string, threshold float64) models.RiskLimit {
	return models.RiskLimit{
		ID:          uuid.MustParse(id),
		PortfolioID: testPortfolioID,
		Type:        limitType,
		Key:         key,
		Threshold:   dec(threshold),
	}
}

func sectorExposure(key string, value float64, date time.Time) models.Exposure {
	return models.Exposure{
		PortfolioID:  testPortfolioID,
		Dimension:    models.DimensionSector,
		Key:          key,
		Value:        dec(value),
		SnapshotDate: date,
	}
}

const limitAID = "11111111-1111-1111-1111-111111111111"

func TestEvaluateLimits_ExposureBreachSeverity(t *testing.T) {
	// 30% actual against a 25% cap is 20% over: inside the warning band.
	limits := []models.RiskLimit{limit(limitAID, models.LimitExposure, "sector:Banking", 25)}
	exposures := []models.Exposure{sectorExposure("Banking", 30, day("2024-03-01"))}

	breaches, err := EvaluateLimits(limits, exposures, nil, day("2024-03-01"), DefaultSeverityBands(), nil)
	require.NoError(t, err)
	require.Len(t, breaches, 1)

	b := breaches[0]
	assert.Equal(t, models.SeverityWarning, b.Severity)
	assert.True(t, b.ActualValue.Equal(dec(30)))
	assert.True(t, b.Threshold.Equal(dec(25)))
	assert.Equal(t, limits[0].ID, b.LimitID)
}

func TestSeverityBands_Classify(t *testing.T) {
	bands := DefaultSeverityBands()

	assert.Equal(t, models.SeverityInfo, bands.Classify(dec(26), dec(25)))      // 4% over
	assert.Equal(t, models.SeverityWarning, bands.Classify(dec(30), dec(25)))   // 20% over
	assert.Equal(t, models.SeverityCritical, bands.Classify(dec(35), dec(25)))  // 40% over
	assert.Equal(t, models.SeverityCritical, bands.Classify(dec(1), dec(0)), "zero threshold")
}

func TestEvaluateLimits_NoBreachAtOrUnderThreshold(t *testing.T) {
	limits := []models.RiskLimit{limit(limitAID, models.LimitExposure, "sector:Banking", 25)}
	exposures := []models.Exposure{sectorExposure("Banking", 25, day("2024-03-01"))}

	breaches, err := EvaluateLimits(limits, exposures, nil, day("2024-03-01"), DefaultSeverityBands(), nil)
	require.NoError(t, err)
	assert.Empty(t, breaches, "at-threshold is not a breach")
}

func TestEvaluateLimits_AbsentKeyIsZeroExposure(t *testing.T) {
	limits := []models.RiskLimit{limit(limitAID, models.LimitExposure, "sector:Pharma", 10)}
	exposures := []models.Exposure{sectorExposure("Banking", 100, day("2024-03-01"))}

	breaches, err := EvaluateLimits(limits, exposures, nil, day("2024-03-01"), DefaultSeverityBands(), nil)
	require.NoError(t, err)
	assert.Empty(t, breaches)
}

func TestEvaluateLimits_MetricLimits(t *testing.T) {
	metric := &models.RiskMetric{
		PortfolioID: testPortfolioID,
		Volatility:  dec(22.5),
		MaxDrawdown: dec(-18),
		VaR95:       dec(-3.2),
	}
	limits := []models.RiskLimit{
		limit("22222222-2222-2222-2222-222222222222", models.LimitVolatility, "", 20),
		limit("33333333-3333-3333-3333-333333333333", models.LimitDrawdown, "", 15),
		limit("44444444-4444-4444-4444-444444444444", models.LimitVaR, "", 5),
	}

	breaches, err := EvaluateLimits(limits, nil, metric, day("2024-03-01"), DefaultSeverityBands(), nil)
	require.NoError(t, err)
	require.Len(t, breaches, 2, "volatility and drawdown breach, VaR does not")

	// Downside metrics are compared by magnitude.
	for _, b := range breaches {
		assert.True(t, b.ActualValue.IsPositive())
	}
}

func TestEvaluateLimits_NilMetricSkipsMetricLimits(t *testing.T) {
	limits := []models.RiskLimit{
		limit("22222222-2222-2222-2222-222222222222", models.LimitVolatility, "", 0.01),
	}

	breaches, err := EvaluateLimits(limits, nil, nil, day("2024-03-01"), DefaultSeverityBands(), nil)
	require.NoError(t, err)
	assert.Empty(t, breaches)
}

func TestEvaluateLimits_IdempotentPerDay(t *testing.T) {
	limits := []models.RiskLimit{limit(limitAID, models.LimitExposure, "sector:Banking", 25)}
	exposures := []models.Exposure{sectorExposure("Banking", 30, day("2024-03-01"))}
	evalDate := day("2024-03-01")

	first, err := EvaluateLimits(limits, exposures, nil, evalDate, DefaultSeverityBands(), nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	prior := map[string]bool{first[0].BreachKey(): true}
	second, err := EvaluateLimits(limits, exposures, nil, evalDate, DefaultSeverityBands(), prior)
	require.NoError(t, err)
	assert.Empty(t, second, "same limit and day must not emit twice")

	// A new evaluation day emits again.
	third, err := EvaluateLimits(limits, exposures, nil, day("2024-03-02"), DefaultSeverityBands(), prior)
	require.NoError(t, err)
	assert.Len(t, third, 1)
}

func TestEvaluateLimits_MalformedExposureKey(t *testing.T) {
	cases := []string{"Banking", "sector:", "region:Banking"}
	for _, key := range cases {
		limits := []models.RiskLimit{limit(limitAID, models.LimitExposure, key, 25)}

		_, err := EvaluateLimits(limits, nil, nil, day("2024-03-01"), DefaultSeverityBands(), nil)

		var unresolvable *UnresolvableLimitError
		require.ErrorAs(t, err, &unresolvable, "key %q", key)
		assert.Equal(t, limitAID, unresolvable.LimitID)
	}
}

func TestEvaluateLimits_UnknownLimitType(t *testing.T) {
	limits := []models.RiskLimit{limit(limitAID, models.LimitType("sharpe"), "", 1)}

	_, err := EvaluateLimits(limits, nil, nil, day("2024-03-01"), DefaultSeverityBands(), nil)

	var unresolvable *UnresolvableLimitError
	assert.ErrorAs(t, err, &unresolvable)
}

func TestEvaluateLimits_DeterministicIDs(t *testing.T) {
	limits := []models.RiskLimit{limit(limitAID, models.LimitExposure, "sector:Banking", 25)}
	exposures := []models.Exposure{sectorExposure("Banking", 30, day("2024-03-01"))}

	first, err := EvaluateLimits(limits, exposures, nil, day("2024-03-01"), DefaultSeverityBands(), nil)
	require.NoError(t, err)
	second, err := EvaluateLimits(limits, exposures, nil, day("2024-03-01"), DefaultSeverityBands(), nil)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}
