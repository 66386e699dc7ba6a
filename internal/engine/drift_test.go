package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

func snapshotExposures(t *testing.T, holdings []models.Holding, dim models.ExposureDimension, date string) []models.Exposure {
	t.Helper()
	exposures := CalculateExposures(holdings, testResolver(), dim, day(date))
	require.NotEmpty(t, exposures)
	return exposures
}

func findDrift(t *testing.T, records []models.DriftRecord, key string) models.DriftRecord {
	t.Helper()
	for _, r := range records {
		if r.Key == key {
			return r
		}
	}
	t.Fatalf("no drift record for key %s", key)
	return models.DriftRecord{}
}

func TestTrackDrift_PriceDriven(t *testing.T) {
	// Quantity stable, the price moved: 10 @ 100 → 10 @ 120.
	h0 := []models.Holding{
		holding("RELIANCE.NS", 10, 100),
		holding("HDFCBANK.NS", 10, 100),
	}
	h1 := []models.Holding{
		holding("RELIANCE.NS", 10, 120),
		holding("HDFCBANK.NS", 10, 100),
	}

	t0 := snapshotExposures(t, h0, models.DimensionSector, "2024-01-31")
	t1 := snapshotExposures(t, h1, models.DimensionSector, "2024-02-29")

	records, err := TrackDrift(t0, t1, h0, h1, testResolver())
	require.NoError(t, err)

	energy := findDrift(t, records, "Energy")
	assert.Equal(t, models.DriftPriceDriven, energy.Class)
	// 50.00 → 54.55
	assert.True(t, energy.FromValue.Equal(dec(50)), "from %s", energy.FromValue)
	assert.True(t, energy.ToValue.Equal(dec(54.55)), "to %s", energy.ToValue)
	assert.True(t, energy.Delta.Equal(dec(4.55)), "delta %s", energy.Delta)

	// The banking weight shrank only because energy repriced; its own
	// quantity and price are unchanged, so it is still price-driven.
	banking := findDrift(t, records, "Banking")
	assert.Equal(t, models.DriftPriceDriven, banking.Class)
}

func TestTrackDrift_FlowDriven(t *testing.T) {
	h0 := []models.Holding{
		holding("RELIANCE.NS", 10, 100),
		holding("HDFCBANK.NS", 10, 100),
	}
	h1 := []models.Holding{
		holding("RELIANCE.NS", 20, 100),
		holding("HDFCBANK.NS", 10, 100),
	}

	t0 := snapshotExposures(t, h0, models.DimensionSector, "2024-01-31")
	t1 := snapshotExposures(t, h1, models.DimensionSector, "2024-02-29")

	records, err := TrackDrift(t0, t1, h0, h1, testResolver())
	require.NoError(t, err)

	assert.Equal(t, models.DriftFlowDriven, findDrift(t, records, "Energy").Class)
}

func TestTrackDrift_Mixed(t *testing.T) {
	h0 := []models.Holding{
		holding("RELIANCE.NS", 10, 100),
		holding("HDFCBANK.NS", 10, 100),
	}
	h1 := []models.Holding{
		holding("RELIANCE.NS", 20, 130),
		holding("HDFCBANK.NS", 10, 100),
	}

	t0 := snapshotExposures(t, h0, models.DimensionSector, "2024-01-31")
	t1 := snapshotExposures(t, h1, models.DimensionSector, "2024-02-29")

	records, err := TrackDrift(t0, t1, h0, h1, testResolver())
	require.NoError(t, err)

	assert.Equal(t, models.DriftMixed, findDrift(t, records, "Energy").Class)
}

func TestTrackDrift_NewAndExited(t *testing.T) {
	h0 := []models.Holding{
		holding("RELIANCE.NS", 10, 100),
	}
	h1 := []models.Holding{
		holding("HDFCBANK.NS", 5, 200),
	}

	t0 := snapshotExposures(t, h0, models.DimensionSector, "2024-01-31")
	t1 := snapshotExposures(t, h1, models.DimensionSector, "2024-02-29")

	records, err := TrackDrift(t0, t1, h0, h1, testResolver())
	require.NoError(t, err)

	banking := findDrift(t, records, "Banking")
	assert.Equal(t, models.DriftNewPosition, banking.Class)
	assert.True(t, banking.FromValue.IsZero())
	assert.True(t, banking.Delta.Equal(dec(100)))

	energy := findDrift(t, records, "Energy")
	assert.Equal(t, models.DriftExited, energy.Class)
	assert.True(t, energy.ToValue.IsZero())
	assert.True(t, energy.Delta.Equal(dec(-100)))
}

func TestTrackDrift_ExhaustiveAndExclusive(t *testing.T) {
	h0 := []models.Holding{
		holding("RELIANCE.NS", 10, 100),
		holding("HDFCBANK.NS", 10, 100),
		holding("AAPL", 2, 500),
	}
	h1 := []models.Holding{
		holding("RELIANCE.NS", 10, 150),
		holding("ICICIBANK.NS", 10, 120),
	}

	t0 := snapshotExposures(t, h0, models.DimensionSector, "2024-01-31")
	t1 := snapshotExposures(t, h1, models.DimensionSector, "2024-02-29")

	records, err := TrackDrift(t0, t1, h0, h1, testResolver())
	require.NoError(t, err)

	keys := make(map[string]int)
	for _, e := range t0 {
		keys[e.Key]++
	}
	for _, e := range t1 {
		keys[e.Key] = 1
	}
	assert.Len(t, records, len(keys), "every key present at either date gets exactly one record")

	valid := map[models.DriftClass]bool{
		models.DriftFlowDriven:  true,
		models.DriftPriceDriven: true,
		models.DriftMixed:       true,
		models.DriftNewPosition: true,
		models.DriftExited:      true,
	}
	seen := make(map[string]bool)
	for _, r := range records {
		assert.False(t, seen[r.Key], "key %s classified twice", r.Key)
		seen[r.Key] = true
		assert.True(t, valid[r.Class], "key %s got class %s", r.Key, r.Class)
	}
}

func TestTrackDrift_MixedDimensionsRejected(t *testing.T) {
	h := []models.Holding{holding("RELIANCE.NS", 10, 100)}
	t0 := snapshotExposures(t, h, models.DimensionSector, "2024-01-31")
	t1 := snapshotExposures(t, h, models.DimensionCurrency, "2024-02-29")

	_, err := TrackDrift(t0, t1, h, h, testResolver())
	assert.Error(t, err)
}
