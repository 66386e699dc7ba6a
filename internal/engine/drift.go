package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// TrackDrift compares two exposure snapshots of the same dimension,
// dated t0 < t1, and classifies every key's delta. Keys absent on one
// side are measured against an implicit zero baseline and classified
// new_position or exited. For keys present at both dates the class
// separates flow effects (quantity changed in the window) from price
// effects (quantity stable): a weight that moved only because other
// keys repriced still counts as price-driven. Classification is
// exhaustive and mutually exclusive: every key gets exactly one class.
func TrackDrift(t0, t1 []models.Exposure, h0, h1 []models.Holding, resolver *Resolver) ([]models.DriftRecord, error) {
	if len(t0) == 0 && len(t1) == 0 {
		return []models.DriftRecord{}, nil
	}

	dim, err := driftDimension(t0, t1)
	if err != nil {
		return nil, err
	}

	from := exposureMap(t0)
	to := exposureMap(t1)

	keys := make([]string, 0, len(from)+len(to))
	seen := make(map[string]bool)
	for k := range from {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range to {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	qty0, px0 := positionsByKey(h0, resolver, dim)
	qty1, px1 := positionsByKey(h1, resolver, dim)

	fromDate, toDate := snapshotDates(t0, t1)
	portfolioID := driftPortfolio(t0, t1)

	records := make([]models.DriftRecord, 0, len(keys))
	for _, key := range keys {
		v0, had0 := from[key]
		v1, had1 := to[key]
		if !had0 {
			v0 = decimal.Zero
		}
		if !had1 {
			v1 = decimal.Zero
		}

		var class models.DriftClass
		switch {
		case !had0:
			class = models.DriftNewPosition
		case !had1:
			class = models.DriftExited
		default:
			class = classifyDrift(key, qty0, qty1, px0, px1)
		}

		records = append(records, models.DriftRecord{
			PortfolioID: portfolioID,
			Dimension:   dim,
			Key:         key,
			FromDate:    fromDate,
			ToDate:      toDate,
			FromValue:   v0,
			ToValue:     v1,
			Delta:       v1.Sub(v0),
			Class:       class,
		})
	}

	return records, nil
}

// classifyDrift attributes a both-sides key to flow, price or mixed by
// comparing per-symbol quantities and implied prices inside the key
func classifyDrift(key string, qty0, qty1 map[string]map[string]decimal.Decimal, px0, px1 map[string]map[string]decimal.Decimal) models.DriftClass {
	q0 := qty0[key]
	q1 := qty1[key]

	qtyChanged := false
	for sym, q := range q1 {
		if prev, ok := q0[sym]; !ok || !prev.Equal(q) {
			qtyChanged = true
			break
		}
	}
	if !qtyChanged {
		for sym := range q0 {
			if _, ok := q1[sym]; !ok {
				qtyChanged = true
				break
			}
		}
	}

	priceChanged := false
	for sym, p := range px1[key] {
		if prev, ok := px0[key][sym]; ok && !prev.Equal(p) {
			priceChanged = true
			break
		}
	}

	switch {
	case qtyChanged && priceChanged:
		return models.DriftMixed
	case qtyChanged:
		return models.DriftFlowDriven
	default:
		return models.DriftPriceDriven
	}
}

func exposureMap(exposures []models.Exposure) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(exposures))
	for _, e := range exposures {
		m[e.Key] = e.Value
	}
	return m
}

// positionsByKey indexes quantity and implied price per symbol under
// each dimension key
func positionsByKey(holdings []models.Holding, resolver *Resolver, dim models.ExposureDimension) (qty, px map[string]map[string]decimal.Decimal) {
	qty = make(map[string]map[string]decimal.Decimal)
	px = make(map[string]map[string]decimal.Decimal)
	for _, h := range holdings {
		key := resolver.Key(h.Symbol, dim)
		if qty[key] == nil {
			qty[key] = make(map[string]decimal.Decimal)
			px[key] = make(map[string]decimal.Decimal)
		}
		qty[key][h.Symbol] = h.Quantity
		if h.Quantity.IsPositive() {
			px[key][h.Symbol] = h.MarketValue.Div(h.Quantity)
		}
	}
	return qty, px
}

func driftDimension(t0, t1 []models.Exposure) (models.ExposureDimension, error) {
	var dim models.ExposureDimension
	for _, e := range append(append([]models.Exposure{}, t0...), t1...) {
		if dim == "" {
			dim = e.Dimension
			continue
		}
		if e.Dimension != dim {
			return "", fmt.Errorf("drift snapshots mix dimensions %s and %s", dim, e.Dimension)
		}
	}
	return dim, nil
}

func snapshotDates(t0, t1 []models.Exposure) (from, to time.Time) {
	if len(t0) > 0 {
		from = t0[0].SnapshotDate
	}
	if len(t1) > 0 {
		to = t1[0].SnapshotDate
	}
	return from, to
}

func driftPortfolio(t0, t1 []models.Exposure) uuid.UUID {
	if len(t0) > 0 {
		return t0[0].PortfolioID
	}
	if len(t1) > 0 {
		return t1[0].PortfolioID
	}
	return uuid.Nil
}
