package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// SeverityBands buckets a breach by how far the actual value sits over
// the threshold, as fractions: with defaults, up to 10% over is info,
// 10–25% is warning, beyond is critical. Bands are configuration, not
// constants baked into the evaluator.
type SeverityBands struct {
	InfoWithin    decimal.Decimal
	WarningWithin decimal.Decimal
}

// DefaultSeverityBands returns the 10% / 25% bands
func DefaultSeverityBands() SeverityBands {
	return SeverityBands{
		InfoWithin:    decimal.NewFromFloat(0.10),
		WarningWithin: decimal.NewFromFloat(0.25),
	}
}

// Classify maps an (actual, threshold) pair to a severity
func (b SeverityBands) Classify(actual, threshold decimal.Decimal) models.Severity {
	if threshold.IsZero() {
		return models.SeverityCritical
	}
	over := actual.Sub(threshold).Div(threshold)
	switch {
	case over.LessThanOrEqual(b.InfoWithin):
		return models.SeverityInfo
	case over.LessThanOrEqual(b.WarningWithin):
		return models.SeverityWarning
	default:
		return models.SeverityCritical
	}
}

// EvaluateLimits checks every limit against current exposures and the
// current risk metric, emitting a breach where actual exceeds threshold.
//
// An exposure limit on a key the portfolio no longer holds evaluates
// against zero exposure; absent data is valid, not an error. Malformed
// configuration (unknown limit type, an exposure key that does not parse
// as "<dimension>:<key>") fails with *UnresolvableLimitError instead.
// Metric limits are skipped when metric is nil, since no actual value
// exists for them yet; the caller surfaces that as insufficient data.
//
// Emission is idempotent per (limit, evaluation day): keys present in
// prior (see models.BreachKeyFor) are not emitted again, so re-running
// the same day with unchanged inputs produces no duplicates.
func EvaluateLimits(limits []models.RiskLimit, exposures []models.Exposure, metric *models.RiskMetric, evalDate time.Time, bands SeverityBands, prior map[string]bool) ([]models.RiskBreach, error) {
	index := make(map[models.ExposureDimension]map[string]decimal.Decimal)
	for _, e := range exposures {
		if index[e.Dimension] == nil {
			index[e.Dimension] = make(map[string]decimal.Decimal)
		}
		index[e.Dimension][e.Key] = e.Value
	}

	breaches := make([]models.RiskBreach, 0)
	for _, limit := range limits {
		actual, ok, err := resolveActual(limit, index, metric)
		if err != nil {
			return nil, err
		}
		if !ok || !actual.GreaterThan(limit.Threshold) {
			continue
		}
		if prior[models.BreachKeyFor(limit.ID, evalDate)] {
			continue
		}

		breaches = append(breaches, models.RiskBreach{
			ID:          breachID(limit.ID, evalDate),
			LimitID:     limit.ID,
			PortfolioID: limit.PortfolioID,
			ActualValue: actual,
			Threshold:   limit.Threshold,
			Severity:    bands.Classify(actual, limit.Threshold),
			BreachDate:  evalDate,
		})
	}

	return breaches, nil
}

// resolveActual finds the current value a limit constrains. The second
// return is false when no value exists to compare (nil metric).
func resolveActual(limit models.RiskLimit, index map[models.ExposureDimension]map[string]decimal.Decimal, metric *models.RiskMetric) (decimal.Decimal, bool, error) {
	switch limit.Type {
	case models.LimitExposure:
		dim, key, err := parseExposureKey(limit)
		if err != nil {
			return decimal.Zero, false, err
		}
		// Key not currently held means zero exposure, never a breach.
		return index[dim][key], true, nil

	case models.LimitVolatility:
		if metric == nil {
			return decimal.Zero, false, nil
		}
		return metric.Volatility, true, nil

	case models.LimitVaR:
		if metric == nil {
			return decimal.Zero, false, nil
		}
		return metric.VaR95.Abs(), true, nil

	case models.LimitDrawdown:
		if metric == nil {
			return decimal.Zero, false, nil
		}
		return metric.MaxDrawdown.Abs(), true, nil

	default:
		return decimal.Zero, false, &UnresolvableLimitError{
			LimitID: limit.ID.String(),
			Reason:  "unknown limit type " + string(limit.Type),
		}
	}
}

func parseExposureKey(limit models.RiskLimit) (models.ExposureDimension, string, error) {
	parts := strings.SplitN(limit.Key, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", &UnresolvableLimitError{
			LimitID: limit.ID.String(),
			Reason:  "exposure key must be \"<dimension>:<key>\", got " + limit.Key,
		}
	}
	dim, ok := models.ParseDimension(parts[0])
	if !ok {
		return "", "", &UnresolvableLimitError{
			LimitID: limit.ID.String(),
			Reason:  "unknown exposure dimension " + parts[0],
		}
	}
	return dim, parts[1], nil
}

func breachID(limitID uuid.UUID, evalDate time.Time) uuid.UUID {
	return uuid.NewSHA1(limitID, []byte("breach|"+evalDate.UTC().Format("2006-01-02")))
}
