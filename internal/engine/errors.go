// Package engine is the exposure and risk computation core: a set of
// pure, deterministic transforms from (transactions, reference data,
// price/return series, configuration) to (holdings, exposures, risk
// metrics, breaches, stress results). The engine performs no I/O and
// holds no mutable state; callers supply every input and own
// persistence, scheduling and failure isolation across portfolios.
package engine

import (
	"fmt"
	"time"
)

// DataGapError reports a missing required price or return observation.
// The engine never substitutes a default; the caller decides whether a
// last-known price is acceptable.
type DataGapError struct {
	Symbol string
	Date   time.Time
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("no price for %s on %s", e.Symbol, e.Date.Format("2006-01-02"))
}

// InsufficientDataError reports that a statistical computation has fewer
// observations than it needs
type InsufficientDataError struct {
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d observations, got %d", e.Need, e.Got)
}

// UnresolvableLimitError reports malformed limit configuration. It is
// never used for absent-but-valid data: a limit on a key the portfolio
// no longer holds simply evaluates against zero exposure.
type UnresolvableLimitError struct {
	LimitID string
	Reason  string
}

func (e *UnresolvableLimitError) Error() string {
	return fmt.Sprintf("limit %s is unresolvable: %s", e.LimitID, e.Reason)
}

// UnknownScenarioError reports an unsupported stress scenario type. The
// engine never silently applies a zero shock.
type UnknownScenarioError struct {
	ScenarioType string
}

func (e *UnknownScenarioError) Error() string {
	return fmt.Sprintf("unknown stress scenario type %q", e.ScenarioType)
}
