package advisor

import (
	"strings"
)

// IntentRouter classifies queries and picks a model for each
type IntentRouter struct {
	cfg *Config
}

// NewIntentRouter creates an intent router
func NewIntentRouter(cfg *Config) *IntentRouter {
	return &IntentRouter{cfg: cfg}
}

// ClassifyIntent determines the type of query. More specific record
// families are matched before the generic ones so "why did my sector
// exposure drift" lands on drift, not exposure.
func (r *IntentRouter) ClassifyIntent(query string) QueryIntent {
	query = strings.ToLower(query)

	if r.isBlockedQuery(query) {
		return IntentUnsupported
	}

	if containsAny(query, []string{
		"drift", "changed since", "change since", "shifted", "moved from",
		"compared to last", "over time", "between",
	}) {
		return IntentDrift
	}

	if containsAny(query, []string{
		"stress", "scenario", "shock", "crash", "what if", "simulate",
		"market drop", "sector fall", "rupee", "currency move",
	}) {
		return IntentStress
	}

	if containsAny(query, []string{
		"breach", "limit", "violation", "threshold", "exceeded",
		"alert", "over my",
	}) {
		return IntentBreach
	}

	if containsAny(query, []string{
		"benchmark", "nifty", "index", "versus the market", "vs the market",
		"outperform", "underperform", "tracking",
	}) {
		return IntentBenchmark
	}

	if containsAny(query, []string{
		"risk", "volatility", "volatile", "drawdown", "beta",
		"var", "value at risk", "how safe", "how risky",
	}) {
		return IntentRisk
	}

	if containsAny(query, []string{
		"exposure", "allocation", "concentrat", "weight", "breakdown",
		"sector", "currency", "asset class", "geography", "diversif",
		"biggest position", "largest holding",
	}) {
		return IntentExposure
	}

	if containsAny(query, []string{
		"what is", "what are", "define", "explain", "how does",
		"tell me about", "meaning of",
	}) {
		return IntentDefinition
	}

	// Default: portfolio questions are usually about exposure
	return IntentExposure
}

// isBlockedQuery checks if the query requests content the advisor must
// refuse
func (r *IntentRouter) isBlockedQuery(query string) bool {
	blockedPatterns := []string{
		// Specific recommendations
		"should i buy", "should i sell", "buy or sell",
		"is it a good time to", "when should i",
		"recommend me", "what should i invest in",
		"pick stocks for me", "best stocks to buy",

		// Guaranteed returns
		"guaranteed", "risk-free return", "can't lose",
		"will definitely", "100% certain",

		// Market timing
		"when will the market", "will the stock go up",
		"price target", "where will",

		// Out of scope entirely
		"tax advice", "insider", "non-public",
	}

	for _, pattern := range blockedPatterns {
		if strings.Contains(query, pattern) {
			return true
		}
	}

	return false
}

// SelectModel chooses the model for a query
func (r *IntentRouter) SelectModel(intent QueryIntent, query string) Model {
	model, ok := IntentModelRouting[intent]
	if !ok {
		model = r.cfg.DefaultModel
	}

	// Long or multi-part questions get the stronger model
	if model == r.cfg.SimpleModel && (len(query) > 400 || strings.Count(query, "?") > 1) {
		model = r.cfg.DefaultModel
	}

	return model
}

// EstimateTokens provides a rough token count estimate
func (r *IntentRouter) EstimateTokens(text string) int {
	return len(text) / 4
}

// EstimateCost calculates approximate cost for a query
func (r *IntentRouter) EstimateCost(model Model, inputTokens, outputTokens int) float64 {
	costs, ok := ModelCosts[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*costs.Input +
		float64(outputTokens)/1_000_000*costs.Output
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
