// Package advisor answers natural-language questions about a portfolio's
// risk profile. It is strictly retrieval-based: the only context it ever
// sees is derived engine output (exposures, risk metrics, breaches, stress
// results) plus the provenance those records carry. Raw transactions never
// reach it, and it never triggers a recompute.
package advisor

import (
	"time"
)

// Model represents available Claude models for routing
type Model string

const (
	// ModelHaiku is fast and cheap for lookups and definitions
	ModelHaiku Model = "claude-3-haiku-20240307"
	// ModelSonnet is the default for risk analysis answers
	ModelSonnet Model = "claude-sonnet-4-20250514"
)

// TokenCost represents cost per million tokens
type TokenCost struct {
	Input  float64
	Output float64
}

// ModelCosts defines pricing for each model (per million tokens)
var ModelCosts = map[Model]TokenCost{
	ModelHaiku:  {Input: 0.25, Output: 1.25},
	ModelSonnet: {Input: 3.00, Output: 15.00},
}

// Config holds advisor configuration
type Config struct {
	// API configuration
	APIKey     string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration

	// Model routing
	DefaultModel Model
	SimpleModel  Model
	MaxTokens    int
	Temperature  float64

	// Cost management
	DailyTokenBudget int
	CacheEnabled     bool
	CacheTTL         time.Duration
	CacheSimilarity  float64

	// Compliance
	EnableAuditLog    bool
	EnableDisclaimers bool
}

// DefaultConfig returns production defaults
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.anthropic.com/v1",
		MaxRetries: 3,
		Timeout:    30 * time.Second,

		DefaultModel: ModelSonnet,
		SimpleModel:  ModelHaiku,
		MaxTokens:    2048,
		Temperature:  0.1,

		DailyTokenBudget: 500000,
		CacheEnabled:     true,
		CacheTTL:         1 * time.Hour,
		CacheSimilarity:  0.90,

		EnableAuditLog:    true,
		EnableDisclaimers: true,
	}
}

// QueryIntent classifies the type of user query
type QueryIntent string

const (
	IntentDefinition  QueryIntent = "definition" // concept explanations
	IntentExposure    QueryIntent = "exposure"   // allocation breakdowns
	IntentRisk        QueryIntent = "risk"       // volatility, beta, VaR, drawdown
	IntentDrift       QueryIntent = "drift"      // allocation changes over time
	IntentStress      QueryIntent = "stress"     // scenario impact
	IntentBreach      QueryIntent = "breach"     // limit violations
	IntentBenchmark   QueryIntent = "benchmark"  // comparison to index
	IntentUnsupported QueryIntent = "unsupported"
)

// IntentModelRouting maps intents to models. Lookups against a single
// record family go to the cheap model; cross-record analysis goes to the
// default one.
var IntentModelRouting = map[QueryIntent]Model{
	IntentDefinition:  ModelHaiku,
	IntentExposure:    ModelHaiku,
	IntentRisk:        ModelSonnet,
	IntentDrift:       ModelSonnet,
	IntentStress:      ModelSonnet,
	IntentBreach:      ModelSonnet,
	IntentBenchmark:   ModelSonnet,
	IntentUnsupported: ModelHaiku,
}
