package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// RiskContext is the complete retrieval context for one answer. It holds
// derived records only; there is deliberately no field for transactions,
// holdings, or prices, so callers cannot leak them into a prompt.
type RiskContext struct {
	PortfolioName string
	BaseCurrency  string
	AsOf          time.Time
	Exposures     []models.Exposure
	Metric        *models.RiskMetric
	Breaches      []models.RiskBreach
	StressResults []models.StressResult
	Comparison    *models.BenchmarkComparison
}

// Query is one user question
type Query struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Text        string            `json:"text"`
	PortfolioID string            `json:"portfolio_id"`
	Context     map[string]string `json:"context,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Response is the advisor's answer with cited sources
type Response struct {
	ID           string      `json:"id"`
	QueryID      string      `json:"query_id"`
	Text         string      `json:"text"`
	Sources      []Source    `json:"sources"`
	Disclaimers  []string    `json:"disclaimers,omitempty"`
	Model        Model       `json:"model"`
	Intent       QueryIntent `json:"intent"`
	TokensUsed   TokenUsage  `json:"tokens_used"`
	Cached       bool        `json:"cached"`
	ProcessingMs int64       `json:"processing_ms"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Source cites one derived record or provenance reference behind an
// answer
type Source struct {
	Type      string `json:"type"` // "exposure", "risk_metric", "breach", "stress_result", "benchmark", "provenance"
	Reference string `json:"reference"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Service answers questions from derived risk records
type Service struct {
	cfg        *Config
	httpClient *http.Client
	cache      *QueryCache
	router     *IntentRouter
	auditor    *AuditLogger
	log        zerolog.Logger

	mu          sync.RWMutex
	dailyTokens map[string]int
	lastReset   time.Time
}

// NewService creates an advisor service
func NewService(cfg *Config, logger zerolog.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		cache:       NewQueryCache(cfg.CacheTTL, cfg.CacheSimilarity),
		router:      NewIntentRouter(cfg),
		auditor:     NewAuditLogger(cfg.EnableAuditLog, logger),
		log:         logger.With().Str("service", "advisor").Logger(),
		dailyTokens: make(map[string]int),
		lastReset:   time.Now(),
	}
}

// Ask answers a query against the supplied risk context
func (s *Service) Ask(ctx context.Context, query *Query, rc *RiskContext) (*Response, error) {
	startTime := time.Now()

	if query.ID == "" {
		query.ID = uuid.New().String()
	}
	query.Timestamp = time.Now()

	if err := s.checkRateLimits(query.UserID); err != nil {
		return nil, err
	}

	intent := s.router.ClassifyIntent(query.Text)
	if intent == IntentUnsupported {
		resp := s.blockedResponse(query, startTime)
		s.auditor.Log(query, resp)
		return resp, nil
	}

	if s.cfg.CacheEnabled {
		if cached := s.cache.Get(query.Text, query.PortfolioID); cached != nil {
			cached.Cached = true
			cached.QueryID = query.ID
			cached.ProcessingMs = time.Since(startTime).Milliseconds()
			return cached, nil
		}
	}

	model := s.router.SelectModel(intent, query.Text)
	systemPrompt := s.buildSystemPrompt(rc)
	userPrompt := s.buildUserPrompt(query)

	answer, usage, err := s.callClaude(ctx, model, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("model API error: %w", err)
	}

	s.trackUsage(query.UserID, usage)

	resp := &Response{
		ID:           uuid.New().String(),
		QueryID:      query.ID,
		Text:         answer,
		Sources:      s.citeSources(answer, rc),
		Model:        model,
		Intent:       intent,
		TokensUsed:   usage,
		ProcessingMs: time.Since(startTime).Milliseconds(),
		Timestamp:    time.Now(),
	}
	if s.cfg.EnableDisclaimers {
		resp.Disclaimers = s.disclaimers(intent)
	}

	if s.cfg.CacheEnabled {
		s.cache.Set(query.Text, query.PortfolioID, resp)
	}
	s.auditor.Log(query, resp)

	return resp, nil
}

// buildSystemPrompt renders the risk context into the system prompt. Only
// the derived records appear here; the guardrails forbid the model from
// inventing figures the records do not contain.
func (s *Service) buildSystemPrompt(rc *RiskContext) string {
	var sb strings.Builder

	sb.WriteString(`You are a portfolio risk analyst assistant for retail investors.

## Your Role
- Explain the portfolio's exposures, risk metrics, limit breaches, and stress results
- Answer strictly from the data below; if it does not contain the answer, say so
- Explain financial concepts in plain language

## Critical Rules
1. NEVER provide buy/sell recommendations for individual securities
2. NEVER guarantee returns or predict price movements
3. NEVER provide tax advice
4. Every numerical claim must come from the data below; never estimate or invent figures
5. If the data cannot answer the question, say so clearly

`)

	if rc == nil {
		sb.WriteString("\n## Portfolio Data\nNo computed risk data is available for this portfolio yet.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n## Portfolio: %s (base currency %s, data as of %s)\n",
		rc.PortfolioName, rc.BaseCurrency, rc.AsOf.Format("2006-01-02"))

	if len(rc.Exposures) > 0 {
		sb.WriteString("\n### Exposures (% of portfolio value)\n")
		for _, dim := range models.AllDimensions() {
			wrote := false
			for _, e := range rc.Exposures {
				if e.Dimension != dim {
					continue
				}
				if !wrote {
					fmt.Fprintf(&sb, "By %s:\n", dim)
					wrote = true
				}
				fmt.Fprintf(&sb, "- %s: %s%%\n", e.Key, e.Value.StringFixed(2))
			}
		}
	}

	if m := rc.Metric; m != nil {
		sb.WriteString("\n### Risk Metrics\n")
		fmt.Fprintf(&sb, "- Annualized volatility: %s%%\n", m.Volatility.StringFixed(2))
		if m.Beta.Valid {
			fmt.Fprintf(&sb, "- Beta vs benchmark: %s\n", m.Beta.Decimal.StringFixed(4))
		} else {
			sb.WriteString("- Beta vs benchmark: not available\n")
		}
		fmt.Fprintf(&sb, "- Max drawdown: %s%%\n", m.MaxDrawdown.StringFixed(4))
		fmt.Fprintf(&sb, "- 95%% VaR (daily): %s%%\n", m.VaR95.StringFixed(4))
		fmt.Fprintf(&sb, "- Return observations: %d\n", m.WindowDays)
	}

	if len(rc.Breaches) > 0 {
		sb.WriteString("\n### Active Limit Breaches\n")
		for _, b := range rc.Breaches {
			fmt.Fprintf(&sb, "- [%s] actual %s vs limit %s on %s\n",
				b.Severity, b.ActualValue.StringFixed(2),
				b.Threshold.StringFixed(2), b.BreachDate.Format("2006-01-02"))
		}
	}

	if len(rc.StressResults) > 0 {
		sb.WriteString("\n### Stress Scenario Results\n")
		for _, sr := range rc.StressResults {
			fmt.Fprintf(&sb, "- %s: estimated loss %s %s (%s%% of portfolio)\n",
				sr.ScenarioName, sr.EstimatedLoss.StringFixed(2),
				rc.BaseCurrency, sr.ImpactPercentage.StringFixed(2))
		}
	}

	if c := rc.Comparison; c != nil {
		sb.WriteString("\n### Benchmark Comparison\n")
		fmt.Fprintf(&sb, "- Benchmark: %s over %s to %s (%d observations)\n",
			c.BenchmarkSymbol, c.WindowStart.Format("2006-01-02"),
			c.WindowEnd.Format("2006-01-02"), c.Observations)
		fmt.Fprintf(&sb, "- Portfolio return %s%% vs benchmark %s%%\n",
			c.Portfolio.TotalReturn.StringFixed(2), c.Benchmark.TotalReturn.StringFixed(2))
		for _, d := range c.SectorDeviations {
			fmt.Fprintf(&sb, "- Sector %s: portfolio %s%% vs benchmark %s%%\n",
				d.Sector, d.PortfolioWeight.StringFixed(2), d.BenchmarkWeight.StringFixed(2))
		}
	}

	return sb.String()
}

// buildUserPrompt formats the user query with any extra context
func (s *Service) buildUserPrompt(query *Query) string {
	var sb strings.Builder
	sb.WriteString(query.Text)

	if len(query.Context) > 0 {
		keys := make([]string, 0, len(query.Context))
		for k := range query.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\n\nAdditional context:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %s\n", k, query.Context[k])
		}
	}

	return sb.String()
}

// callClaude makes a request to the Claude API
func (s *Service) callClaude(ctx context.Context, model Model, systemPrompt, userPrompt string) (string, TokenUsage, error) {
	reqBody := map[string]any{
		"model":      string(model),
		"max_tokens": s.cfg.MaxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": userPrompt},
		},
		"system":      systemPrompt,
		"temperature": s.cfg.Temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", TokenUsage{}, err
	}

	var (
		resp    *http.Response
		lastErr error
	)
	for i := 0; i <= s.cfg.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", TokenUsage{}, ctx.Err()
			case <-time.After(time.Duration(i) * time.Second):
			}
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/messages", bytes.NewReader(jsonBody))
		if reqErr != nil {
			return "", TokenUsage{}, reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", s.cfg.APIKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, lastErr = s.httpClient.Do(req)
		if lastErr == nil && resp.StatusCode < 500 {
			break
		}
		if resp != nil {
			resp.Body.Close()
			resp = nil
		}
	}
	if lastErr != nil {
		return "", TokenUsage{}, lastErr
	}
	if resp == nil {
		return "", TokenUsage{}, fmt.Errorf("API unavailable after %d retries", s.cfg.MaxRetries)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", TokenUsage{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", TokenUsage{}, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", TokenUsage{}, err
	}
	if len(result.Content) == 0 {
		return "", TokenUsage{}, fmt.Errorf("empty response from API")
	}

	usage := TokenUsage{
		Input:  result.Usage.InputTokens,
		Output: result.Usage.OutputTokens,
		Total:  result.Usage.InputTokens + result.Usage.OutputTokens,
	}
	return result.Content[0].Text, usage, nil
}

// citeSources collects the derived records behind an answer. Records whose
// key appears in the answer text are cited individually; the provenance
// strings the engine stamped on the metric and breaches are always cited,
// so every answer traces back to the computation that produced its inputs.
func (s *Service) citeSources(answer string, rc *RiskContext) []Source {
	if rc == nil {
		return []Source{}
	}

	sources := make([]Source, 0)
	for _, e := range rc.Exposures {
		if strings.Contains(answer, e.Key) {
			sources = append(sources, Source{
				Type:      "exposure",
				Reference: string(e.Dimension) + ":" + e.Key,
			})
		}
	}
	for _, sr := range rc.StressResults {
		if strings.Contains(answer, sr.ScenarioName) {
			sources = append(sources, Source{Type: "stress_result", Reference: sr.ScenarioName})
		}
		for _, ref := range sr.Sources {
			sources = append(sources, Source{Type: "provenance", Reference: ref})
		}
	}
	if rc.Metric != nil {
		sources = append(sources, Source{
			Type:      "risk_metric",
			Reference: rc.Metric.SnapshotDate.Format("2006-01-02"),
		})
		for _, ref := range rc.Metric.Sources {
			sources = append(sources, Source{Type: "provenance", Reference: ref})
		}
	}
	for _, b := range rc.Breaches {
		sources = append(sources, Source{Type: "breach", Reference: b.ID.String()})
		for _, ref := range b.Sources {
			sources = append(sources, Source{Type: "provenance", Reference: ref})
		}
	}
	if rc.Comparison != nil {
		sources = append(sources, Source{Type: "benchmark", Reference: rc.Comparison.BenchmarkSymbol})
	}

	seen := make(map[string]bool)
	unique := make([]Source, 0, len(sources))
	for _, src := range sources {
		key := src.Type + "|" + src.Reference
		if !seen[key] {
			seen[key] = true
			unique = append(unique, src)
		}
	}
	return unique
}

// checkRateLimits verifies the user hasn't exceeded the token budget
func (s *Service) checkRateLimits(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastReset) > 24*time.Hour {
		s.dailyTokens = make(map[string]int)
		s.lastReset = time.Now()
	}
	if s.dailyTokens[userID] >= s.cfg.DailyTokenBudget {
		return fmt.Errorf("daily token limit exceeded")
	}
	return nil
}

// trackUsage records token usage
func (s *Service) trackUsage(userID string, usage TokenUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyTokens[userID] += usage.Total
}

// blockedResponse answers a blocked query without touching the model
func (s *Service) blockedResponse(query *Query, startTime time.Time) *Response {
	return &Response{
		ID:      uuid.New().String(),
		QueryID: query.ID,
		Text: `I can't provide buy/sell recommendations, return predictions, or tax advice.

I can help you with:
- Your portfolio's exposure breakdown by sector, currency, asset class, or geography
- Risk metrics like volatility, beta, drawdown, and value at risk
- Risk limit breaches and what triggered them
- How stress scenarios would affect your current holdings

Please rephrase your question as one about your portfolio's measured risk.`,
		Sources:      []Source{},
		Model:        s.cfg.SimpleModel,
		Intent:       IntentUnsupported,
		ProcessingMs: time.Since(startTime).Milliseconds(),
		Timestamp:    time.Now(),
		Disclaimers: []string{
			"This response was generated because your query appeared to request investment advice, which we cannot provide.",
		},
	}
}

// disclaimers returns appropriate disclaimers for the query type
func (s *Service) disclaimers(intent QueryIntent) []string {
	base := []string{
		"This information is AI-generated and for educational purposes only.",
		"This does not constitute investment, tax, or legal advice.",
	}
	switch intent {
	case IntentRisk, IntentBenchmark:
		return append(base, "Risk figures are based on historical data and may not reflect future conditions.")
	case IntentStress:
		return append(base, "Stress results are hypothetical simulations, not forecasts.")
	default:
		return base
	}
}

// GetUsageStats returns usage statistics for a user
func (s *Service) GetUsageStats(userID string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	used := s.dailyTokens[userID]
	return map[string]any{
		"tokens_used_today": used,
		"tokens_remaining":  s.cfg.DailyTokenBudget - used,
		"daily_limit":       s.cfg.DailyTokenBudget,
		"reset_time":        s.lastReset.Add(24 * time.Hour),
	}
}

// GetAuditEntries returns audit entries for a user
func (s *Service) GetAuditEntries(userID string, since time.Time, limit int) []AuditEntry {
	return s.auditor.GetEntries(userID, since, limit)
}

// GetCacheStats returns cache statistics
func (s *Service) GetCacheStats() map[string]any {
	return s.cache.Stats()
}

// InvalidateCache drops cached answers for a portfolio, called after a
// snapshot recompute changes the underlying records
func (s *Service) InvalidateCache(portfolioID string) {
	s.cache.Invalidate(portfolioID)
}
