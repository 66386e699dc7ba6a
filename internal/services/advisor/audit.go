package advisor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditLogger records every advisor interaction for compliance review.
// Entries are kept in memory and also emitted as structured log events
// for aggregation.
type AuditLogger struct {
	enabled bool
	log     zerolog.Logger

	mu      sync.Mutex
	entries []AuditEntry
}

// AuditEntry is one logged interaction
type AuditEntry struct {
	Timestamp    time.Time   `json:"timestamp"`
	UserID       string      `json:"user_id"`
	QueryID      string      `json:"query_id"`
	QueryText    string      `json:"query_text"`
	Intent       QueryIntent `json:"intent"`
	ResponseID   string      `json:"response_id"`
	Model        Model       `json:"model"`
	TokensUsed   TokenUsage  `json:"tokens_used"`
	Cached       bool        `json:"cached"`
	ProcessingMs int64       `json:"processing_ms"`
	Sources      []string    `json:"sources"`
}

// NewAuditLogger creates an audit logger
func NewAuditLogger(enabled bool, logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{
		enabled: enabled,
		log:     logger.With().Str("component", "advisor_audit").Logger(),
	}
}

// Log records one interaction
func (al *AuditLogger) Log(query *Query, response *Response) {
	if !al.enabled {
		return
	}

	sources := make([]string, len(response.Sources))
	for i, src := range response.Sources {
		sources[i] = src.Type + ":" + src.Reference
	}

	entry := AuditEntry{
		Timestamp:    time.Now().UTC(),
		UserID:       query.UserID,
		QueryID:      query.ID,
		QueryText:    query.Text,
		Intent:       response.Intent,
		ResponseID:   response.ID,
		Model:        response.Model,
		TokensUsed:   response.TokensUsed,
		Cached:       response.Cached,
		ProcessingMs: response.ProcessingMs,
		Sources:      sources,
	}

	al.mu.Lock()
	al.entries = append(al.entries, entry)
	al.mu.Unlock()

	al.log.Info().
		Str("user_id", entry.UserID).
		Str("query_id", entry.QueryID).
		Str("intent", string(entry.Intent)).
		Str("model", string(entry.Model)).
		Int("tokens", entry.TokensUsed.Total).
		Bool("cached", entry.Cached).
		Int64("processing_ms", entry.ProcessingMs).
		Strs("sources", sources).
		Msg("advisor query")
}

// GetEntries returns the newest entries for a user since a cutoff
func (al *AuditLogger) GetEntries(userID string, since time.Time, limit int) []AuditEntry {
	al.mu.Lock()
	defer al.mu.Unlock()

	results := make([]AuditEntry, 0)
	for i := len(al.entries) - 1; i >= 0 && len(results) < limit; i-- {
		entry := al.entries[i]
		if entry.UserID == userID && entry.Timestamp.After(since) {
			results = append(results, entry)
		}
	}
	return results
}

// Stats summarizes activity since a cutoff
func (al *AuditLogger) Stats(since time.Time) map[string]any {
	al.mu.Lock()
	defer al.mu.Unlock()

	total, cached, tokens := 0, 0, 0
	byIntent := make(map[QueryIntent]int)
	for _, entry := range al.entries {
		if entry.Timestamp.Before(since) {
			continue
		}
		total++
		if entry.Cached {
			cached++
		}
		tokens += entry.TokensUsed.Total
		byIntent[entry.Intent]++
	}

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(cached) / float64(total) * 100
	}
	return map[string]any{
		"total_queries":  total,
		"cached_queries": cached,
		"cache_hit_rate": hitRate,
		"total_tokens":   tokens,
		"by_intent":      byIntent,
	}
}

// Clear drops entries older than the cutoff and returns how many were
// removed
func (al *AuditLogger) Clear(before time.Time) int {
	al.mu.Lock()
	defer al.mu.Unlock()

	kept := al.entries[:0]
	removed := 0
	for _, entry := range al.entries {
		if entry.Timestamp.Before(before) {
			removed++
		} else {
			kept = append(kept, entry)
		}
	}
	al.entries = kept
	return removed
}
