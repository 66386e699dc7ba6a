// Package alerting turns risk breaches into user-facing alert payloads.
// Delivery (email, push) is out of scope; the API serves these for the
// dashboard's alert feed.
package alerting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/storage"
)

// Alert is one user-facing notification derived from a breach
type Alert struct {
	ID          uuid.UUID       `json:"id"`
	PortfolioID uuid.UUID       `json:"portfolio_id"`
	Severity    models.Severity `json:"severity"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	BreachID    uuid.UUID       `json:"breach_id"`
	Date        string          `json:"date"`
}

// Service builds alert feeds from stored breaches
type Service struct {
	breaches *storage.RiskBreachRepository
	limits   *storage.RiskLimitRepository
	log      zerolog.Logger
}

// NewService creates an alerting service
func NewService(breaches *storage.RiskBreachRepository, limits *storage.RiskLimitRepository, log zerolog.Logger) *Service {
	return &Service{
		breaches: breaches,
		limits:   limits,
		log:      log.With().Str("service", "alerting").Logger(),
	}
}

// FeedFor builds the alert feed for a portfolio, critical first and
// newest within each severity
func (s *Service) FeedFor(portfolioID uuid.UUID) ([]Alert, error) {
	breaches, err := s.breaches.GetByPortfolioID(portfolioID)
	if err != nil {
		return nil, err
	}

	limits, err := s.limits.GetByPortfolioID(portfolioID)
	if err != nil {
		return nil, err
	}
	limitsByID := make(map[uuid.UUID]models.RiskLimit, len(limits))
	for _, l := range limits {
		limitsByID[l.ID] = l
	}

	alerts := make([]Alert, 0, len(breaches))
	for _, b := range breaches {
		limit, ok := limitsByID[b.LimitID]
		if !ok {
			// Limit deleted after the breach was recorded; the audit
			// trail row survives but cannot be described.
			continue
		}
		alerts = append(alerts, FromBreach(b, limit))
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank(alerts[i].Severity) > severityRank(alerts[j].Severity)
	})

	return alerts, nil
}

// FromBreach formats one breach against its limit definition
func FromBreach(b models.RiskBreach, limit models.RiskLimit) Alert {
	return Alert{
		ID:          b.ID,
		PortfolioID: b.PortfolioID,
		Severity:    b.Severity,
		Title:       title(b.Severity, limit),
		Message:     message(b, limit),
		BreachID:    b.ID,
		Date:        b.BreachDate.UTC().Format("2006-01-02"),
	}
}

func title(severity models.Severity, limit models.RiskLimit) string {
	label := limitLabel(limit)
	switch severity {
	case models.SeverityCritical:
		return "Critical: " + label + " limit breached"
	case models.SeverityWarning:
		return "Warning: " + label + " limit breached"
	default:
		return label + " limit exceeded"
	}
}

func message(b models.RiskBreach, limit models.RiskLimit) string {
	return fmt.Sprintf("%s is at %s%% against a limit of %s%%.",
		limitLabel(limit), b.ActualValue.String(), b.Threshold.String())
}

func limitLabel(limit models.RiskLimit) string {
	switch limit.Type {
	case models.LimitExposure:
		if _, key, found := strings.Cut(limit.Key, ":"); found {
			return key + " exposure"
		}
		return "Exposure"
	case models.LimitVolatility:
		return "Volatility"
	case models.LimitVaR:
		return "Value at Risk"
	case models.LimitDrawdown:
		return "Max drawdown"
	default:
		return string(limit.Type)
	}
}

func severityRank(s models.Severity) int {
	switch s {
	case models.SeverityCritical:
		return 2
	case models.SeverityWarning:
		return 1
	default:
		return 0
	}
}
