package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio groups a user's transactions and derived analytics
type Portfolio struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Name         string          `json:"name"` // e.g., "Main Portfolio"
	BaseCurrency string          `json:"base_currency"`
	Holdings     []Holding       `json:"holdings,omitempty"`
	TotalValue   decimal.Decimal `json:"total_value"`
	LastUpdated  time.Time       `json:"last_updated"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewPortfolio creates a new portfolio with generated ID
func NewPortfolio(userID uuid.UUID, name string) *Portfolio {
	now := time.Now().UTC()
	return &Portfolio{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         name,
		BaseCurrency: "INR",
		Holdings:     []Holding{},
		TotalValue:   decimal.Zero,
		LastUpdated:  now,
		CreatedAt:    now,
	}
}

// CalculateTotals recalculates TotalValue from holdings
func (p *Portfolio) CalculateTotals() {
	p.TotalValue = TotalMarketValue(p.Holdings)
	p.LastUpdated = time.Now().UTC()
}
