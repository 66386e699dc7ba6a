package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a trade
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Transaction is one executed order in the append-only ledger. Once
// recorded it is never mutated; holdings are always reconstructed by
// replaying the ledger.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	PortfolioID uuid.UUID       `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Type        TransactionType `json:"type"`
	Date        time.Time       `json:"date"`
	Quantity    decimal.Decimal `json:"quantity"` // Always positive; direction comes from Type
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	OrderID     string          `json:"order_id,omitempty"` // Broker order id, used for import dedupe
	CreatedAt   time.Time       `json:"created_at"`
}

// NewTransaction creates a transaction with generated ID
func NewTransaction(portfolioID uuid.UUID, symbol string, txType TransactionType, date time.Time, quantity, price decimal.Decimal) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Type:        txType,
		Date:        date,
		Quantity:    quantity,
		Price:       price,
		Currency:    "INR",
		CreatedAt:   time.Now().UTC(),
	}
}

// SignedQuantity returns quantity signed by direction (+BUY, -SELL)
func (t *Transaction) SignedQuantity() decimal.Decimal {
	if t.Type == TransactionSell {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

// GrossValue returns quantity x price
func (t *Transaction) GrossValue() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}
