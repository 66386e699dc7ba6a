package importer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// GenericParser handles plain manually-maintained ledgers with
// symbol/date/type/quantity/price columns
type GenericParser struct{}

// NewGenericParser creates a new generic parser
func NewGenericParser() *GenericParser {
	return &GenericParser{}
}

// Name returns the parser name
func (p *GenericParser) Name() string {
	return "generic_csv"
}

// Detect checks for the minimal ledger columns
func (p *GenericParser) Detect(header []string) bool {
	required := []string{"symbol", "date", "type", "quantity", "price"}
	matches := 0

	headerLower := make([]string, len(header))
	for i, h := range header {
		headerLower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, req := range required {
		for _, h := range headerLower {
			if strings.Contains(h, req) {
				matches++
				break
			}
		}
	}

	return matches >= 4
}

// ParseRow parses a single generic ledger row
func (p *GenericParser) ParseRow(row, header []string, portfolioID uuid.UUID) (*models.Transaction, error) {
	colMap := columnIndex(header)

	symbol := cleanSymbol(getColumn(row, colMap, "symbol", "ticker"))
	if symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}

	txType, err := parseTradeType(getColumn(row, colMap, "type", "side"))
	if err != nil {
		return nil, err
	}

	date, err := parseTradeDate(getColumn(row, colMap, "date", "trade date"))
	if err != nil {
		return nil, err
	}

	quantity, err := parseDecimal(getColumn(row, colMap, "quantity", "shares"))
	if err != nil {
		return nil, fmt.Errorf("bad quantity: %w", err)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}

	price, err := parseDecimal(getColumn(row, colMap, "price"))
	if err != nil {
		return nil, fmt.Errorf("bad price: %w", err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("price must be positive, got %s", price)
	}

	tx := models.NewTransaction(portfolioID, symbol, txType, date, quantity, price)
	tx.OrderID = getColumn(row, colMap, "order id", "order_id", "reference")

	return tx, nil
}
