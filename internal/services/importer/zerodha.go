package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

// ZerodhaParser handles Zerodha Console tradebook exports
type ZerodhaParser struct{}

// NewZerodhaParser creates a new Zerodha parser
func NewZerodhaParser() *ZerodhaParser {
	return &ZerodhaParser{}
}

// Name returns the parser name
func (p *ZerodhaParser) Name() string {
	return "zerodha_tradebook"
}

// Detect checks if this is a Zerodha tradebook format
func (p *ZerodhaParser) Detect(header []string) bool {
	required := []string{"symbol", "trade_date", "trade_type", "quantity", "price"}
	matches := 0

	headerLower := make([]string, len(header))
	for i, h := range header {
		headerLower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, req := range required {
		for _, h := range headerLower {
			if h == req {
				matches++
				break
			}
		}
	}

	return matches >= 4
}

// ParseRow parses a single Zerodha tradebook row. The tradebook lists
// executed trades only, so no order-status filtering is needed; rows with
// a non-positive quantity or price are rejected.
func (p *ZerodhaParser) ParseRow(row, header []string, portfolioID uuid.UUID) (*models.Transaction, error) {
	colMap := columnIndex(header)

	symbol := cleanSymbol(getColumn(row, colMap, "symbol", "tradingsymbol"))
	if symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}
	// NSE symbols carry the .NS suffix used by the price source
	if !strings.Contains(symbol, ".") && !strings.HasPrefix(symbol, "^") {
		symbol += ".NS"
	}

	txType, err := parseTradeType(getColumn(row, colMap, "trade_type"))
	if err != nil {
		return nil, err
	}

	date, err := parseTradeDate(getColumn(row, colMap, "trade_date", "order_execution_time"))
	if err != nil {
		return nil, err
	}

	quantity, err := parseDecimal(getColumn(row, colMap, "quantity", "qty"))
	if err != nil {
		return nil, fmt.Errorf("bad quantity: %w", err)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}

	price, err := parseDecimal(getColumn(row, colMap, "price", "avg_price"))
	if err != nil {
		return nil, fmt.Errorf("bad price: %w", err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("price must be positive, got %s", price)
	}

	tx := models.NewTransaction(portfolioID, symbol, txType, date, quantity, price)
	tx.OrderID = getColumn(row, colMap, "order_id", "trade_id")

	return tx, nil
}

func parseTradeDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing trade date")
	}

	layouts := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"02-01-2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable trade date %q", s)
}
