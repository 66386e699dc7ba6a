// Package importer handles broker tradebook CSV import and parsing
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

var (
	ErrUnknownFormat = errors.New("unknown CSV format")
	ErrEmptyFile     = errors.New("CSV file is empty")
	ErrNoData        = errors.New("no valid transactions found")
)

// TradebookParser is a brokerage-specific CSV layout
type TradebookParser interface {
	// Detect checks if this parser handles the given CSV header
	Detect(header []string) bool

	// ParseRow converts one data row into a transaction
	ParseRow(row, header []string, portfolioID uuid.UUID) (*models.Transaction, error)

	// Name returns the parser name
	Name() string
}

// RowError records one rejected row; rows are never silently dropped
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult contains the outcome of parsing a tradebook file
type ParseResult struct {
	Transactions []models.Transaction `json:"transactions"`
	Source       string               `json:"source"`
	Skipped      []RowError           `json:"skipped,omitempty"`
}

// Service handles tradebook import operations
type Service struct {
	parsers []TradebookParser
}

// NewService creates a new import service
func NewService() *Service {
	return &Service{
		parsers: []TradebookParser{
			NewZerodhaParser(),
			NewGenericParser(),
		},
	}
}

// ParseCSV auto-detects the format and parses the tradebook. Rows that
// fail validation are reported in Skipped with their line number; an
// in-file duplicate order id keeps the first occurrence.
func (s *Service) ParseCSV(reader io.Reader, portfolioID uuid.UUID) (*ParseResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headerIdx, header := findHeader(records)
	if headerIdx < 0 {
		return nil, ErrUnknownFormat
	}

	var parser TradebookParser
	for _, p := range s.parsers {
		if p.Detect(header) {
			parser = p
			break
		}
	}
	if parser == nil {
		return nil, ErrUnknownFormat
	}

	result := &ParseResult{Source: parser.Name()}
	seenOrders := make(map[string]bool)

	for i := headerIdx + 1; i < len(records); i++ {
		row := records[i]
		if isSkipRow(row) {
			continue
		}

		tx, err := parser.ParseRow(row, header, portfolioID)
		if err != nil {
			result.Skipped = append(result.Skipped, RowError{Line: i + 1, Reason: err.Error()})
			continue
		}

		if tx.OrderID != "" {
			if seenOrders[tx.OrderID] {
				result.Skipped = append(result.Skipped, RowError{Line: i + 1, Reason: "duplicate order id " + tx.OrderID})
				continue
			}
			seenOrders[tx.OrderID] = true
		}

		result.Transactions = append(result.Transactions, *tx)
	}

	if len(result.Transactions) == 0 {
		return nil, ErrNoData
	}

	return result, nil
}

func findHeader(records [][]string) (int, []string) {
	keywords := []string{"symbol", "ticker", "trade_date", "date", "quantity", "price", "trade_type", "type"}

	for i, row := range records {
		if len(row) < 3 {
			continue
		}
		rowStr := strings.ToLower(strings.Join(row, " "))
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(rowStr, kw) {
				matches++
			}
		}
		if matches >= 3 {
			return i, row
		}
	}
	return -1, nil
}

func isSkipRow(row []string) bool {
	if len(row) == 0 {
		return true
	}

	firstCell := strings.ToLower(strings.TrimSpace(row[0]))
	skipPrefixes := []string{"total", "--", "***", ""}

	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(firstCell, prefix) && len(firstCell) < 20 {
			return true
		}
	}

	return false
}

// columnIndex builds a case-insensitive header lookup
func columnIndex(header []string) map[string]int {
	colMap := make(map[string]int, len(header))
	for i, h := range header {
		colMap[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return colMap
}

func getColumn(row []string, colMap map[string]int, names ...string) string {
	for _, name := range names {
		if idx, ok := colMap[name]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
	}
	return ""
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "₹", "")

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	if s == "" || s == "--" || strings.EqualFold(s, "n/a") {
		return decimal.Zero, fmt.Errorf("empty numeric value")
	}

	return decimal.NewFromString(s)
}

func parseTradeType(s string) (models.TransactionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B":
		return models.TransactionBuy, nil
	case "SELL", "S":
		return models.TransactionSell, nil
	default:
		return "", fmt.Errorf("unknown trade type %q", s)
	}
}

func cleanSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
