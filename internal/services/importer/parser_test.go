package importer

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ak18akashrajr/Portfolio-Risk-Exposure-Intelligence/internal/models"
)

const zerodhaSample = `symbol,isin,trade_date,exchange,segment,series,trade_type,quantity,price,order_id
RELIANCE,INE002A01018,2024-01-15,NSE,EQ,EQ,buy,10,2450.50,1100000001
HDFCBANK,INE040A01034,2024-01-16,NSE,EQ,EQ,buy,20,1520.00,1100000002
RELIANCE,INE002A01018,2024-02-01,NSE,EQ,EQ,sell,5,2600.00,1100000003
`

func TestParseCSV_Zerodha(t *testing.T) {
	svc := NewService()
	portfolioID := uuid.New()

	result, err := svc.ParseCSV(strings.NewReader(zerodhaSample), portfolioID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Source != "zerodha_tradebook" {
		t.Errorf("Expected zerodha_tradebook source, got %s", result.Source)
	}
	if len(result.Transactions) != 3 {
		t.Fatalf("Expected 3 transactions, got %d", len(result.Transactions))
	}
	if len(result.Skipped) != 0 {
		t.Errorf("Expected no skipped rows, got %v", result.Skipped)
	}

	first := result.Transactions[0]
	if first.Symbol != "RELIANCE.NS" {
		t.Errorf("Expected NSE suffix on symbol, got %s", first.Symbol)
	}
	if first.Type != models.TransactionBuy {
		t.Errorf("Expected BUY, got %s", first.Type)
	}
	if !first.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected quantity 10, got %s", first.Quantity)
	}
	if !first.Price.Equal(decimal.NewFromFloat(2450.50)) {
		t.Errorf("Expected price 2450.50, got %s", first.Price)
	}
	if first.OrderID != "1100000001" {
		t.Errorf("Expected order id preserved, got %s", first.OrderID)
	}
	if first.PortfolioID != portfolioID {
		t.Error("Expected portfolio id assigned")
	}

	sell := result.Transactions[2]
	if sell.Type != models.TransactionSell {
		t.Errorf("Expected SELL, got %s", sell.Type)
	}
}

func TestParseCSV_DuplicateOrderIDKeptOnce(t *testing.T) {
	data := `symbol,trade_date,trade_type,quantity,price,order_id
RELIANCE,2024-01-15,buy,10,2450.50,1100000001
RELIANCE,2024-01-15,buy,10,2450.50,1100000001
`
	svc := NewService()

	result, err := svc.ParseCSV(strings.NewReader(data), uuid.New())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Transactions) != 1 {
		t.Errorf("Expected 1 transaction after dedupe, got %d", len(result.Transactions))
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("Expected duplicate reported, got %v", result.Skipped)
	}
	if !strings.Contains(result.Skipped[0].Reason, "duplicate order id") {
		t.Errorf("Expected duplicate reason, got %q", result.Skipped[0].Reason)
	}
}

func TestParseCSV_BadRowsReportedNotDropped(t *testing.T) {
	data := `symbol,trade_date,trade_type,quantity,price,order_id
RELIANCE,2024-01-15,buy,10,2450.50,1100000001
HDFCBANK,2024-01-16,hold,20,1520.00,1100000002
TCS,not-a-date,buy,5,3800.00,1100000003
INFY,2024-01-17,sell,-5,1550.00,1100000004
`
	svc := NewService()

	result, err := svc.ParseCSV(strings.NewReader(data), uuid.New())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Transactions) != 1 {
		t.Errorf("Expected 1 valid transaction, got %d", len(result.Transactions))
	}
	if len(result.Skipped) != 3 {
		t.Fatalf("Expected 3 rejected rows, got %d", len(result.Skipped))
	}

	for _, skip := range result.Skipped {
		if skip.Line == 0 {
			t.Error("Expected line numbers on rejected rows")
		}
		if skip.Reason == "" {
			t.Error("Expected reasons on rejected rows")
		}
	}
}

func TestParseCSV_Generic(t *testing.T) {
	data := `Symbol,Date,Type,Quantity,Price,Order ID
AAPL,2024-01-15,BUY,3,175.00,ref-1
`
	svc := NewService()

	result, err := svc.ParseCSV(strings.NewReader(data), uuid.New())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Source != "generic_csv" {
		t.Errorf("Expected generic_csv source, got %s", result.Source)
	}
	if len(result.Transactions) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(result.Transactions))
	}
	if result.Transactions[0].Symbol != "AAPL" {
		t.Errorf("Expected AAPL without suffix, got %s", result.Transactions[0].Symbol)
	}
}

func TestParseCSV_UnknownFormat(t *testing.T) {
	data := `foo,bar,baz
1,2,3
`
	svc := NewService()

	_, err := svc.ParseCSV(strings.NewReader(data), uuid.New())
	if err != ErrUnknownFormat {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	svc := NewService()

	_, err := svc.ParseCSV(strings.NewReader(""), uuid.New())
	if err != ErrEmptyFile {
		t.Errorf("Expected ErrEmptyFile, got %v", err)
	}
}

func TestParseTradeDate(t *testing.T) {
	cases := []string{"2024-01-15", "2024-01-15T10:30:00", "2024-01-15 10:30:00", "15-01-2024"}
	for _, c := range cases {
		d, err := parseTradeDate(c)
		if err != nil {
			t.Errorf("Expected %q to parse, got %v", c, err)
			continue
		}
		if d.Year() != 2024 || d.Month() != 1 || d.Day() != 15 {
			t.Errorf("Expected 2024-01-15 from %q, got %s", c, d)
		}
	}

	if _, err := parseTradeDate("yesterday"); err == nil {
		t.Error("Expected error for unparseable date")
	}
}
