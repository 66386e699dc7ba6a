package models

import (
	"time"

	"github.com/google/uuid"
)

// AssetClass categorizes assets by type
type AssetClass string

const (
	AssetClassEquity     AssetClass = "equity"
	AssetClassETF        AssetClass = "etf"
	AssetClassMutualFund AssetClass = "mutual_fund"
	AssetClassCommodity  AssetClass = "commodity" // Gold/Silver ETFs, SGBs
	AssetClassCash       AssetClass = "cash"
	AssetClassOther      AssetClass = "other" // Unclassified; should be zero in final view
)

// AllAssetClasses returns all valid asset classes for iteration
func AllAssetClasses() []AssetClass {
	return []AssetClass{
		AssetClassEquity,
		AssetClassETF,
		AssetClassMutualFund,
		AssetClassCommodity,
		AssetClassCash,
		AssetClassOther,
	}
}

// DisplayName returns human-readable name for the asset class
func (a AssetClass) DisplayName() string {
	switch a {
	case AssetClassEquity:
		return "Equities"
	case AssetClassETF:
		return "ETFs"
	case AssetClassMutualFund:
		return "Mutual Funds"
	case AssetClassCommodity:
		return "Commodities"
	case AssetClassCash:
		return "Cash"
	case AssetClassOther:
		return "Other"
	default:
		return string(a)
	}
}

// MarketCapBucket classifies equities by market capitalization
type MarketCapBucket string

const (
	MarketCapLarge   MarketCapBucket = "large_cap"
	MarketCapMid     MarketCapBucket = "mid_cap"
	MarketCapSmall   MarketCapBucket = "small_cap"
	MarketCapUnknown MarketCapBucket = "unknown"
)

// Asset is immutable reference data for one instrument. The engine only
// reads it; creation and enrichment happen in the refdata service.
type Asset struct {
	ID         uuid.UUID       `json:"id"`
	Symbol     string          `json:"symbol"`   // e.g., "RELIANCE.NS"
	Name       string          `json:"name"`     // e.g., "Reliance Industries"
	Exchange   string          `json:"exchange"` // NSE, BSE
	ISIN       string          `json:"isin,omitempty"`
	AssetClass AssetClass      `json:"asset_class"`
	Sector     string          `json:"sector"` // Banking, IT, Energy, ...
	MarketCap  MarketCapBucket `json:"market_cap_bucket"`
	Currency   string          `json:"currency"`  // INR, USD
	Geography  string          `json:"geography"` // India, US, ...
	CreatedAt  time.Time       `json:"created_at"`
}

// NewAsset creates an asset with generated ID and defaults suitable for
// an NSE-listed equity
func NewAsset(symbol, name string) *Asset {
	return &Asset{
		ID:         uuid.New(),
		Symbol:     symbol,
		Name:       name,
		Exchange:   "NSE",
		AssetClass: AssetClassEquity,
		MarketCap:  MarketCapUnknown,
		Currency:   "INR",
		Geography:  "India",
		CreatedAt:  time.Now().UTC(),
	}
}

// NeedsClassification returns true if the asset is missing sector metadata
func (a *Asset) NeedsClassification() bool {
	return a.Sector == "" || a.AssetClass == AssetClassOther
}

// Standard sectors used by the reference data enrichment
var StandardSectors = []string{
	"Banking",
	"IT",
	"Energy",
	"FMCG",
	"Pharma",
	"Auto",
	"Metals",
	"Telecom",
	"Infrastructure",
	"Financial Services",
	"Diversified",
}

// Standard geographies used by the reference data enrichment
var StandardGeographies = []string{
	"India",
	"US",
	"International Developed",
	"Emerging Markets",
	"Global",
}
