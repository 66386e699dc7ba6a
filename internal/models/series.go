package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one dated observation in a price or value series
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// ReturnPoint is one dated periodic return, as a decimal fraction
// (0.01 = 1%)
type ReturnPoint struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// DataSources is the provenance carried on every derived record. The
// answer layer cites these instead of touching raw transaction data.
type DataSources []string

// Add appends a source reference if not already present
func (d DataSources) Add(ref string) DataSources {
	for _, s := range d {
		if s == ref {
			return d
		}
	}
	return append(d, ref)
}
