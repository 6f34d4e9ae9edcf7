package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryID identifies an entry within its sequence. New ids are Unix milliseconds.
type EntryID int64

// PurchaseEntry records a purchase of Quantity units at OriginValue per unit.
// CurrentValue is the latest known market price per unit.
type PurchaseEntry struct {
	ID           EntryID
	Asset        Asset
	Quantity     decimal.Decimal
	OriginValue  decimal.Decimal
	CurrentValue decimal.Decimal
	Date         time.Time
}

// Profit is always derived from its inputs: (CurrentValue - OriginValue) * Quantity.
func (p PurchaseEntry) Profit() decimal.Decimal {
	return p.CurrentValue.Sub(p.OriginValue).Mul(p.Quantity)
}

// SaleEntry records a sale of Quantity units at SellPrice per unit. Sales are immutable.
type SaleEntry struct {
	ID        EntryID
	Asset     Asset
	Quantity  decimal.Decimal
	SellPrice decimal.Decimal
	Date      time.Time
}

// Document is the entire persisted ledger state.
type Document struct {
	Purchases []PurchaseEntry
	Sales     []SaleEntry
}

// Totals aggregates one asset type. Each field follows its own sale policy:
// Quantity and CurrentValue are reduced by sales, OriginValue and Profit are not.
type Totals struct {
	Quantity     decimal.Decimal `json:"quantity"`
	OriginValue  decimal.Decimal `json:"originValue"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	Profit       decimal.Decimal `json:"profit"`
}

// Overview sums the per-type totals across the whole portfolio.
type Overview struct {
	TotalValue  decimal.Decimal `json:"totalValue"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
}

// TypePrices carries the refreshed prices for one asset type.
// Flat applies to entries without a dimension; ByDimension is keyed by Dimension.Key().
type TypePrices struct {
	Flat        decimal.NullDecimal
	ByDimension map[string]decimal.Decimal
}

// PriceUpdates maps an asset type to its refreshed prices.
type PriceUpdates map[AssetType]TypePrices

// SetDimension records a price for one dimension key of t.
func (u PriceUpdates) SetDimension(t AssetType, key string, price decimal.Decimal) {
	tp := u[t]
	if tp.ByDimension == nil {
		tp.ByDimension = make(map[string]decimal.Decimal)
	}
	tp.ByDimension[key] = price
	u[t] = tp
}

// SetFlat records the type-level price of t.
func (u PriceUpdates) SetFlat(t AssetType, price decimal.Decimal) {
	tp := u[t]
	tp.Flat = decimal.NewNullDecimal(price)
	u[t] = tp
}
