package ledger

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tracker/internal/domain"
)

// ComputeTotals aggregates purchases and sales per asset type.
//
// Only types with at least one purchase appear. Sales reduce Quantity and
// CurrentValue (by proceeds) but never OriginValue or Profit, and sales of a
// type without purchases are ignored. Callers rely on this exact arithmetic.
func ComputeTotals(doc domain.Document) map[domain.AssetType]domain.Totals {
	totals := make(map[domain.AssetType]domain.Totals)

	for _, p := range doc.Purchases {
		t := totals[p.Asset.Type()]
		t.Quantity = t.Quantity.Add(p.Quantity)
		t.OriginValue = t.OriginValue.Add(p.OriginValue.Mul(p.Quantity))
		t.CurrentValue = t.CurrentValue.Add(p.CurrentValue.Mul(p.Quantity))
		t.Profit = t.Profit.Add(p.Profit())
		totals[p.Asset.Type()] = t
	}

	for _, s := range doc.Sales {
		t, ok := totals[s.Asset.Type()]
		if !ok {
			continue
		}
		t.Quantity = t.Quantity.Sub(s.Quantity)
		t.CurrentValue = t.CurrentValue.Sub(s.SellPrice.Mul(s.Quantity))
		totals[s.Asset.Type()] = t
	}

	return totals
}

// ComputeOverview sums current value and profit across all types.
func ComputeOverview(totals map[domain.AssetType]domain.Totals) domain.Overview {
	var o domain.Overview
	for _, t := range totals {
		o.TotalValue = o.TotalValue.Add(t.CurrentValue)
		o.TotalProfit = o.TotalProfit.Add(t.Profit)
	}
	return o
}

// ComputeRemaining returns purchased minus sold quantity per dimension key
// for asset type t. Entries without a dimension are excluded. Results may be
// negative when more was sold than bought.
func ComputeRemaining(doc domain.Document, t domain.AssetType) map[string]decimal.Decimal {
	remaining := make(map[string]decimal.Decimal)

	for _, p := range purchasesOf(doc, t) {
		if dim := p.Asset.Dimension(); !dim.IsZero() {
			remaining[dim.Key()] = remaining[dim.Key()].Add(p.Quantity)
		}
	}
	for _, s := range salesOf(doc, t) {
		if dim := s.Asset.Dimension(); !dim.IsZero() {
			remaining[dim.Key()] = remaining[dim.Key()].Sub(s.Quantity)
		}
	}

	return remaining
}

// ApplyPrices sets CurrentValue on every purchase matched by updates and
// returns the number of entries touched. Profit follows automatically since
// it is derived from CurrentValue.
func ApplyPrices(doc *domain.Document, updates domain.PriceUpdates) int {
	touched := 0
	for i := range doc.Purchases {
		p := &doc.Purchases[i]
		prices, ok := updates[p.Asset.Type()]
		if !ok {
			continue
		}

		dim := p.Asset.Dimension()
		if dim.IsZero() {
			if prices.Flat.Valid {
				p.CurrentValue = prices.Flat.Decimal
				touched++
			}
			continue
		}
		if price, ok := prices.ByDimension[dim.Key()]; ok {
			p.CurrentValue = price
			touched++
		}
	}
	return touched
}

func purchasesOf(doc domain.Document, t domain.AssetType) []domain.PurchaseEntry {
	return lo.Filter(doc.Purchases, func(p domain.PurchaseEntry, _ int) bool {
		return p.Asset.Type() == t
	})
}

func salesOf(doc domain.Document, t domain.AssetType) []domain.SaleEntry {
	return lo.Filter(doc.Sales, func(s domain.SaleEntry, _ int) bool {
		return s.Asset.Type() == t
	})
}

func maxPurchaseID(entries []domain.PurchaseEntry) domain.EntryID {
	return lo.Max(lo.Map(entries, func(p domain.PurchaseEntry, _ int) domain.EntryID { return p.ID }))
}

func maxSaleID(entries []domain.SaleEntry) domain.EntryID {
	return lo.Max(lo.Map(entries, func(s domain.SaleEntry, _ int) domain.EntryID { return s.ID }))
}
