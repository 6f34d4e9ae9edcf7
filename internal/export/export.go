package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/ledger"
)

// Sheet names written by every export.
const (
	SheetTotals    = "TOTALS"
	SheetRemaining = "REMAINING"
	SheetPurchases = "PURCHASES"
	SheetSales     = "SALES"
)

// Sheet is one named table of cell values. The first row is the header.
type Sheet struct {
	Name string
	Rows [][]any
}

// SheetWriter writes sheets to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, sheets []Sheet) error
}

// HistoryAppender is implemented by writers that also keep a running
// value history, one row per export.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, overview domain.Overview, at time.Time) error
}

// LedgerReader reads the current ledger document.
type LedgerReader interface {
	Document(ctx context.Context) (domain.Document, error)
}

// Service builds spreadsheet rows from the ledger and hands them to the configured writers.
type Service struct {
	ledger  LedgerReader
	writers []SheetWriter
	now     func() time.Time
}

// NewService creates a new export Service.
func NewService(ledger LedgerReader, writers ...SheetWriter) *Service {
	return &Service{
		ledger:  ledger,
		writers: writers,
		now:     time.Now,
	}
}

// Export writes the current ledger to every writer. A failing writer does not
// stop the others; all failures are returned together.
// Implements worker.Exporter.
func (s *Service) Export(ctx context.Context) error {
	doc, err := s.ledger.Document(ctx)
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	at := s.now().UTC()
	sheets := BuildSheets(doc, at)
	overview := ledger.ComputeOverview(ledger.ComputeTotals(doc))

	var errs []error
	for _, w := range s.writers {
		if err := w.Write(ctx, sheets); err != nil {
			errs = append(errs, fmt.Errorf("writing sheets: %w", err))
			continue
		}
		if h, ok := w.(HistoryAppender); ok {
			if err := h.AppendHistory(ctx, overview, at); err != nil {
				slog.Warn("export: history append failed", "error", err)
			}
		}
	}
	return errors.Join(errs...)
}

// BuildSheets renders the document as the TOTALS, REMAINING, PURCHASES and SALES sheets.
func BuildSheets(doc domain.Document, at time.Time) []Sheet {
	return []Sheet{
		{Name: SheetTotals, Rows: buildTotals(doc, at)},
		{Name: SheetRemaining, Rows: buildRemaining(doc)},
		{Name: SheetPurchases, Rows: buildPurchases(doc)},
		{Name: SheetSales, Rows: buildSales(doc)},
	}
}

// buildTotals builds the TOTALS sheet.
// Columns: Type | Quantity | Origin Value | Current Value | Profit
func buildTotals(doc domain.Document, at time.Time) [][]any {
	totals := ledger.ComputeTotals(doc)
	overview := ledger.ComputeOverview(totals)

	data := [][]any{{"Type", "Quantity", "Origin Value", "Current Value", "Profit"}}
	for _, t := range domain.AssetTypes() {
		tot, ok := totals[t]
		if !ok {
			continue
		}
		data = append(data, []any{
			string(t),
			toFloat(tot.Quantity),
			toFloat(tot.OriginValue),
			toFloat(tot.CurrentValue),
			toFloat(tot.Profit),
		})
	}
	data = append(data,
		[]any{"Total", nil, nil, toFloat(overview.TotalValue), toFloat(overview.TotalProfit)},
		[]any{"Updated", at.Format(time.RFC3339)},
	)
	return data
}

// buildRemaining builds the REMAINING sheet for the dimensioned types.
// Columns: Type | Dimension | Remaining
func buildRemaining(doc domain.Document) [][]any {
	data := [][]any{{"Type", "Dimension", "Remaining"}}
	for _, t := range domain.AssetTypes() {
		if !t.Dimensioned() {
			continue
		}
		remaining := ledger.ComputeRemaining(doc, t)
		keys := lo.Keys(remaining)
		slices.Sort(keys)
		for _, key := range keys {
			data = append(data, []any{string(t), key, toFloat(remaining[key])})
		}
	}
	return data
}

// buildPurchases builds the PURCHASES sheet.
// Columns: ID | Date | Type | Brand | Unit | Quantity | Origin Value | Current Value | Profit
func buildPurchases(doc domain.Document) [][]any {
	data := make([][]any, 0, len(doc.Purchases)+1)
	data = append(data, []any{"ID", "Date", "Type", "Brand", "Unit", "Quantity", "Origin Value", "Current Value", "Profit"})
	for _, p := range doc.Purchases {
		dim := p.Asset.Dimension()
		data = append(data, []any{
			int64(p.ID),
			p.Date.UTC().Format("2006-01-02"),
			string(p.Asset.Type()),
			dim.Brand,
			string(dim.Unit),
			toFloat(p.Quantity),
			toFloat(p.OriginValue),
			toFloat(p.CurrentValue),
			toFloat(p.Profit()),
		})
	}
	return data
}

// buildSales builds the SALES sheet.
// Columns: ID | Date | Type | Brand | Unit | Quantity | Sell Price
func buildSales(doc domain.Document) [][]any {
	data := make([][]any, 0, len(doc.Sales)+1)
	data = append(data, []any{"ID", "Date", "Type", "Brand", "Unit", "Quantity", "Sell Price"})
	for _, s := range doc.Sales {
		dim := s.Asset.Dimension()
		data = append(data, []any{
			int64(s.ID),
			s.Date.UTC().Format("2006-01-02"),
			string(s.Asset.Type()),
			dim.Brand,
			string(dim.Unit),
			toFloat(s.Quantity),
			toFloat(s.SellPrice),
		})
	}
	return data
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
