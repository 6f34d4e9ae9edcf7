package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/store"
)

// DefaultKey is the blob store key holding the ledger document.
const DefaultKey = "resource-tracker-data"

// ErrMalformedImport is returned by Import when the payload is not a valid document.
var ErrMalformedImport = errors.New("malformed import payload")

// ImportMode selects how Import combines the payload with the stored document.
type ImportMode string

const (
	ImportReplace ImportMode = "replace"
	ImportMerge   ImportMode = "merge"
)

// ParseImportMode parses an import mode. An empty string means replace.
func ParseImportMode(s string) (ImportMode, error) {
	switch m := ImportMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ImportReplace, nil
	case ImportReplace, ImportMerge:
		return m, nil
	}
	return "", fmt.Errorf("unknown import mode %q", s)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithKey overrides the blob store key.
func WithKey(key string) Option {
	return func(l *Ledger) { l.key = key }
}

// WithClock overrides the clock used for ids and default dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger keeps purchases and sales in a single document and derives
// aggregate views from it. Every mutation is a read, modify and write of the
// whole document; operations on one Ledger never run concurrently.
type Ledger struct {
	store store.BlobStore
	key   string
	now   func() time.Time

	mu sync.Mutex
}

// New creates a Ledger persisting to s.
func New(s store.BlobStore, opts ...Option) *Ledger {
	l := &Ledger{store: s, key: DefaultKey, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) load(ctx context.Context) (domain.Document, error) {
	data, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Document{}, nil
		}
		return domain.Document{}, fmt.Errorf("loading ledger: %w", err)
	}
	doc, err := domain.DecodeDocument(data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("decoding ledger: %w", err)
	}
	return doc, nil
}

func (l *Ledger) save(ctx context.Context, doc domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := l.store.Set(ctx, l.key, data); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	return nil
}

// read runs fn against the current document under the lock.
func (l *Ledger) read(ctx context.Context, fn func(domain.Document)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.load(ctx)
	if err != nil {
		return err
	}
	fn(doc)
	return nil
}

// update loads the document, lets fn mutate it and persists the result.
// Nothing is written when fn reports no change or returns an error.
func (l *Ledger) update(ctx context.Context, fn func(*domain.Document) (bool, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.load(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(&doc)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return l.save(ctx, doc)
}

// nextID returns the current time in milliseconds, bumped past last when the
// clock has not advanced.
func (l *Ledger) nextID(last domain.EntryID) domain.EntryID {
	id := domain.EntryID(l.now().UnixMilli())
	if id <= last {
		id = last + 1
	}
	return id
}

func (l *Ledger) dateOrNow(date time.Time) time.Time {
	if date.IsZero() {
		return l.now().UTC()
	}
	return date.UTC()
}

// AddPurchase appends a purchase and returns its id. A zero date means now.
func (l *Ledger) AddPurchase(ctx context.Context, asset domain.Asset, quantity, originValue, currentValue decimal.Decimal, date time.Time) (domain.EntryID, error) {
	if asset == nil {
		return 0, fmt.Errorf("adding purchase: %w", domain.ErrUnknownAssetType)
	}

	var id domain.EntryID
	err := l.update(ctx, func(doc *domain.Document) (bool, error) {
		id = l.nextID(maxPurchaseID(doc.Purchases))
		doc.Purchases = append(doc.Purchases, domain.PurchaseEntry{
			ID:           id,
			Asset:        asset,
			Quantity:     quantity,
			OriginValue:  originValue,
			CurrentValue: currentValue,
			Date:         l.dateOrNow(date),
		})
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	slog.Debug("purchase added", "id", id, "type", asset.Type(), "dimension", asset.Dimension().Key())
	return id, nil
}

// AddSale appends a sale and returns its id. Selling more than is held is
// permitted and drives the remaining quantity negative.
func (l *Ledger) AddSale(ctx context.Context, asset domain.Asset, quantity, sellPrice decimal.Decimal, date time.Time) (domain.EntryID, error) {
	if asset == nil {
		return 0, fmt.Errorf("adding sale: %w", domain.ErrUnknownAssetType)
	}

	var id domain.EntryID
	err := l.update(ctx, func(doc *domain.Document) (bool, error) {
		id = l.nextID(maxSaleID(doc.Sales))
		doc.Sales = append(doc.Sales, domain.SaleEntry{
			ID:        id,
			Asset:     asset,
			Quantity:  quantity,
			SellPrice: sellPrice,
			Date:      l.dateOrNow(date),
		})
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	slog.Debug("sale added", "id", id, "type", asset.Type(), "dimension", asset.Dimension().Key())
	return id, nil
}

// RefreshCurrentValues applies refreshed prices to matching purchases and
// returns how many were updated. Dimensioned entries whose key is missing
// from updates are left untouched.
func (l *Ledger) RefreshCurrentValues(ctx context.Context, updates domain.PriceUpdates) (int, error) {
	var touched int
	err := l.update(ctx, func(doc *domain.Document) (bool, error) {
		touched = ApplyPrices(doc, updates)
		return touched > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return touched, nil
}

// RemainingByDimension returns purchased minus sold quantity per dimension key of t.
func (l *Ledger) RemainingByDimension(ctx context.Context, t domain.AssetType) (map[string]decimal.Decimal, error) {
	var remaining map[string]decimal.Decimal
	err := l.read(ctx, func(doc domain.Document) {
		remaining = ComputeRemaining(doc, t)
	})
	return remaining, err
}

// TotalsByType returns per-type totals. See ComputeTotals for the sale policy.
func (l *Ledger) TotalsByType(ctx context.Context) (map[domain.AssetType]domain.Totals, error) {
	var totals map[domain.AssetType]domain.Totals
	err := l.read(ctx, func(doc domain.Document) {
		totals = ComputeTotals(doc)
	})
	return totals, err
}

// Overview returns the portfolio-wide value and profit.
func (l *Ledger) Overview(ctx context.Context) (domain.Overview, error) {
	totals, err := l.TotalsByType(ctx)
	if err != nil {
		return domain.Overview{}, err
	}
	return ComputeOverview(totals), nil
}

// Document returns a snapshot of the stored document.
func (l *Ledger) Document(ctx context.Context) (domain.Document, error) {
	var snapshot domain.Document
	err := l.read(ctx, func(doc domain.Document) {
		snapshot = doc
	})
	return snapshot, err
}

// PurchasesByType returns the purchases of type t in insertion order.
func (l *Ledger) PurchasesByType(ctx context.Context, t domain.AssetType) ([]domain.PurchaseEntry, error) {
	var entries []domain.PurchaseEntry
	err := l.read(ctx, func(doc domain.Document) {
		entries = purchasesOf(doc, t)
	})
	return entries, err
}

// SalesByType returns the sales of type t in insertion order.
func (l *Ledger) SalesByType(ctx context.Context, t domain.AssetType) ([]domain.SaleEntry, error) {
	var entries []domain.SaleEntry
	err := l.read(ctx, func(doc domain.Document) {
		entries = salesOf(doc, t)
	})
	return entries, err
}

// Export serializes the stored document as indented JSON.
func (l *Ledger) Export(ctx context.Context) ([]byte, error) {
	doc, err := l.Document(ctx)
	if err != nil {
		return nil, err
	}
	return domain.EncodeDocument(doc)
}

// Import replaces the stored document with data, or appends its entries
// after the existing ones in merge mode. A payload that does not decode
// yields ErrMalformedImport and the stored document is not touched.
func (l *Ledger) Import(ctx context.Context, data []byte, mode ImportMode) error {
	incoming, err := domain.DecodeDocument(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedImport, err)
	}

	switch mode {
	case ImportReplace:
		// The stored document is not read, so a corrupt one can still be replaced.
		l.mu.Lock()
		err = l.save(ctx, incoming)
		l.mu.Unlock()
	case ImportMerge:
		err = l.update(ctx, func(doc *domain.Document) (bool, error) {
			doc.Purchases = append(doc.Purchases, incoming.Purchases...)
			doc.Sales = append(doc.Sales, incoming.Sales...)
			return true, nil
		})
	default:
		err = fmt.Errorf("unknown import mode %q", mode)
	}
	if err != nil {
		return fmt.Errorf("importing ledger: %w", err)
	}

	slog.Info("ledger imported", "mode", mode,
		"purchases", len(incoming.Purchases), "sales", len(incoming.Sales))
	return nil
}
