package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/external"
)

// Ledger defines the subset of the portfolio ledger used by Service.
type Ledger interface {
	Document(ctx context.Context) (domain.Document, error)
	AddPurchase(ctx context.Context, asset domain.Asset, quantity, originValue, currentValue decimal.Decimal, date time.Time) (domain.EntryID, error)
	RefreshCurrentValues(ctx context.Context, updates domain.PriceUpdates) (int, error)
}

// PriceOracle quotes assets. A zero price means the quote is unavailable.
type PriceOracle interface {
	CoinPrice(ctx context.Context, symbol string) decimal.Decimal
	GoldPrice(ctx context.Context, brand domain.GoldBrand, unit domain.QuantityUnit, side external.Side) decimal.Decimal
}

// Service keeps ledger current values in line with market prices.
type Service struct {
	ledger Ledger
	oracle PriceOracle
}

// NewService creates a new portfolio Service.
func NewService(ledger Ledger, oracle PriceOracle) *Service {
	return &Service{ledger: ledger, oracle: oracle}
}

// RefreshResult summarises one refresh.
type RefreshResult struct {
	Requested int `json:"requested"`
	Priced    int `json:"priced"`
	Updated   int `json:"updated"`
}

// Refresh fetches prices for every gold dimension and coin held and applies
// them to the ledger. Quotes that come back as zero are left out, so those
// entries keep their previous value. Fetching happens before the ledger is
// locked; the prices are applied to the document as it is when they arrive.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	doc, err := s.ledger.Document(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("reading ledger: %w", err)
	}

	updates := domain.PriceUpdates{}
	var result RefreshResult

	for _, g := range heldGold(doc) {
		result.Requested++
		if price := s.oracle.GoldPrice(ctx, g.Brand, g.Unit, external.SideBuy); price.IsPositive() {
			updates.SetDimension(domain.AssetGold, g.Dimension().Key(), price)
			result.Priced++
		}
	}

	for _, c := range heldCoins(doc) {
		result.Requested++
		if price := s.oracle.CoinPrice(ctx, c.Symbol); price.IsPositive() {
			updates.SetDimension(domain.AssetCoin, c.Dimension().Key(), price)
			result.Priced++
		}
	}

	if len(updates) == 0 {
		return result, nil
	}

	result.Updated, err = s.ledger.RefreshCurrentValues(ctx, updates)
	if err != nil {
		return result, fmt.Errorf("applying prices: %w", err)
	}
	return result, nil
}

// heldGold returns the distinct branded gold assets among the purchases.
func heldGold(doc domain.Document) []domain.Gold {
	gold := lo.FilterMap(doc.Purchases, func(p domain.PurchaseEntry, _ int) (domain.Gold, bool) {
		g, ok := p.Asset.(domain.Gold)
		return g, ok && g.Brand != ""
	})
	return lo.Uniq(gold)
}

// heldCoins returns the distinct coins with a symbol among the purchases.
func heldCoins(doc domain.Document) []domain.Coin {
	coins := lo.FilterMap(doc.Purchases, func(p domain.PurchaseEntry, _ int) (domain.Coin, bool) {
		c, ok := p.Asset.(domain.Coin)
		return c, ok && c.Symbol != ""
	})
	return lo.Uniq(coins)
}

// Quote returns the market price of asset, or zero when none is available.
// Only branded gold and coins can be quoted.
func (s *Service) Quote(ctx context.Context, asset domain.Asset) decimal.Decimal {
	switch a := asset.(type) {
	case domain.Gold:
		if a.Brand == "" {
			return decimal.Zero
		}
		return s.oracle.GoldPrice(ctx, a.Brand, a.Unit, external.SideBuy)
	case domain.Coin:
		if a.Symbol == "" {
			return decimal.Zero
		}
		return s.oracle.CoinPrice(ctx, a.Symbol)
	}
	return decimal.Zero
}

// PurchaseRequest is a purchase as entered by a user. CurrentValue may be left unset.
type PurchaseRequest struct {
	Asset        domain.Asset
	Quantity     decimal.Decimal
	OriginValue  decimal.Decimal
	CurrentValue decimal.NullDecimal
	Date         time.Time
}

// AddPurchase records a purchase. When no current value is given it is
// quoted from the oracle, falling back to the origin value.
func (s *Service) AddPurchase(ctx context.Context, req PurchaseRequest) (domain.EntryID, error) {
	current := req.CurrentValue.Decimal
	if !req.CurrentValue.Valid {
		current = s.Quote(ctx, req.Asset)
		if !current.IsPositive() {
			current = req.OriginValue
		}
		slog.Debug("quoted current value", "type", req.Asset.Type(), "dimension", req.Asset.Dimension().Key(), "value", current)
	}

	id, err := s.ledger.AddPurchase(ctx, req.Asset, req.Quantity, req.OriginValue, current, req.Date)
	if err != nil {
		return 0, fmt.Errorf("adding purchase: %w", err)
	}
	return id, nil
}
