package external

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tracker/internal/domain"
)

// CoinPricer quotes a cryptocurrency.
type CoinPricer interface {
	CoinPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// GoldPricer quotes physical gold.
type GoldPricer interface {
	GoldPrice(ctx context.Context, brand domain.GoldBrand, unit domain.QuantityUnit, side Side) (decimal.Decimal, error)
}

// Oracle is the price source seen by the rest of the application. Upstream
// failures are logged and reported as a zero price, never as an error.
type Oracle struct {
	coins CoinPricer
	gold  GoldPricer
	cache *PriceCache
	now   func() time.Time
}

// NewOracle creates a new Oracle. cache may be nil.
func NewOracle(coins CoinPricer, gold GoldPricer, cache *PriceCache) *Oracle {
	return &Oracle{coins: coins, gold: gold, cache: cache, now: time.Now}
}

// CoinPrice returns the price of symbol, or zero when it cannot be fetched.
func (o *Oracle) CoinPrice(ctx context.Context, symbol string) decimal.Decimal {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return o.cached(ctx, "coin:"+symbol, func(ctx context.Context) (decimal.Decimal, error) {
		return o.coins.CoinPrice(ctx, symbol)
	})
}

// GoldPrice returns the quote for brand and unit, or zero when it cannot be fetched.
func (o *Oracle) GoldPrice(ctx context.Context, brand domain.GoldBrand, unit domain.QuantityUnit, side Side) decimal.Decimal {
	key := fmt.Sprintf("gold:%s:%s:%s", brand, unit, side)
	return o.cached(ctx, key, func(ctx context.Context) (decimal.Decimal, error) {
		return o.gold.GoldPrice(ctx, brand, unit, side)
	})
}

func (o *Oracle) cached(ctx context.Context, key string, fetch func(context.Context) (decimal.Decimal, error)) decimal.Decimal {
	if price, ok := o.cache.Get(key); ok {
		return price
	}

	price, err := fetch(ctx)
	if err != nil {
		slog.Warn("Oracle: price unavailable", "key", key, "error", err)
		return decimal.Zero
	}

	o.cache.Set(key, price)
	return price
}

// GoldQuote is a buy/sell pair for one brand and unit.
type GoldQuote struct {
	Brand domain.GoldBrand    `json:"brand"`
	Unit  domain.QuantityUnit `json:"unit"`
	Buy   decimal.Decimal     `json:"buy"`
	Sell  decimal.Decimal     `json:"sell"`
}

// GoldBoard is the current price board of the tracked dealers.
type GoldBoard struct {
	Quotes    []GoldQuote `json:"quotes"`
	FetchedAt time.Time   `json:"fetchedAt"`
}

var boardRows = []struct {
	brand domain.GoldBrand
	unit  domain.QuantityUnit
}{
	{domain.BrandSJC, domain.UnitChi},
	{domain.BrandSJC, domain.UnitLuong},
	{domain.BrandDOJI, domain.UnitLuong},
	{domain.BrandPNJ, domain.UnitLuong},
}

// GoldBoard collects buy and sell quotes for SJC (chi and luong), DOJI and PNJ.
// Missing quotes are zero.
func (o *Oracle) GoldBoard(ctx context.Context) GoldBoard {
	board := GoldBoard{FetchedAt: o.now().UTC()}
	for _, row := range boardRows {
		board.Quotes = append(board.Quotes, GoldQuote{
			Brand: row.brand,
			Unit:  row.unit,
			Buy:   o.GoldPrice(ctx, row.brand, row.unit, SideBuy),
			Sell:  o.GoldPrice(ctx, row.brand, row.unit, SideSell),
		})
	}
	return board
}
