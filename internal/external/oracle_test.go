package external

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tracker/internal/domain"
)

type mockCoins struct {
	prices map[string]decimal.Decimal
	calls  int
}

func (m *mockCoins) CoinPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	m.calls++
	if p, ok := m.prices[symbol]; ok {
		return p, nil
	}
	return decimal.Zero, ErrNoPrice
}

type mockGold struct {
	err   error
	calls int
}

func (m *mockGold) GoldPrice(_ context.Context, brand domain.GoldBrand, unit domain.QuantityUnit, side Side) (decimal.Decimal, error) {
	m.calls++
	if m.err != nil {
		return decimal.Zero, m.err
	}
	base := map[domain.GoldBrand]int64{domain.BrandSJC: 84_000_000, domain.BrandDOJI: 83_000_000, domain.BrandPNJ: 82_000_000}[brand]
	if unit == domain.UnitChi {
		base /= 10
	}
	if side == SideSell {
		base += 1_000_000
	}
	return decimal.NewFromInt(base), nil
}

func TestOracleCoinPrice(t *testing.T) {
	coins := &mockCoins{prices: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(64000)}}
	oracle := NewOracle(coins, &mockGold{}, nil)

	if got := oracle.CoinPrice(context.Background(), "btc"); !got.Equal(decimal.NewFromInt(64000)) {
		t.Errorf("CoinPrice(btc) = %s, want 64000", got)
	}
	if got := oracle.CoinPrice(context.Background(), "DOGE"); !got.IsZero() {
		t.Errorf("failed lookup should yield zero, got %s", got)
	}
}

func TestOracleSwallowsGoldErrors(t *testing.T) {
	oracle := NewOracle(&mockCoins{}, &mockGold{err: errors.New("upstream down")}, nil)

	if got := oracle.GoldPrice(context.Background(), domain.BrandSJC, domain.UnitChi, SideBuy); !got.IsZero() {
		t.Errorf("GoldPrice() = %s, want 0", got)
	}
}

func TestOracleUsesCache(t *testing.T) {
	coins := &mockCoins{prices: map[string]decimal.Decimal{"ETH": decimal.NewFromInt(2500)}}
	oracle := NewOracle(coins, &mockGold{}, NewPriceCache(time.Minute))

	for range 3 {
		oracle.CoinPrice(context.Background(), "ETH")
	}
	if coins.calls != 1 {
		t.Errorf("upstream called %d times, want 1", coins.calls)
	}
}

func TestOracleDoesNotCacheFailures(t *testing.T) {
	coins := &mockCoins{prices: map[string]decimal.Decimal{}}
	oracle := NewOracle(coins, &mockGold{}, NewPriceCache(time.Minute))

	oracle.CoinPrice(context.Background(), "ETH")
	oracle.CoinPrice(context.Background(), "ETH")
	if coins.calls != 2 {
		t.Errorf("upstream called %d times, want 2", coins.calls)
	}
}

func TestGoldBoard(t *testing.T) {
	gold := &mockGold{}
	oracle := NewOracle(&mockCoins{}, gold, nil)
	oracle.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	board := oracle.GoldBoard(context.Background())

	if len(board.Quotes) != 4 {
		t.Fatalf("quotes = %d, want 4", len(board.Quotes))
	}
	want := []struct {
		brand     domain.GoldBrand
		unit      domain.QuantityUnit
		buy, sell int64
	}{
		{domain.BrandSJC, domain.UnitChi, 8_400_000, 9_400_000},
		{domain.BrandSJC, domain.UnitLuong, 84_000_000, 85_000_000},
		{domain.BrandDOJI, domain.UnitLuong, 83_000_000, 84_000_000},
		{domain.BrandPNJ, domain.UnitLuong, 82_000_000, 83_000_000},
	}
	for i, w := range want {
		q := board.Quotes[i]
		if q.Brand != w.brand || q.Unit != w.unit {
			t.Errorf("row %d = %s/%s, want %s/%s", i, q.Brand, q.Unit, w.brand, w.unit)
		}
		if !q.Buy.Equal(decimal.NewFromInt(w.buy)) || !q.Sell.Equal(decimal.NewFromInt(w.sell)) {
			t.Errorf("row %d = %s/%s, want %d/%d", i, q.Buy, q.Sell, w.buy, w.sell)
		}
	}
	if gold.calls != 8 {
		t.Errorf("upstream called %d times, want 8", gold.calls)
	}
	if board.FetchedAt.Hour() != 12 {
		t.Errorf("FetchedAt = %v", board.FetchedAt)
	}
}

func TestPriceCacheDisabled(t *testing.T) {
	c := NewPriceCache(0)
	c.Set("k", decimal.NewFromInt(1))
	if _, ok := c.Get("k"); ok {
		t.Error("disabled cache returned a value")
	}

	var nilCache *PriceCache
	nilCache.Set("k", decimal.NewFromInt(1))
	if _, ok := nilCache.Get("k"); ok {
		t.Error("nil cache returned a value")
	}
}
