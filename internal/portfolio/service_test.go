package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/external"
	"github.com/mtlprog/tracker/internal/ledger"
	"github.com/mtlprog/tracker/internal/store"
)

type mockOracle struct {
	coins     map[string]decimal.Decimal
	gold      map[string]decimal.Decimal
	goldCalls []string
	coinCalls []string
}

func (m *mockOracle) CoinPrice(_ context.Context, symbol string) decimal.Decimal {
	m.coinCalls = append(m.coinCalls, symbol)
	return m.coins[symbol]
}

func (m *mockOracle) GoldPrice(_ context.Context, brand domain.GoldBrand, unit domain.QuantityUnit, side external.Side) decimal.Decimal {
	key := domain.Dimension{Brand: string(brand), Unit: unit}.Key()
	m.goldCalls = append(m.goldCalls, key+":"+string(side))
	return m.gold[key]
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	return ledger.New(store.NewMemoryStore())
}

func add(t *testing.T, l *ledger.Ledger, a domain.Asset, qty, origin, current string) {
	t.Helper()
	if _, err := l.AddPurchase(context.Background(), a, d(qty), d(origin), d(current), time.Time{}); err != nil {
		t.Fatalf("AddPurchase() error: %v", err)
	}
}

func TestRefreshUpdatesHeldAssets(t *testing.T) {
	l := newLedger(t)
	add(t, l, domain.Gold{Brand: domain.BrandSJC, Unit: domain.UnitChi}, "2", "6000000", "6000000")
	add(t, l, domain.Gold{Brand: domain.BrandSJC, Unit: domain.UnitChi}, "1", "6100000", "6100000")
	add(t, l, domain.Gold{Brand: domain.BrandPNJ, Unit: domain.UnitLuong}, "1", "80000000", "80000000")
	add(t, l, domain.Gold{Unit: domain.UnitChi}, "1", "5000000", "5000000")
	add(t, l, domain.Coin{Symbol: "BTC"}, "1", "60000", "60000")
	add(t, l, domain.Property{}, "1", "100", "100")

	oracle := &mockOracle{
		gold:  map[string]decimal.Decimal{"sjc_chi": d("6500000")},
		coins: map[string]decimal.Decimal{"BTC": d("65000")},
	}
	svc := NewService(l, oracle)

	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Requested != 3 || result.Priced != 2 || result.Updated != 3 {
		t.Errorf("result = %+v, want requested 3, priced 2, updated 3", result)
	}
	if len(oracle.goldCalls) != 2 {
		t.Errorf("gold quoted %v, want one call per distinct branded dimension", oracle.goldCalls)
	}
	for _, call := range oracle.goldCalls {
		if call[len(call)-3:] != "buy" {
			t.Errorf("refresh should use buy quotes, got %s", call)
		}
	}

	doc, _ := l.Document(context.Background())
	want := []string{"6500000", "6500000", "80000000", "5000000", "65000", "100"}
	for i, p := range doc.Purchases {
		if !p.CurrentValue.Equal(d(want[i])) {
			t.Errorf("purchase %d current = %s, want %s", i, p.CurrentValue, want[i])
		}
	}
}

func TestRefreshWithoutPricesLeavesLedgerAlone(t *testing.T) {
	l := newLedger(t)
	add(t, l, domain.Coin{Symbol: "ETH"}, "1", "2000", "2100")

	svc := NewService(l, &mockOracle{})
	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Updated != 0 || result.Priced != 0 {
		t.Errorf("result = %+v", result)
	}

	doc, _ := l.Document(context.Background())
	if !doc.Purchases[0].CurrentValue.Equal(d("2100")) {
		t.Errorf("zero quote must not overwrite current value, got %s", doc.Purchases[0].CurrentValue)
	}
}

type brokenLedger struct{}

func (brokenLedger) Document(context.Context) (domain.Document, error) {
	return domain.Document{}, errors.New("store unavailable")
}

func (brokenLedger) AddPurchase(context.Context, domain.Asset, decimal.Decimal, decimal.Decimal, decimal.Decimal, time.Time) (domain.EntryID, error) {
	return 0, errors.New("store unavailable")
}

func (brokenLedger) RefreshCurrentValues(context.Context, domain.PriceUpdates) (int, error) {
	return 0, errors.New("store unavailable")
}

func TestRefreshLedgerError(t *testing.T) {
	svc := NewService(brokenLedger{}, &mockOracle{})
	if _, err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestAddPurchaseQuotesMissingCurrentValue(t *testing.T) {
	tests := []struct {
		name    string
		asset   domain.Asset
		current decimal.NullDecimal
		want    string
	}{
		{
			name:  "branded gold is quoted",
			asset: domain.Gold{Brand: domain.BrandSJC, Unit: domain.UnitLuong},
			want:  "84000000",
		},
		{
			name:  "coin is quoted",
			asset: domain.Coin{Symbol: "BTC"},
			want:  "65000",
		},
		{
			name:  "unbranded gold falls back to origin",
			asset: domain.Gold{Unit: domain.UnitChi},
			want:  "1000",
		},
		{
			name:  "unquoted coin falls back to origin",
			asset: domain.Coin{Symbol: "NOPE"},
			want:  "1000",
		},
		{
			name:  "property falls back to origin",
			asset: domain.Property{},
			want:  "1000",
		},
		{
			name:    "explicit value wins",
			asset:   domain.Coin{Symbol: "BTC"},
			current: decimal.NewNullDecimal(d("1234")),
			want:    "1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)
			oracle := &mockOracle{
				gold:  map[string]decimal.Decimal{"sjc_luong": d("84000000")},
				coins: map[string]decimal.Decimal{"BTC": d("65000")},
			}
			svc := NewService(l, oracle)

			_, err := svc.AddPurchase(context.Background(), PurchaseRequest{
				Asset:        tt.asset,
				Quantity:     d("1"),
				OriginValue:  d("1000"),
				CurrentValue: tt.current,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			doc, _ := l.Document(context.Background())
			if got := doc.Purchases[0].CurrentValue; !got.Equal(d(tt.want)) {
				t.Errorf("current value = %s, want %s", got, tt.want)
			}
		})
	}
}
