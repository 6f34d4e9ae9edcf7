package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func sampleDocument() Document {
	date := time.Date(2025, 3, 1, 8, 30, 0, 123_000_000, time.UTC)
	return Document{
		Purchases: []PurchaseEntry{
			{
				ID:           1740817800123,
				Asset:        Gold{Brand: BrandSJC, Unit: UnitChi},
				Quantity:     decimal.NewFromInt(2),
				OriginValue:  decimal.NewFromInt(6_000_000),
				CurrentValue: decimal.NewFromInt(6_200_000),
				Date:         date,
			},
			{
				ID:           1740817800124,
				Asset:        Property{},
				Quantity:     decimal.NewFromInt(1),
				OriginValue:  decimal.NewFromInt(2_000_000_000),
				CurrentValue: decimal.NewFromInt(2_100_000_000),
				Date:         date,
			},
		},
		Sales: []SaleEntry{
			{
				ID:        1740817800200,
				Asset:     Gold{Unit: UnitChi},
				Quantity:  decimal.NewFromInt(1),
				SellPrice: decimal.NewFromInt(6_300_000),
				Date:      date,
			},
		},
	}
}

func TestPurchaseEntryProfit(t *testing.T) {
	p := PurchaseEntry{
		Quantity:     decimal.NewFromFloat(1.5),
		OriginValue:  decimal.NewFromInt(100),
		CurrentValue: decimal.NewFromInt(80),
	}
	if got := p.Profit(); !got.Equal(decimal.NewFromInt(-30)) {
		t.Errorf("Profit() = %s, want -30", got)
	}
}

func TestPurchaseEntryWireFormat(t *testing.T) {
	doc := sampleDocument()
	data, err := json.Marshal(doc.Purchases[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := map[string]any{
		"type":         "gold",
		"brand":        "sjc",
		"unit":         "chi",
		"quantity":     float64(2),
		"originValue":  float64(6_000_000),
		"currentValue": float64(6_200_000),
		"profit":       float64(400_000),
		"date":         "2025-03-01T08:30:00.123Z",
	}
	for key, want := range checks {
		if raw[key] != want {
			t.Errorf("%s = %#v, want %#v", key, raw[key], want)
		}
	}
}

func TestPropertyWireHasNullBrandAndNoUnit(t *testing.T) {
	data, err := json.Marshal(sampleDocument().Purchases[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(data, []byte(`"brand":null`)) {
		t.Errorf("expected null brand in %s", data)
	}
	if bytes.Contains(data, []byte(`"unit"`)) {
		t.Errorf("unexpected unit in %s", data)
	}
	if !bytes.Contains(data, []byte(`"type":"house"`)) {
		t.Errorf("expected house type in %s", data)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	first, err := EncodeDocument(sampleDocument())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := DecodeDocument(first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := EncodeDocument(decoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("round trip changed document:\n%s\n---\n%s", first, second)
	}
}

func TestEmptyDocumentEncodesEmptyArrays(t *testing.T) {
	data, err := json.Marshal(Document{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"resources":[],"sells":[]}` {
		t.Errorf("empty document = %s", data)
	}
}

func TestDecodeDocumentLegacyPayload(t *testing.T) {
	// Older exports have no sells key, no unit field and may carry a null profit.
	payload := `{
		"resources": [
			{"id": 1700000000000, "type": "coin", "quantity": 0.5, "originValue": 60000,
			 "currentValue": 65000, "brand": "BTC", "date": "2024-01-01T00:00:00.000Z", "profit": null},
			{"id": 1700000000001, "type": "gold", "quantity": "3", "originValue": 7000000,
			 "currentValue": null, "brand": "doji", "date": "2024-01-01T00:00:00.000Z", "profit": 1}
		]
	}`

	doc, err := DecodeDocument([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Purchases) != 2 || len(doc.Sales) != 0 {
		t.Fatalf("got %d purchases, %d sales", len(doc.Purchases), len(doc.Sales))
	}

	coin := doc.Purchases[0]
	if c, ok := coin.Asset.(Coin); !ok || c.Symbol != "BTC" {
		t.Errorf("asset = %#v, want Coin{BTC}", coin.Asset)
	}
	if !coin.Profit().Equal(decimal.NewFromInt(2500)) {
		t.Errorf("profit = %s, want 2500 (re-derived)", coin.Profit())
	}

	gold := doc.Purchases[1]
	if g, ok := gold.Asset.(Gold); !ok || g.Brand != BrandDOJI || g.Unit != "" {
		t.Errorf("asset = %#v, want Gold{doji}", gold.Asset)
	}
	if !gold.CurrentValue.IsZero() {
		t.Errorf("null currentValue = %s, want 0", gold.CurrentValue)
	}
	if !gold.Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("quantity = %s, want 3", gold.Quantity)
	}
}

func TestDecodeDocumentRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "definitely not json"},
		{"empty", ""},
		{"array", `[1, 2]`},
		{"number", `42`},
		{"null", `null`},
		{"truncated", `{"resources": [`},
		{"unknown type", `{"resources": [{"id": 1, "type": "yacht", "quantity": 1}]}`},
		{"resources not array", `{"resources": {"id": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeDocument([]byte(tt.input)); err == nil {
				t.Errorf("DecodeDocument(%q) expected error", tt.input)
			}
		})
	}
}

func TestDecodeDocumentNotObjectSentinel(t *testing.T) {
	_, err := DecodeDocument([]byte(`[]`))
	if !errors.Is(err, ErrNotDocument) {
		t.Errorf("error = %v, want ErrNotDocument", err)
	}
}

func TestEncodeDocumentIsIndented(t *testing.T) {
	data, err := EncodeDocument(sampleDocument())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"resources\": [") {
		t.Errorf("expected two-space indentation, got:\n%s", data)
	}
}

func TestPriceUpdatesSetters(t *testing.T) {
	u := PriceUpdates{}
	u.SetDimension(AssetGold, "sjc_chi", decimal.NewFromInt(7_000_000))
	u.SetFlat(AssetStock, decimal.NewFromInt(50))

	if got := u[AssetGold].ByDimension["sjc_chi"]; !got.Equal(decimal.NewFromInt(7_000_000)) {
		t.Errorf("gold sjc_chi = %s", got)
	}
	if !u[AssetStock].Flat.Valid || !u[AssetStock].Flat.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Errorf("stock flat = %+v", u[AssetStock].Flat)
	}
	if u[AssetGold].Flat.Valid {
		t.Error("gold flat should be unset")
	}
}
