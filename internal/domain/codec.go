package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotDocument is returned when a payload is not a JSON object.
var ErrNotDocument = errors.New("payload is not a JSON object")

type purchaseWire struct {
	ID           EntryID     `json:"id"`
	Type         string      `json:"type"`
	Quantity     json.Number `json:"quantity"`
	OriginValue  json.Number `json:"originValue"`
	CurrentValue json.Number `json:"currentValue"`
	Brand        *string     `json:"brand"`
	Unit         *string     `json:"unit,omitempty"`
	Date         time.Time   `json:"date"`
	Profit       json.Number `json:"profit"`
}

type saleWire struct {
	ID        EntryID     `json:"id"`
	Type      string      `json:"type"`
	Quantity  json.Number `json:"quantity"`
	SellPrice json.Number `json:"sellPrice"`
	Brand     *string     `json:"brand"`
	Unit      *string     `json:"unit,omitempty"`
	Date      time.Time   `json:"date"`
}

type documentWire struct {
	Resources []PurchaseEntry `json:"resources"`
	Sells     []SaleEntry     `json:"sells"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func wireBrand(a Asset) *string {
	if b := brandOf(a); b != "" {
		return &b
	}
	return nil
}

func wireUnit(a Asset) *string {
	if u := unitOf(a); u != "" {
		s := string(u)
		return &s
	}
	return nil
}

func decodeAsset(typ string, brand, unit *string) (Asset, error) {
	t, err := ParseAssetType(typ)
	if err != nil {
		return nil, err
	}
	var b, u string
	if brand != nil {
		b = *brand
	}
	if unit != nil {
		u = *unit
	}
	qu, err := ParseQuantityUnit(u)
	if err != nil {
		return nil, err
	}
	return NewAsset(t, b, qu)
}

// MarshalJSON writes the entry in the export format, including the derived profit.
func (p PurchaseEntry) MarshalJSON() ([]byte, error) {
	if p.Asset == nil {
		return nil, fmt.Errorf("purchase %d has no asset", p.ID)
	}
	return json.Marshal(purchaseWire{
		ID:           p.ID,
		Type:         string(p.Asset.Type()),
		Quantity:     number(p.Quantity),
		OriginValue:  number(p.OriginValue),
		CurrentValue: number(p.CurrentValue),
		Brand:        wireBrand(p.Asset),
		Unit:         wireUnit(p.Asset),
		Date:         p.Date,
		Profit:       number(p.Profit()),
	})
}

// UnmarshalJSON reads an entry in the export format. The stored profit is
// ignored and re-derived; missing or null numbers read as zero.
func (p *PurchaseEntry) UnmarshalJSON(data []byte) error {
	var w purchaseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	asset, err := decodeAsset(w.Type, w.Brand, w.Unit)
	if err != nil {
		return fmt.Errorf("purchase %d: %w", w.ID, err)
	}
	*p = PurchaseEntry{
		ID:           w.ID,
		Asset:        asset,
		Quantity:     SafeParse(w.Quantity.String()),
		OriginValue:  SafeParse(w.OriginValue.String()),
		CurrentValue: SafeParse(w.CurrentValue.String()),
		Date:         w.Date,
	}
	return nil
}

// MarshalJSON writes the sale in the export format.
func (s SaleEntry) MarshalJSON() ([]byte, error) {
	if s.Asset == nil {
		return nil, fmt.Errorf("sale %d has no asset", s.ID)
	}
	return json.Marshal(saleWire{
		ID:        s.ID,
		Type:      string(s.Asset.Type()),
		Quantity:  number(s.Quantity),
		SellPrice: number(s.SellPrice),
		Brand:     wireBrand(s.Asset),
		Unit:      wireUnit(s.Asset),
		Date:      s.Date,
	})
}

// UnmarshalJSON reads a sale in the export format.
func (s *SaleEntry) UnmarshalJSON(data []byte) error {
	var w saleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	asset, err := decodeAsset(w.Type, w.Brand, w.Unit)
	if err != nil {
		return fmt.Errorf("sale %d: %w", w.ID, err)
	}
	*s = SaleEntry{
		ID:        w.ID,
		Asset:     asset,
		Quantity:  SafeParse(w.Quantity.String()),
		SellPrice: SafeParse(w.SellPrice.String()),
		Date:      w.Date,
	}
	return nil
}

// MarshalJSON writes {"resources": [...], "sells": [...]}. Empty sequences are written as [].
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentWire{
		Resources: orEmpty(d.Purchases),
		Sells:     orEmpty(d.Sales),
	})
}

// UnmarshalJSON reads {"resources": [...], "sells": [...]}. Either key may be absent.
func (d *Document) UnmarshalJSON(data []byte) error {
	var w documentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Document{Purchases: w.Resources, Sales: w.Sells}
	return nil
}

// DecodeDocument parses and validates a serialized document.
func DecodeDocument(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Document{}, ErrNotDocument
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Document{}, fmt.Errorf("parsing document: %w", err)
	}
	return doc, nil
}

// EncodeDocument serializes a document as indented, diffable JSON.
func EncodeDocument(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return data, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
