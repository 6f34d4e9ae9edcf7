package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ErrUnknownAssetType is returned when an asset type string matches no known type.
var ErrUnknownAssetType = errors.New("unknown asset type")

// AssetType classifies tracked resources.
type AssetType string

const (
	// AssetProperty is spelled "house" on the wire for compatibility with existing exports.
	AssetProperty AssetType = "house"
	AssetGold     AssetType = "gold"
	AssetCoin     AssetType = "coin"
	AssetStock    AssetType = "stock"
)

// AssetTypes returns all asset types in display order.
func AssetTypes() []AssetType {
	return []AssetType{AssetProperty, AssetGold, AssetCoin, AssetStock}
}

// ParseAssetType parses a case-insensitive asset type. "property" is accepted as an alias of "house".
func ParseAssetType(s string) (AssetType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "house", "property":
		return AssetProperty, nil
	case "gold":
		return AssetGold, nil
	case "coin":
		return AssetCoin, nil
	case "stock":
		return AssetStock, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAssetType, s)
}

// Dimensioned reports whether entries of this type are scoped by brand or unit.
func (t AssetType) Dimensioned() bool {
	return t == AssetGold || t == AssetCoin
}

// GoldBrand identifies a Vietnamese gold dealer.
type GoldBrand string

const (
	BrandSJC  GoldBrand = "sjc"
	BrandDOJI GoldBrand = "doji"
	BrandPNJ  GoldBrand = "pnj"
)

// GoldBrands returns the brands quoted by the gold oracle.
func GoldBrands() []GoldBrand {
	return []GoldBrand{BrandSJC, BrandDOJI, BrandPNJ}
}

// QuantityUnit is a gold weight denomination. Units are independent tags, never converted.
type QuantityUnit string

const (
	UnitChi   QuantityUnit = "chi"
	UnitLuong QuantityUnit = "luong"
)

// ParseQuantityUnit parses a unit tag. An empty string yields an empty unit.
func ParseQuantityUnit(s string) (QuantityUnit, error) {
	switch u := QuantityUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case "", UnitChi, UnitLuong:
		return u, nil
	}
	return "", fmt.Errorf("unknown quantity unit %q", s)
}

// Dimension scopes remaining-quantity and price lookups for gold and coin entries.
type Dimension struct {
	Brand string
	Unit  QuantityUnit
}

// IsZero reports whether the dimension carries neither brand nor unit.
func (d Dimension) IsZero() bool {
	return d.Brand == "" && d.Unit == ""
}

// Key returns the composite dimension key: "{brand}_{unit}" with empty parts omitted.
func (d Dimension) Key() string {
	parts := lo.Compact([]string{d.Brand, string(d.Unit)})
	return strings.Join(parts, "_")
}

// Asset is a tagged union over asset types. Each variant carries only the
// fields that make sense for its type.
type Asset interface {
	Type() AssetType
	Dimension() Dimension
	isAsset()
}

// Property is real estate. It has no brand or unit.
type Property struct{}

// Stock is an equity holding. It has no brand or unit.
type Stock struct{}

// Coin is a cryptocurrency identified by its ticker.
type Coin struct {
	Symbol string
}

// Gold is physical gold of an optional brand, counted in Unit.
type Gold struct {
	Brand GoldBrand
	Unit  QuantityUnit
}

func (Property) Type() AssetType { return AssetProperty }
func (Stock) Type() AssetType    { return AssetStock }
func (Coin) Type() AssetType     { return AssetCoin }
func (Gold) Type() AssetType     { return AssetGold }

func (Property) Dimension() Dimension { return Dimension{} }
func (Stock) Dimension() Dimension    { return Dimension{} }
func (c Coin) Dimension() Dimension   { return Dimension{Brand: c.Symbol} }
func (g Gold) Dimension() Dimension   { return Dimension{Brand: string(g.Brand), Unit: g.Unit} }

func (Property) isAsset() {}
func (Stock) isAsset()    {}
func (Coin) isAsset()     {}
func (Gold) isAsset()     {}

// NewAsset builds the variant for t. Brand and unit are dropped for variants that do not carry them.
func NewAsset(t AssetType, brand string, unit QuantityUnit) (Asset, error) {
	brand = strings.TrimSpace(brand)
	switch t {
	case AssetProperty:
		return Property{}, nil
	case AssetStock:
		return Stock{}, nil
	case AssetCoin:
		return Coin{Symbol: brand}, nil
	case AssetGold:
		return Gold{Brand: GoldBrand(strings.ToLower(brand)), Unit: unit}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAssetType, t)
}

// brandOf returns the brand of an asset, empty for variants without one.
func brandOf(a Asset) string {
	return a.Dimension().Brand
}

// unitOf returns the unit of an asset, empty for variants without one.
func unitOf(a Asset) QuantityUnit {
	if g, ok := a.(Gold); ok {
		return g.Unit
	}
	return ""
}
