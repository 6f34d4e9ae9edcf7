package external

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// PriceCache keeps recent oracle prices for a fixed TTL.
type PriceCache struct {
	c *cache.Cache
}

// NewPriceCache creates a cache whose entries expire after ttl. A zero ttl disables caching.
func NewPriceCache(ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		return &PriceCache{}
	}
	return &PriceCache{c: cache.New(ttl, 2*ttl)}
}

func (p *PriceCache) Get(key string) (decimal.Decimal, bool) {
	if p == nil || p.c == nil {
		return decimal.Zero, false
	}
	v, ok := p.c.Get(key)
	if !ok {
		return decimal.Zero, false
	}
	price, ok := v.(decimal.Decimal)
	return price, ok
}

func (p *PriceCache) Set(key string, price decimal.Decimal) {
	if p == nil || p.c == nil {
		return
	}
	p.c.Set(key, price, cache.DefaultExpiration)
}

// Flush drops every cached price.
func (p *PriceCache) Flush() {
	if p == nil || p.c == nil {
		return
	}
	p.c.Flush()
}
