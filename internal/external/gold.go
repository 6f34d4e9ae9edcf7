package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/store"
)

const (
	// DefaultGoldURL is the public vnappmob endpoint.
	DefaultGoldURL = "https://api.vnappmob.com"

	// GoldKeyStoreKey is the blob store key caching the issued API key.
	GoldKeyStoreKey = "gold-api-data"

	// DefaultGoldKeyTTL is how long an issued key is reused.
	DefaultGoldKeyTTL = 15 * 24 * time.Hour
)

// Side is the dealer's side of a gold quote.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// goldKey is persisted as {"key": "...", "expiry": <unix ms>}.
type goldKey struct {
	Key    string `json:"key"`
	Expiry int64  `json:"expiry"`
}

// GoldClient fetches Vietnamese gold prices. The bearer key is requested on
// demand and cached in the blob store until it expires.
type GoldClient struct {
	baseURL string
	fetch   *fetcher
	store   store.BlobStore
	keyTTL  time.Duration
	now     func() time.Time

	mu sync.Mutex
}

// NewGoldClient creates a new gold price client caching its key in s.
func NewGoldClient(baseURL string, s store.BlobStore, keyTTL, delay time.Duration, maxRetries int, limiter *rate.Limiter) *GoldClient {
	if keyTTL <= 0 {
		keyTTL = DefaultGoldKeyTTL
	}
	return &GoldClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetch:   newFetcher("Gold API", delay, maxRetries, limiter),
		store:   s,
		keyTTL:  keyTTL,
		now:     time.Now,
	}
}

func (c *GoldClient) apiKey(ctx context.Context, renew bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !renew {
		data, err := c.store.Get(ctx, GoldKeyStoreKey)
		switch {
		case err == nil:
			var cached goldKey
			if json.Unmarshal(data, &cached) == nil && cached.Key != "" && c.now().UnixMilli() < cached.Expiry {
				return cached.Key, nil
			}
		case !errors.Is(err, store.ErrNotFound):
			return "", fmt.Errorf("reading cached gold key: %w", err)
		}
	}

	body, err := c.fetch.get(ctx, c.baseURL+"/api/request_api_key?scope=gold", nil)
	if err != nil {
		return "", fmt.Errorf("requesting gold key: %w", err)
	}
	var issued struct {
		Results string `json:"results"`
	}
	if err := json.Unmarshal(body, &issued); err != nil {
		return "", fmt.Errorf("parsing gold key response: %w", err)
	}
	if issued.Results == "" {
		return "", errors.New("gold key response has no key")
	}

	data, err := json.Marshal(goldKey{Key: issued.Results, Expiry: c.now().Add(c.keyTTL).UnixMilli()})
	if err != nil {
		return "", fmt.Errorf("encoding gold key: %w", err)
	}
	if err := c.store.Set(ctx, GoldKeyStoreKey, data); err != nil {
		return "", fmt.Errorf("caching gold key: %w", err)
	}

	slog.Info("GoldClient: issued new API key", "expires_in", c.keyTTL)
	return issued.Results, nil
}

// GoldPrice returns the latest quote for brand on the given side. The unit
// selects between the chi and luong quote and only matters for SJC.
func (c *GoldClient) GoldPrice(ctx context.Context, brand domain.GoldBrand, unit domain.QuantityUnit, side Side) (decimal.Decimal, error) {
	if brand == "" {
		return decimal.Zero, fmt.Errorf("gold brand is empty: %w", ErrNoPrice)
	}

	key, err := c.apiKey(ctx, false)
	if err != nil {
		return decimal.Zero, err
	}

	body, err := c.fetchBrand(ctx, brand, key)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		slog.Warn("GoldClient: key rejected, renewing", "brand", brand)
		if key, err = c.apiKey(ctx, true); err != nil {
			return decimal.Zero, err
		}
		body, err = c.fetchBrand(ctx, brand, key)
	}
	if err != nil {
		return decimal.Zero, err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return decimal.Zero, fmt.Errorf("parsing gold response: %w", err)
	}

	for _, field := range quoteFields(brand, unit, side) {
		if price := lookupPrice(doc, "$.results[0]."+field); price.IsPositive() {
			return price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%s %s %s: %w", brand, unit, side, ErrNoPrice)
}

func (c *GoldClient) fetchBrand(ctx context.Context, brand domain.GoldBrand, key string) ([]byte, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+key)
	return c.fetch.get(ctx, fmt.Sprintf("%s/api/v2/gold/%s", c.baseURL, brand), header)
}

// quoteFields lists the response fields holding the price, in order of preference.
func quoteFields(brand domain.GoldBrand, unit domain.QuantityUnit, side Side) []string {
	s := string(side)
	switch {
	case brand == domain.BrandPNJ:
		return []string{s + "_nhan_24k"}
	case brand == domain.BrandSJC && unit == domain.UnitChi:
		return []string{s + "_1c"}
	default:
		return []string{s + "_1l", s + "_hcm"}
	}
}

func lookupPrice(doc any, path string) decimal.Decimal {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return decimal.Zero
	}
	// jsonpath may wrap a single match in a list.
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return decimal.Zero
		}
		v = list[0]
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case string:
		return domain.SafeParse(n)
	}
	return decimal.Zero
}
