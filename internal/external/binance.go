package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/mtlprog/tracker/internal/domain"
)

// DefaultBinanceURL is the public Binance REST endpoint.
const DefaultBinanceURL = "https://api.binance.com"

// BinanceClient fetches spot prices quoted in USDT from the Binance API.
type BinanceClient struct {
	baseURL string
	fetch   *fetcher
}

// NewBinanceClient creates a new Binance API client.
func NewBinanceClient(baseURL string, delay time.Duration, maxRetries int, limiter *rate.Limiter) *BinanceClient {
	return &BinanceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetch:   newFetcher("Binance", delay, maxRetries, limiter),
	}
}

// CoinPrice returns the last traded price of symbol against USDT.
func (c *BinanceClient) CoinPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("coin symbol is empty: %w", ErrNoPrice)
	}

	u := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(symbol+"USDT"))
	body, err := c.fetch.get(ctx, u, nil)
	if err != nil {
		return decimal.Zero, err
	}

	// {"symbol":"BTCUSDT","price":"64012.34000000"}
	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return decimal.Zero, fmt.Errorf("parsing Binance response: %w", err)
	}

	price := domain.SafeParse(ticker.Price)
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, ErrNoPrice)
	}
	return price, nil
}
