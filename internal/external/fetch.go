package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoPrice is returned when an oracle answers without a usable price.
var ErrNoPrice = errors.New("no price available")

// StatusError is a non-2xx answer from an upstream API.
type StatusError struct {
	API        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s HTTP %d: %s", e.API, e.StatusCode, e.Body)
}

// NewRateLimiter allows perSecond requests per second. Zero or negative means unlimited.
func NewRateLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// fetcher performs rate-limited GET requests, retrying with exponential
// backoff while the upstream answers 429.
type fetcher struct {
	api        string
	httpClient *http.Client
	limiter    *rate.Limiter
	delay      time.Duration
	maxRetries int
}

func newFetcher(api string, delay time.Duration, maxRetries int, limiter *rate.Limiter) *fetcher {
	if limiter == nil {
		limiter = NewRateLimiter(0)
	}
	return &fetcher{
		api:        api,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		delay:      delay,
		maxRetries: maxRetries,
	}
}

func (f *fetcher) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var lastErr error
	for attempt := range f.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := f.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for %s rate limiter: %w", f.api, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating %s request: %w", f.api, err)
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", f.api, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s response: %w", f.api, err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%s rate limited (attempt %d/%d)", f.api, attempt+1, f.maxRetries+1)
			continue
		}

		return nil, &StatusError{API: f.api, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil, lastErr
}
