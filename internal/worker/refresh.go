package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/tracker/internal/portfolio"
)

// Refresher defines the interface for refreshing ledger prices.
type Refresher interface {
	Refresh(ctx context.Context) (portfolio.RefreshResult, error)
}

// RefreshWorker periodically re-prices the ledger from the oracles.
type RefreshWorker struct {
	refresher Refresher
	interval  time.Duration
}

// NewRefreshWorker creates a new RefreshWorker.
func NewRefreshWorker(refresher Refresher, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{
		refresher: refresher,
		interval:  interval,
	}
}

func (w *RefreshWorker) refresh(ctx context.Context, phase string) {
	result, err := w.refresher.Refresh(ctx)
	if err != nil {
		slog.Error("RefreshWorker: "+phase+" refresh failed", "error", err)
		return
	}
	slog.Info("RefreshWorker: "+phase+" refresh completed",
		"requested", result.Requested, "priced", result.Priced, "updated", result.Updated)
}

// Run starts the refresh loop. It blocks until the context is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) {
	slog.Info("RefreshWorker: starting", "interval", w.interval)

	// Refresh immediately on startup
	w.refresh(ctx, "initial")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("RefreshWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx, "periodic")
		}
	}
}
