package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/mtlprog/tracker/internal/config"
	"github.com/mtlprog/tracker/internal/database"
	"github.com/mtlprog/tracker/internal/export"
	"github.com/mtlprog/tracker/internal/external"
	"github.com/mtlprog/tracker/internal/ledger"
	"github.com/mtlprog/tracker/internal/portfolio"
	"github.com/mtlprog/tracker/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// app holds the wired services shared by every command.
type app struct {
	cfg       config.Config
	blobs     store.BlobStore
	ledger    *ledger.Ledger
	oracle    *external.Oracle
	portfolio *portfolio.Service
	closers   []func()
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}

	blobs, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.blobs = blobs
	a.closers = append(a.closers, closeStore)

	a.ledger = ledger.New(blobs, ledger.WithKey(cfg.StoreKey))

	limiter := external.NewRateLimiter(cfg.OracleRatePerSecond)
	binance := external.NewBinanceClient(cfg.BinanceURL, cfg.OracleRetryBaseDelay, cfg.OracleRetryMax, limiter)
	gold := external.NewGoldClient(cfg.GoldAPIURL, blobs, cfg.GoldKeyTTL, cfg.OracleRetryBaseDelay, cfg.OracleRetryMax, limiter)
	a.oracle = external.NewOracle(binance, gold, external.NewPriceCache(cfg.PriceCacheTTL))

	a.portfolio = portfolio.NewService(a.ledger, a.oracle)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// exportWriters returns the sheet writers enabled by configuration.
func (a *app) exportWriters(ctx context.Context) ([]export.SheetWriter, error) {
	var writers []export.SheetWriter
	if a.cfg.XLSXPath != "" {
		writers = append(writers, export.NewXLSXWriter(a.cfg.XLSXPath))
	}
	if a.cfg.SheetsEnabled() {
		sheets, err := export.NewSheetsWriter(ctx, a.cfg.SpreadsheetID, a.cfg.GoogleCredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("creating sheets writer: %w", err)
		}
		writers = append(writers, sheets)
	}
	return writers, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.BlobStore, func(), error) {
	noop := func() {}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		slog.Warn("memory store selected, data is lost on exit")
		return store.NewMemoryStore(), noop, nil

	case config.DriverFile:
		s, err := store.NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.StorePath, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating store directory: %w", err)
		}
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQLiteStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() { db.Close() }, nil

	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		return store.NewPgStore(pool), pool.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
