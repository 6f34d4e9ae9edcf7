package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	StorePath   string `env:"STORE_PATH" envDefault:"data"`
	DatabaseURL string `env:"DATABASE_URL"`
	StoreKey    string `env:"STORE_KEY" envDefault:"resource-tracker-data"`

	BinanceURL           string        `env:"BINANCE_URL" envDefault:"https://api.binance.com"`
	GoldAPIURL           string        `env:"GOLD_API_URL" envDefault:"https://api.vnappmob.com"`
	OracleRetryMax       int           `env:"ORACLE_RETRY_MAX" envDefault:"3"`
	OracleRetryBaseDelay time.Duration `env:"ORACLE_RETRY_BASE_DELAY" envDefault:"2s"`
	OracleRatePerSecond  float64       `env:"ORACLE_RATE_PER_SECOND" envDefault:"5"`
	PriceCacheTTL        time.Duration `env:"PRICE_CACHE_TTL" envDefault:"5m"`
	GoldKeyTTL           time.Duration `env:"GOLD_KEY_TTL" envDefault:"360h"`

	RefreshWorkerInterval time.Duration `env:"REFRESH_WORKER_INTERVAL" envDefault:"1h"`
	ExportWorkerInterval  time.Duration `env:"EXPORT_WORKER_INTERVAL" envDefault:"24h"`

	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	GoogleCredentialsJSON string `env:"GOOGLE_CREDENTIALS_JSON"`
	SpreadsheetID         string `env:"SPREADSHEET_ID"`
	XLSXPath              string `env:"XLSX_PATH"`
}

// Load reads an optional .env file, then parses configuration from the
// environment. Variables already set in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
		slog.Debug("loaded env file", "path", path)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c Config) Validate() error {
	drivers := []string{DriverFile, DriverSQLite, DriverPostgres, DriverMemory}
	if !slices.Contains(drivers, c.StoreDriver) {
		return fmt.Errorf("STORE_DRIVER %q must be one of %v", c.StoreDriver, drivers)
	}
	if c.StoreDriver == DriverPostgres && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for the postgres store")
	}
	if c.RefreshWorkerInterval <= 0 || c.ExportWorkerInterval <= 0 {
		return errors.New("worker intervals must be positive")
	}
	if c.OracleRetryMax < 0 {
		return errors.New("ORACLE_RETRY_MAX must not be negative")
	}
	return nil
}

// SQLitePath is the database file used by the sqlite store.
func (c Config) SQLitePath() string {
	return filepath.Join(c.StorePath, "tracker.db")
}

// SheetsEnabled reports whether Google Sheets export is configured.
func (c Config) SheetsEnabled() bool {
	return c.GoogleCredentialsJSON != "" && c.SpreadsheetID != ""
}
