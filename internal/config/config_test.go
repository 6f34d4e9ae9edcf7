package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"LOG_LEVEL", "LOG_FORMAT", "STORE_DRIVER", "STORE_PATH", "DATABASE_URL", "STORE_KEY",
	"BINANCE_URL", "GOLD_API_URL", "ORACLE_RETRY_MAX", "ORACLE_RETRY_BASE_DELAY",
	"ORACLE_RATE_PER_SECOND", "PRICE_CACHE_TTL", "GOLD_KEY_TTL",
	"REFRESH_WORKER_INTERVAL", "EXPORT_WORKER_INTERVAL", "HTTP_PORT", "ADMIN_API_KEY",
	"GOOGLE_CREDENTIALS_JSON", "SPREADSHEET_ID", "XLSX_PATH",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.StoreDriver != DriverFile {
		t.Errorf("StoreDriver = %q, want file", cfg.StoreDriver)
	}
	if cfg.StoreKey != "resource-tracker-data" {
		t.Errorf("StoreKey = %q, want default", cfg.StoreKey)
	}
	if cfg.BinanceURL != "https://api.binance.com" {
		t.Errorf("BinanceURL = %q, want default", cfg.BinanceURL)
	}
	if cfg.GoldAPIURL != "https://api.vnappmob.com" {
		t.Errorf("GoldAPIURL = %q, want default", cfg.GoldAPIURL)
	}
	if cfg.GoldKeyTTL != 15*24*time.Hour {
		t.Errorf("GoldKeyTTL = %v, want 15 days", cfg.GoldKeyTTL)
	}
	if cfg.OracleRetryMax != 3 {
		t.Errorf("OracleRetryMax = %d, want 3", cfg.OracleRetryMax)
	}
	if cfg.OracleRetryBaseDelay != 2*time.Second {
		t.Errorf("OracleRetryBaseDelay = %v, want 2s", cfg.OracleRetryBaseDelay)
	}
	if cfg.RefreshWorkerInterval != time.Hour {
		t.Errorf("RefreshWorkerInterval = %v, want 1h", cfg.RefreshWorkerInterval)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.SheetsEnabled() {
		t.Error("SheetsEnabled() = true without credentials")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/testdb")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("ORACLE_RETRY_MAX", "10")
	t.Setenv("ORACLE_RETRY_BASE_DELAY", "5s")
	t.Setenv("ORACLE_RATE_PER_SECOND", "0.5")

	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://localhost/testdb" {
		t.Errorf("DatabaseURL = %q, want override", cfg.DatabaseURL)
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if cfg.OracleRetryMax != 10 {
		t.Errorf("OracleRetryMax = %d, want 10", cfg.OracleRetryMax)
	}
	if cfg.OracleRetryBaseDelay != 5*time.Second {
		t.Errorf("OracleRetryBaseDelay = %v, want 5s", cfg.OracleRetryBaseDelay)
	}
	if cfg.OracleRatePerSecond != 0.5 {
		t.Errorf("OracleRatePerSecond = %v, want 0.5", cfg.OracleRatePerSecond)
	}
}

func TestLoadInvalidEnvFails(t *testing.T) {
	tests := map[string]string{
		"ORACLE_RETRY_MAX":        "not-a-number",
		"ORACLE_RETRY_BASE_DELAY": "invalid-duration",
		"STORE_DRIVER":            "mongodb",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			if _, err := Load(noEnvFile(t)); err == nil {
				t.Errorf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoadPostgresRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")

	if _, err := Load(noEnvFile(t)); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	content := "STORE_DRIVER=sqlite\nSTORE_PATH=/var/lib/tracker\nHTTP_PORT=7000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	t.Setenv("HTTP_PORT", "7777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.StoreDriver != DriverSQLite {
		t.Errorf("StoreDriver = %q, want sqlite from file", cfg.StoreDriver)
	}
	if cfg.SQLitePath() != filepath.Join("/var/lib/tracker", "tracker.db") {
		t.Errorf("SQLitePath() = %q", cfg.SQLitePath())
	}
	if cfg.HTTPPort != "7777" {
		t.Errorf("HTTPPort = %q, environment should win over the file", cfg.HTTPPort)
	}
}
