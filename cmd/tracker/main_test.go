package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/tracker/internal/domain"
)

// runCLI runs one command against a file store rooted in dir.
func runCLI(t *testing.T, dir string, args ...string) string {
	t.Helper()
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("STORE_PATH", dir)
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	argv := append([]string{"tracker", "--env-file", filepath.Join(dir, "missing.env")}, args...)
	if err := newCLI(&out).RunContext(context.Background(), argv); err != nil {
		t.Fatalf("tracker %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestAddSellTotals(t *testing.T) {
	dir := t.TempDir()

	runCLI(t, dir, "add", "--type", "gold", "--brand", "sjc", "--unit", "chi",
		"--quantity", "2", "--origin", "6000000", "--current", "6200000", "--date", "2025-02-01")
	runCLI(t, dir, "sell", "--type", "gold", "--brand", "sjc", "--unit", "chi",
		"--quantity", "1", "--price", "6300000")

	var totals map[domain.AssetType]domain.Totals
	if err := json.Unmarshal([]byte(runCLI(t, dir, "totals")), &totals); err != nil {
		t.Fatalf("decoding totals: %v", err)
	}
	gold := totals[domain.AssetGold]
	if !gold.Quantity.Equal(decimal.NewFromInt(1)) || !gold.CurrentValue.Equal(decimal.NewFromInt(6_100_000)) {
		t.Errorf("gold totals = %+v", gold)
	}

	var remaining map[string]decimal.Decimal
	if err := json.Unmarshal([]byte(runCLI(t, dir, "remaining", "gold")), &remaining); err != nil {
		t.Fatalf("decoding remaining: %v", err)
	}
	if !remaining["sjc_chi"].Equal(decimal.NewFromInt(1)) {
		t.Errorf("remaining = %v", remaining)
	}
}

func TestExportImport(t *testing.T) {
	src := t.TempDir()
	runCLI(t, src, "add", "--type", "stock", "--quantity", "10", "--origin", "1000", "--current", "1100")

	file := filepath.Join(t.TempDir(), "ledger.json")
	runCLI(t, src, "export", "--out", file)

	dst := t.TempDir()
	runCLI(t, dst, "import", "--mode", "merge", file)

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if got := strings.TrimSpace(runCLI(t, dst, "export")); got != string(data) {
		t.Errorf("imported ledger differs:\n%s\nvs\n%s", got, data)
	}
}

func TestSummaryRaw(t *testing.T) {
	dir := t.TempDir()
	runCLI(t, dir, "add", "--type", "house", "--quantity", "1", "--origin", "2000000000", "--current", "2500000000")

	out := runCLI(t, dir, "summary", "--raw")
	if !strings.Contains(out, "Property") {
		t.Errorf("summary missing property row:\n%s", out)
	}
}

func TestXLSXCommand(t *testing.T) {
	dir := t.TempDir()
	runCLI(t, dir, "add", "--type", "coin", "--brand", "BTC", "--quantity", "0.5", "--origin", "60000", "--current", "64000")

	path := filepath.Join(dir, "out.xlsx")
	runCLI(t, dir, "xlsx", "--out", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()
	if len(f.GetSheetList()) != 4 {
		t.Errorf("sheets = %v", f.GetSheetList())
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"2025-02-01", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{"01/02/2025", time.Time{}, true},
	}

	for _, tt := range tests {
		got, err := parseDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
