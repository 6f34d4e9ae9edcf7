// Package report renders portfolio summaries as Markdown for the terminal.
package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tracker/internal/domain"
	"github.com/mtlprog/tracker/internal/external"
)

// Summary is everything shown by the summary report.
type Summary struct {
	Totals    map[domain.AssetType]domain.Totals
	Overview  domain.Overview
	Remaining map[domain.AssetType]map[string]decimal.Decimal
}

var typeLabels = map[domain.AssetType]string{
	domain.AssetProperty: "Property",
	domain.AssetGold:     "Gold",
	domain.AssetCoin:     "Coin",
	domain.AssetStock:    "Stock",
}

// FormatVND formats an amount in Vietnamese dong, rounded to whole dong.
func FormatVND(d decimal.Decimal) string {
	return money.New(d.Round(0).IntPart(), money.VND).Display()
}

// FormatProfit is FormatVND with an explicit plus sign for gains.
func FormatProfit(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + FormatVND(d)
	}
	return FormatVND(d)
}

// Markdown renders the summary as a Markdown document.
func Markdown(s Summary) string {
	var b strings.Builder

	b.WriteString("# Portfolio\n\n")
	fmt.Fprintf(&b, "**Total value:** %s  \n", FormatVND(s.Overview.TotalValue))
	fmt.Fprintf(&b, "**Total profit:** %s\n\n", FormatProfit(s.Overview.TotalProfit))

	if len(s.Totals) == 0 {
		b.WriteString("_No resources recorded yet._\n")
		return b.String()
	}

	b.WriteString("| Type | Quantity | Origin value | Current value | Profit |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, t := range domain.AssetTypes() {
		tot, ok := s.Totals[t]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			typeLabels[t], tot.Quantity.String(),
			FormatVND(tot.OriginValue), FormatVND(tot.CurrentValue), FormatProfit(tot.Profit))
	}

	for _, t := range domain.AssetTypes() {
		remaining := s.Remaining[t]
		if len(remaining) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s holdings\n\n", typeLabels[t])
		b.WriteString("| Dimension | Remaining |\n|---|---:|\n")
		keys := lo.Keys(remaining)
		slices.Sort(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "| %s | %s |\n", key, remaining[key].String())
		}
	}

	return b.String()
}

// GoldBoardMarkdown renders the dealer price board as a Markdown table.
func GoldBoardMarkdown(board external.GoldBoard) string {
	var b strings.Builder
	b.WriteString("# Gold prices\n\n")
	b.WriteString("| Brand | Unit | Buy | Sell |\n|---|---|---:|---:|\n")
	for _, q := range board.Quotes {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			strings.ToUpper(string(q.Brand)), q.Unit, quoteCell(q.Buy), quoteCell(q.Sell))
	}
	fmt.Fprintf(&b, "\n_Fetched %s_\n", board.FetchedAt.Format("2006-01-02 15:04 MST"))
	return b.String()
}

func quoteCell(d decimal.Decimal) string {
	if d.IsZero() {
		return "n/a"
	}
	return FormatVND(d)
}

// Render renders Markdown for a terminal using the named glamour style
// ("auto", "dark", "light", "notty"). An empty style means "auto".
func Render(markdown, style string) (string, error) {
	if style == "" {
		style = "auto"
	}
	out, err := glamour.Render(markdown, style)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
