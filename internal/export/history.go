package export

import (
	"context"
	"fmt"
	"time"

	sheets "google.golang.org/api/sheets/v4"

	"github.com/mtlprog/tracker/internal/domain"
)

// SheetHistory keeps one row per export with the portfolio value at that time.
const SheetHistory = "HISTORY"

var historyHeader = []any{"Date", "Total Value", "Total Profit"}

// buildHistoryRow builds the HISTORY data row for one export.
func buildHistoryRow(overview domain.Overview, at time.Time) []any {
	return []any{
		at.UTC().Format("02.01.2006 15:04"),
		toFloat(overview.TotalValue),
		toFloat(overview.TotalProfit),
	}
}

// AppendHistory ensures the HISTORY sheet exists, writes the header if the
// sheet is new or empty, then appends one row for the current export.
func (w *SheetsWriter) AppendHistory(ctx context.Context, overview domain.Overview, at time.Time) error {
	ids, err := w.ensureSheets(ctx, SheetHistory)
	if err != nil {
		return fmt.Errorf("ensuring %s sheet: %w", SheetHistory, err)
	}

	existing, err := w.svc.Spreadsheets.Values.Get(
		w.spreadsheetID, SheetHistory+"!A1:A1",
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", SheetHistory, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			SheetHistory+"!A1",
			&sheets.ValueRange{Values: [][]any{historyHeader}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", SheetHistory, err)
		}
		if err := w.formatHistory(ctx, ids[SheetHistory]); err != nil {
			return fmt.Errorf("formatting %s sheet: %w", SheetHistory, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		SheetHistory+"!A:C",
		&sheets.ValueRange{Values: [][]any{buildHistoryRow(overview, at)}},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s row: %w", SheetHistory, err)
	}

	return nil
}

// formatHistory freezes and bolds the header row and shows VND amounts without decimals.
func (w *SheetsWriter) formatHistory(ctx context.Context, sheetID int64) error {
	reqs := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: 3},
				Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
					TextFormat:          &sheets.TextFormat{Bold: true},
					HorizontalAlignment: "CENTER",
				}},
				Fields: "userEnteredFormat(textFormat,horizontalAlignment)",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 1, EndRowIndex: 10000, StartColumnIndex: 1, EndColumnIndex: 3},
				Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
					NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "#,##0"},
				}},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	return err
}
