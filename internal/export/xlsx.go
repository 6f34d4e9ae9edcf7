package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter implements SheetWriter by saving an Excel workbook to a file.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer that replaces the workbook at path on every export.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Write(_ context.Context, data []Sheet) error {
	f, err := buildWorkbook(data)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}

// WriteWorkbook streams the sheets as an XLSX workbook to out.
func WriteWorkbook(out io.Writer, data []Sheet) error {
	f, err := buildWorkbook(data)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func buildWorkbook(data []Sheet) (*excelize.File, error) {
	f := excelize.NewFile()

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D9EAD3"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	for _, sheet := range data {
		if err := writeSheet(f, sheet, header); err != nil {
			f.Close()
			return nil, err
		}
	}

	if len(data) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			f.Close()
			return nil, fmt.Errorf("removing default sheet: %w", err)
		}
		idx, err := f.GetSheetIndex(data[0].Name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("locating sheet %s: %w", data[0].Name, err)
		}
		f.SetActiveSheet(idx)
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	if _, err := f.NewSheet(sheet.Name); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheet.Name, err)
	}

	width := 0
	for r, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return fmt.Errorf("addressing %s row %d: %w", sheet.Name, r+1, err)
		}
		if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet.Name, r+1, err)
		}
		width = max(width, len(row))
	}
	if width == 0 {
		return nil
	}

	lastCol, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return fmt.Errorf("addressing %s columns: %w", sheet.Name, err)
	}
	if err := f.SetColWidth(sheet.Name, "A", lastCol, 16); err != nil {
		return fmt.Errorf("sizing %s columns: %w", sheet.Name, err)
	}
	if err := f.SetRowStyle(sheet.Name, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet.Name, err)
	}
	return f.SetPanes(sheet.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
