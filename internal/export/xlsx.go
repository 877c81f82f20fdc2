package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"doctrack/internal/domain"
)

const historySheet = "History"

// WriteXLSX writes a single-sheet workbook with the header and every entry
// to out.
func WriteXLSX(out io.Writer, entries domain.HistoryList) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), historySheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(historySheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := entryToRow(i+1, &entries[i])
		values := []interface{}{i + 1, row[1], row[2], row[3]}
		if err := f.SetSheetRow(historySheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(historySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	return f.Write(out)
}

// Write renders entries in format.
func Write(out io.Writer, format string, entries domain.HistoryList) error {
	switch format {
	case FormatCSV:
		return WriteCSV(out, entries)
	case FormatXLSX:
		return WriteXLSX(out, entries)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
