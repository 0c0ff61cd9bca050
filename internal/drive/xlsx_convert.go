package drive

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// sheetToCSV copies the first sheet of an XLSX workbook to w as CSV. Cells
// are read with their display format, so dates come out as the sheet shows
// them (dd/mm/yyyy in the store exports).
func sheetToCSV(r io.Reader, w io.Writer) (int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	out := csv.NewWriter(w)
	n := 0
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return n, fmt.Errorf("failed to read row %d: %w", n+1, err)
		}
		if len(record) == 0 {
			continue
		}
		if err := out.Write(record); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Error(); err != nil {
		return n, fmt.Errorf("error iterating rows in %s: %w", sheet, err)
	}

	out.Flush()
	return n, out.Error()
}
