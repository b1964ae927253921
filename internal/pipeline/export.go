package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"dlscan/internal"
)

func ExportScansToXLSX(rows []internal.ScanRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"scan_id", "created_at", "source", "status", "cause",
		"candidate", "score", "matched_identifier", "parsed_data", "error", "duration_ms",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.ID)
		set(2, row.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		set(3, row.Source)
		set(4, row.Status)
		set(5, row.Cause)
		set(6, derefString(row.Candidate))
		set(7, derefInt(row.Score))
		set(8, derefString(row.MatchedIdentifier))
		set(9, row.ParsedJSON)
		set(10, derefString(row.Error))
		set(11, row.DurationMs)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
