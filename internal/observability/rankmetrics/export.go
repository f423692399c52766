package rankmetrics

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{
	"scenario", "requests", "success", "errors", "cache_hits", "fallbacks",
	"p50_ms", "p90_ms", "p95_ms", "p99_ms",
}

// ExportCSV writes the per-scenario snapshot for dashboards.
func (a *Aggregator) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range a.Snapshot() {
		record := []string{
			string(row.Scenario),
			fmt.Sprintf("%d", row.Requests),
			fmt.Sprintf("%d", row.Success),
			fmt.Sprintf("%d", row.Errors),
			fmt.Sprintf("%d", row.CacheHits),
			fmt.Sprintf("%d", row.Fallbacks),
			fmt.Sprintf("%.2f", row.P50Ms),
			fmt.Sprintf("%.2f", row.P90Ms),
			fmt.Sprintf("%.2f", row.P95Ms),
			fmt.Sprintf("%.2f", row.P99Ms),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportXLSX writes the same snapshot as a single-sheet workbook.
func (a *Aggregator) ExportXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for col, name := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("xlsx header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}

	for i, row := range a.Snapshot() {
		values := []any{
			string(row.Scenario), row.Requests, row.Success, row.Errors,
			row.CacheHits, row.Fallbacks, row.P50Ms, row.P90Ms, row.P95Ms, row.P99Ms,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("xlsx cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("xlsx row: %w", err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
