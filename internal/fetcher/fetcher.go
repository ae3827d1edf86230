// Package fetcher materializes input rows from CSV, XLSX, and FTP-hosted
// files. Each produced row carries its 1-based file line under the reserved
// provenance column.
package fetcher

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/arunsoman/match-magic/internal/model"
)

// RowsFromCells converts raw string records into rows using the header for
// column names. firstLine is the file line number of the first record.
// Records shorter than the header leave the missing columns unset; extra
// cells are dropped.
func RowsFromCells(header []string, records [][]string, firstLine int) []model.Row {
	rows := make([]model.Row, 0, len(records))
	for i, rec := range records {
		row := make(model.Row, len(header)+1)
		for j, name := range header {
			if name == "" || j >= len(rec) {
				continue
			}
			row[name] = model.String(rec[j])
		}
		row[model.LineKey] = model.Number(float64(firstLine + i))
		rows = append(rows, row)
	}
	return rows
}

// ReadFile reads a tabular file into rows, selecting the parser by
// extension. The first row is the header.
func ReadFile(ctx context.Context, path string) ([]model.Row, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		return ReadCSVFile(ctx, path, CSVOptions{})
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("fetcher: unsupported file type %q", ext)
	}
}
