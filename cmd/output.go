package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/arunsoman/match-magic/internal/model"
)

// writeResults renders a run result as CSV or JSON to a file or stdout.
func writeResults(result *model.RunResult, path, format string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create output %s", path)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(result), "encode results")
	case "csv", "":
		return writeResultsCSV(w, result.Results)
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}

func writeResultsCSV(w io.Writer, results []model.Result) error {
	cw := csv.NewWriter(w)
	header := []string{"status", "confidence", "source_line", "target_line", "amount", "discrepancies"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "write csv header")
	}

	for _, r := range results {
		rec := []string{
			string(r.Status),
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
			formatLine(r.SourceLine),
			formatLine(r.TargetLine),
			formatAmount(r.Amount),
			strings.Join(r.Discrepancies, "; "),
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "write csv record")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "flush csv")
}

func formatLine(line int64) string {
	if line == 0 {
		return ""
	}
	return strconv.FormatInt(line, 10)
}

func formatAmount(amount *float64) string {
	if amount == nil {
		return ""
	}
	return strconv.FormatFloat(*amount, 'f', -1, 64)
}
