package model

import (
	"strings"
	"time"
)

// Status is the per-record verdict.
type Status string

const (
	StatusMatched         Status = "matched"
	StatusDiscrepancy     Status = "discrepancy"
	StatusUnmatchedSource Status = "unmatched-source"
	StatusUnmatchedTarget Status = "unmatched-target"
)

// Result is one reconciliation verdict. Rows are held by reference to the
// enriched inputs; unmatched verdicts carry only their own side.
type Result struct {
	ID            string   `json:"id"`
	SourceRow     Row      `json:"sourceRow,omitempty"`
	TargetRow     Row      `json:"targetRow,omitempty"`
	Status        Status   `json:"status"`
	Confidence    float64  `json:"confidence,omitempty"`
	Discrepancies []string `json:"discrepancies,omitempty"`
	SourceLine    int64    `json:"sourceLine,omitempty"`
	TargetLine    int64    `json:"targetLine,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
}

// Summary aggregates a batch of verdicts.
type Summary struct {
	SourceRows      int `json:"sourceRows"`
	TargetRows      int `json:"targetRows"`
	Matched         int `json:"matched"`
	Discrepancies   int `json:"discrepancies"`
	UnmatchedSource int `json:"unmatchedSource"`
	UnmatchedTarget int `json:"unmatchedTarget"`
	DroppedSource   int `json:"droppedSource"`
	DroppedTarget   int `json:"droppedTarget"`
}

// Count folds one verdict into the summary.
func (s *Summary) Count(r Result) {
	switch r.Status {
	case StatusMatched:
		s.Matched++
	case StatusDiscrepancy:
		s.Discrepancies++
	case StatusUnmatchedSource:
		s.UnmatchedSource++
	case StatusUnmatchedTarget:
		s.UnmatchedTarget++
	}
}

// AmountOf extracts a best-effort amount from a row: the first mapping whose
// source column name contains "amount" (case-insensitive) that coerces to a
// number.
func AmountOf(row Row, mappings []ColumnMapping, toNumber func(Scalar) float64) *float64 {
	for _, m := range mappings {
		for _, col := range m.Source {
			if !strings.Contains(strings.ToLower(col), "amount") {
				continue
			}
			if v, ok := row.Get(col); ok && !v.IsMissing() {
				n := toNumber(v)
				return &n
			}
		}
		if strings.Contains(strings.ToLower(m.Target), "amount") {
			if v, ok := row.Get(m.Target); ok && !v.IsMissing() {
				n := toNumber(v)
				return &n
			}
		}
	}
	return nil
}

// RunStatus tracks a stored reconciliation run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted reconciliation run record.
type Run struct {
	ID         string     `json:"id"`
	SourceName string     `json:"sourceName"`
	TargetName string     `json:"targetName"`
	Status     RunStatus  `json:"status"`
	Result     *RunResult `json:"result,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// RunResult is the stored outcome of a completed run.
type RunResult struct {
	Summary    Summary  `json:"summary"`
	Results    []Result `json:"results,omitempty"`
	DurationMs int64    `json:"durationMs"`
	Streaming  bool     `json:"streaming"`
	Error      string   `json:"error,omitempty"`
}
