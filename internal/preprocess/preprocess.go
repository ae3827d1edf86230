// Package preprocess composes virtual-field evaluation and transformation
// pipelines into a row-level transform applied before reconciliation.
package preprocess

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arunsoman/match-magic/internal/expr"
	"github.com/arunsoman/match-magic/internal/model"
	"github.com/arunsoman/match-magic/internal/transform"
)

// Issue notes a recovered per-cell failure. The row still produced a verdict.
type Issue struct {
	Line   int64  `json:"line,omitempty"`
	Column string `json:"column"`
	Err    string `json:"error"`
}

// Preprocessor derives enriched rows for one side: virtual fields evaluate
// first so their outputs are visible to the pipelines, then each pipeline
// writes to its output column (or overwrites its input column).
type Preprocessor struct {
	side      model.Side
	planner   *expr.Planner
	engine    *transform.Engine
	pipelines []model.Pipeline
}

// New builds a Preprocessor for one side, keeping only that side's virtual
// fields and pipelines. Pipeline validation is eager: a bad step rejects the
// whole batch before any row is read.
func New(side model.Side, vfields []model.VirtualField, pipelines []model.Pipeline, engine *transform.Engine) (*Preprocessor, error) {
	var sideFields []model.VirtualField
	for _, vf := range vfields {
		if vf.Side == side {
			sideFields = append(sideFields, vf)
		}
	}
	planner, err := expr.NewPlanner(sideFields)
	if err != nil {
		return nil, eris.Wrapf(err, "preprocess: %s virtual fields", side)
	}

	var sidePipelines []model.Pipeline
	for _, pl := range pipelines {
		if pl.Side != side {
			continue
		}
		if err := transform.ValidatePipeline(pl); err != nil {
			return nil, eris.Wrapf(err, "preprocess: %s pipelines", side)
		}
		sidePipelines = append(sidePipelines, pl)
	}

	if engine == nil {
		engine = transform.NewEngine()
	}
	return &Preprocessor{
		side:      side,
		planner:   planner,
		engine:    engine,
		pipelines: sidePipelines,
	}, nil
}

// Row enriches a single row. The second return is false when a pipeline
// raised the row-exclusion condition. The reserved line column is never
// stripped.
func (p *Preprocessor) Row(row model.Row) (model.Row, bool, []Issue) {
	line := row.Line()
	enriched, fieldErrs := p.planner.EvaluateRow(row)

	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{Line: line, Column: fe.Field, Err: fe.Err.Error()})
	}

	for _, pl := range p.pipelines {
		input, _ := enriched.Get(pl.ColumnID)
		result, err := p.engine.Run(input, pl.Steps)
		if err != nil {
			if eris.Is(err, transform.ErrExcludeRow) {
				return nil, false, issues
			}
			issues = append(issues, Issue{Line: line, Column: pl.ColumnID, Err: err.Error()})
			continue
		}
		if !result.Success {
			for _, sr := range result.StepResults {
				if sr.Err != "" {
					issues = append(issues, Issue{Line: line, Column: pl.ColumnID, Err: sr.Err})
				}
			}
		}
		out := pl.OutputColumn
		if out == "" {
			out = pl.ColumnID
		}
		enriched[out] = result.Value
	}
	return enriched, true, issues
}

// Result is the outcome of preprocessing a dataset.
type Result struct {
	Rows    []model.Row
	Dropped int
	Issues  []Issue
}

// Dataset enriches every row, preserving input order. Chunks of rows are
// processed concurrently; cancellation is honored at chunk boundaries.
func (p *Preprocessor) Dataset(ctx context.Context, rows []model.Row, chunkSize int, progress func(done int)) (*Result, error) {
	if chunkSize <= 0 {
		chunkSize = model.DefaultChunkSize
	}

	type slot struct {
		row  model.Row
		keep bool
	}
	slots := make([]slot, len(rows))
	issueCh := make(chan []Issue, (len(rows)/chunkSize)+1)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			var chunkIssues []Issue
			for i := start; i < end; i++ {
				enriched, keep, issues := p.Row(rows[i])
				slots[i] = slot{row: enriched, keep: keep}
				chunkIssues = append(chunkIssues, issues...)
			}
			if len(chunkIssues) > 0 {
				issueCh <- chunkIssues
			}
			if progress != nil {
				progress(end - start)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "preprocess: dataset")
	}
	close(issueCh)

	res := &Result{Rows: make([]model.Row, 0, len(rows))}
	for batch := range issueCh {
		res.Issues = append(res.Issues, batch...)
	}
	for _, s := range slots {
		if !s.keep {
			res.Dropped++
			continue
		}
		res.Rows = append(res.Rows, s.row)
	}

	if res.Dropped > 0 || len(res.Issues) > 0 {
		zap.L().Debug("preprocess: dataset complete",
			zap.String("side", string(p.side)),
			zap.Int("rows", len(res.Rows)),
			zap.Int("dropped", res.Dropped),
			zap.Int("issues", len(res.Issues)),
		)
	}
	return res, nil
}
