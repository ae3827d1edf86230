// Package pipeline orchestrates a full reconciliation batch: preprocessing
// both sides, sorting, matching, and optional run persistence.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arunsoman/match-magic/internal/config"
	"github.com/arunsoman/match-magic/internal/model"
	"github.com/arunsoman/match-magic/internal/preprocess"
	"github.com/arunsoman/match-magic/internal/rates"
	"github.com/arunsoman/match-magic/internal/recon"
	"github.com/arunsoman/match-magic/internal/store"
	"github.com/arunsoman/match-magic/internal/transform"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore persists run records through the given store.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithProgress installs a progress callback covering all stages.
func WithProgress(fn recon.ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithRates injects the currency-rate provider used by transformation steps.
func WithRates(provider rates.Provider) Option {
	return func(p *Pipeline) { p.rates = provider }
}

// WithClock injects the engine clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline runs reconciliation batches for one setup document.
type Pipeline struct {
	setup    *config.Setup
	store    store.Store
	progress recon.ProgressFunc
	rates    rates.Provider
	now      func() time.Time

	engine *recon.Engine
	srcPre *preprocess.Preprocessor
	tgtPre *preprocess.Preprocessor
}

// New validates the setup eagerly and builds the preprocessing and matching
// machinery. Configuration problems reject the batch here, before any row is
// read.
func New(setup *config.Setup, opts ...Option) (*Pipeline, error) {
	if setup == nil {
		return nil, eris.Wrap(recon.ErrConfigInvalid, "nil setup")
	}
	if err := setup.Validate(); err != nil {
		return nil, eris.Wrap(recon.ErrConfigInvalid, err.Error())
	}

	p := &Pipeline{
		setup: setup,
		rates: rates.Table{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	engine, err := recon.New(setup.SortConfiguration, setup.Mappings, recon.WithProgress(p.progress))
	if err != nil {
		return nil, err
	}
	p.engine = engine

	tEngine := transform.NewEngine(transform.WithRates(p.rates), transform.WithClock(p.now))
	if p.srcPre, err = preprocess.New(model.SideSource, setup.VirtualFields, setup.Transformations, tEngine); err != nil {
		return nil, eris.Wrap(recon.ErrConfigInvalid, err.Error())
	}
	if p.tgtPre, err = preprocess.New(model.SideTarget, setup.VirtualFields, setup.Transformations, tEngine); err != nil {
		return nil, eris.Wrap(recon.ErrConfigInvalid, err.Error())
	}

	return p, nil
}

// Run reconciles two raw datasets and returns the stored run result. Rows
// whose pipelines raised the exclusion condition are dropped and tallied.
func (p *Pipeline) Run(ctx context.Context, sourceName, targetName string, sources, targets []model.Row) (*model.RunResult, error) {
	log := zap.L().With(zap.String("source", sourceName), zap.String("target", targetName))
	log.Info("pipeline: starting reconciliation",
		zap.Int("source_rows", len(sources)),
		zap.Int("target_rows", len(targets)),
	)
	start := p.now()

	var run *model.Run
	if p.store != nil {
		created, err := p.store.CreateRun(ctx, sourceName, targetName)
		if err != nil {
			log.Warn("pipeline: failed to create run record", zap.Error(err))
		} else {
			run = created
			_ = p.store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning)
		}
	}

	cfg := p.setup.SortConfiguration
	chunk := cfg.ChunkSize

	// Preprocess both sides concurrently; each side already parallelizes by
	// chunk internally.
	var srcRes, tgtRes *preprocess.Result
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := p.srcPre.Dataset(gCtx, sources, chunk, p.progressFor(recon.StageSource, len(sources)))
		srcRes = res
		return err
	})
	g.Go(func() error {
		res, err := p.tgtPre.Dataset(gCtx, targets, chunk, p.progressFor(recon.StageTarget, len(targets)))
		tgtRes = res
		return err
	})
	if err := g.Wait(); err != nil {
		p.failRun(ctx, run, err)
		if ctx.Err() != nil {
			return nil, eris.Wrap(recon.ErrCancelled, err.Error())
		}
		return nil, err
	}

	// The engine assumes key-sorted inputs; in-memory batches sort here.
	if cfg.SourceSortKey != "" && cfg.TargetSortKey != "" {
		if err := p.checkSortKeys(srcRes.Rows, tgtRes.Rows); err != nil {
			p.failRun(ctx, run, err)
			return nil, err
		}
		recon.SortRows(srcRes.Rows, cfg.SourceSortKey)
		recon.SortRows(tgtRes.Rows, cfg.TargetSortKey)
	}

	results, summary, err := p.engine.Reconcile(ctx, srcRes.Rows, tgtRes.Rows)
	if err != nil {
		p.failRun(ctx, run, err)
		return nil, err
	}
	summary.DroppedSource = srcRes.Dropped
	summary.DroppedTarget = tgtRes.Dropped

	result := &model.RunResult{
		Summary:    summary,
		Results:    results,
		DurationMs: p.now().Sub(start).Milliseconds(),
		Streaming:  len(sources)+len(targets) > recon.StreamingThreshold,
	}

	if p.store != nil && run != nil {
		if err := p.store.UpdateRunResult(ctx, run.ID, result); err != nil {
			log.Warn("pipeline: failed to save run result", zap.Error(err))
		}
	}

	log.Info("pipeline: reconciliation complete",
		zap.Int("matched", summary.Matched),
		zap.Int("discrepancies", summary.Discrepancies),
		zap.Int("unmatched_source", summary.UnmatchedSource),
		zap.Int("unmatched_target", summary.UnmatchedTarget),
		zap.Int("dropped", summary.DroppedSource+summary.DroppedTarget),
		zap.Int64("duration_ms", result.DurationMs),
	)
	return result, nil
}

// checkSortKeys rejects a batch whose sort key appears in neither side's
// rows. Virtual fields may have introduced the column, so the check runs on
// enriched rows.
func (p *Pipeline) checkSortKeys(sources, targets []model.Row) error {
	cfg := p.setup.SortConfiguration
	srcOK := len(sources) == 0
	for _, r := range sources {
		if _, ok := r.Get(cfg.SourceSortKey); ok {
			srcOK = true
			break
		}
	}
	tgtOK := len(targets) == 0
	for _, r := range targets {
		if _, ok := r.Get(cfg.TargetSortKey); ok {
			tgtOK = true
			break
		}
	}
	if !srcOK && !tgtOK {
		return eris.Wrapf(recon.ErrConfigInvalid, "sort keys %q/%q absent from both sides",
			cfg.SourceSortKey, cfg.TargetSortKey)
	}
	return nil
}

func (p *Pipeline) progressFor(stage string, total int) func(int) {
	if p.progress == nil {
		return nil
	}
	var done atomic.Int64
	return func(delta int) {
		n := done.Add(int64(delta))
		pct := 100.0
		if total > 0 {
			pct = float64(n) / float64(total) * 100
		}
		p.progress(recon.Progress{Processed: pct, Total: 100, Stage: stage})
	}
}

func (p *Pipeline) failRun(ctx context.Context, run *model.Run, cause error) {
	if p.store == nil || run == nil {
		return
	}
	if err := p.store.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed); err != nil {
		zap.L().Warn("pipeline: failed to mark run failed", zap.Error(err), zap.String("cause", cause.Error()))
	}
}
