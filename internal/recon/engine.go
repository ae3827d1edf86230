package recon

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/arunsoman/match-magic/internal/coerce"
	"github.com/arunsoman/match-magic/internal/match"
	"github.com/arunsoman/match-magic/internal/model"
)

// Engine entrypoint errors.
var (
	ErrConfigInvalid = eris.New("recon: invalid configuration")
	ErrCancelled     = eris.New("recon: cancelled")
	ErrUnsupported   = eris.New("recon: unsupported")
)

const (
	// StreamingThreshold is the combined row count above which Reconcile
	// switches to the streaming scan.
	StreamingThreshold = 50_000

	// candidateFloor is the minimum confidence to admit a candidate pair.
	candidateFloor = 0.3

	// strongMatch is the confidence bound used by the exact and smart
	// strategies.
	strongMatch = 0.8

	// fuzzyTopN bounds the candidates the fuzzy strategy retains.
	fuzzyTopN = 3
)

// Option configures an Engine.
type Option func(*Engine)

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progressFn = fn }
}

// Engine pairs enriched rows into verdicts.
type Engine struct {
	cfg        model.ReconcileConfig
	mappings   []model.ColumnMapping
	progressFn ProgressFunc
}

// New validates the configuration eagerly: an empty mapping list, a bad
// mapping, or a bad reconcile config rejects the batch before any row is
// touched.
func New(cfg model.ReconcileConfig, mappings []model.ColumnMapping, opts ...Option) (*Engine, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(ErrConfigInvalid, err.Error())
	}
	if len(mappings) == 0 {
		return nil, eris.Wrap(ErrConfigInvalid, "no column mappings")
	}
	for _, m := range mappings {
		if err := m.Validate(); err != nil {
			return nil, eris.Wrap(ErrConfigInvalid, err.Error())
		}
	}

	e := &Engine{cfg: cfg, mappings: mappings}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Reconcile pairs two enriched datasets. Batches small enough to hold in
// memory use the window scan directly; above StreamingThreshold the chunked
// streaming path is used. Both paths require inputs sorted by the configured
// sort keys; when no sort key is configured the all-pairs in-memory engine
// runs instead.
func (e *Engine) Reconcile(ctx context.Context, sources, targets []model.Row) ([]model.Result, model.Summary, error) {
	if e.cfg.SourceSortKey == "" || e.cfg.TargetSortKey == "" {
		return e.ReconcileInMemory(ctx, sources, targets)
	}
	if len(sources)+len(targets) > StreamingThreshold {
		zap.L().Info("recon: streaming mode selected",
			zap.Int("source_rows", len(sources)),
			zap.Int("target_rows", len(targets)),
		)
	}
	return e.ReconcileStream(ctx, sources, targets)
}

// ReconcileInMemory scores every target for each source, admits candidates
// above the confidence floor, filters them per strategy, and claims at most
// one target per source.
func (e *Engine) ReconcileInMemory(ctx context.Context, sources, targets []model.Row) ([]model.Result, model.Summary, error) {
	progress := newProgressEmitter(e.progressFn)
	summary := model.Summary{SourceRows: len(sources), TargetRows: len(targets)}

	type candidate struct {
		index      int
		confidence float64
	}

	claimed := make(map[int]bool, len(targets))
	results := make([]model.Result, 0, len(sources)+len(targets))

	for i, src := range sources {
		if i%e.cfg.ChunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, model.Summary{}, eris.Wrap(ErrCancelled, err.Error())
			}
		}

		var candidates []candidate
		seen := make(map[string]bool)
		for j, tgt := range targets {
			if claimed[j] && !e.cfg.AllowTargetReuse {
				continue
			}
			// Duplicate target content scores identically; the first
			// unclaimed instance of each row identity stands for the rest.
			id := tgt.Identity()
			if seen[id] {
				continue
			}
			seen[id] = true

			if c := match.Confidence(src, tgt, e.mappings, e.cfg); c > candidateFloor {
				candidates = append(candidates, candidate{index: j, confidence: c})
			}
		}
		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].confidence > candidates[b].confidence
		})

		switch e.cfg.MatchStrategy {
		case model.StrategyExact:
			kept := candidates[:0]
			for _, c := range candidates {
				if c.confidence > strongMatch {
					kept = append(kept, c)
				}
			}
			candidates = kept
		case model.StrategyFuzzy:
			if len(candidates) > fuzzyTopN {
				candidates = candidates[:fuzzyTopN]
			}
		case model.StrategySmart:
			var strong []candidate
			for _, c := range candidates {
				if c.confidence > strongMatch {
					strong = append(strong, c)
				}
			}
			if len(strong) > 0 {
				candidates = strong
			} else if len(candidates) > 1 {
				candidates = candidates[:1]
			}
		}

		matched := false
		for _, c := range candidates {
			if claimed[c.index] && !e.cfg.AllowTargetReuse {
				continue
			}
			results = append(results, e.pairVerdict(src, targets[c.index], c.confidence))
			claimed[c.index] = true
			matched = true
			break
		}
		if !matched {
			results = append(results, e.unmatchedSource(src))
		}
		progress.tick(1, i+1, len(sources), StageMatching)
	}

	for j, tgt := range targets {
		if !claimed[j] {
			results = append(results, e.unmatchedTarget(tgt))
		}
	}

	for _, r := range results {
		summary.Count(r)
	}
	progress.complete()
	return results, summary, nil
}

// pairVerdict builds a matched-or-discrepancy verdict for a claimed pair.
func (e *Engine) pairVerdict(src, tgt model.Row, confidence float64) model.Result {
	discrepancies := match.Discrepancies(src, tgt, e.mappings, e.cfg)
	status := model.StatusMatched
	if len(discrepancies) > 0 {
		status = model.StatusDiscrepancy
	}
	return model.Result{
		ID:            uuid.New().String(),
		SourceRow:     src,
		TargetRow:     tgt,
		Status:        status,
		Confidence:    confidence,
		Discrepancies: discrepancies,
		SourceLine:    src.Line(),
		TargetLine:    tgt.Line(),
		Amount:        model.AmountOf(src, e.mappings, coerce.ToNumber),
	}
}

func (e *Engine) unmatchedSource(src model.Row) model.Result {
	return model.Result{
		ID:         uuid.New().String(),
		SourceRow:  src,
		Status:     model.StatusUnmatchedSource,
		SourceLine: src.Line(),
		Amount:     model.AmountOf(src, e.mappings, coerce.ToNumber),
	}
}

func (e *Engine) unmatchedTarget(tgt model.Row) model.Result {
	return model.Result{
		ID:         uuid.New().String(),
		TargetRow:  tgt,
		Status:     model.StatusUnmatchedTarget,
		TargetLine: tgt.Line(),
	}
}
