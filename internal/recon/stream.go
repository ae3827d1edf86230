package recon

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/arunsoman/match-magic/internal/match"
	"github.com/arunsoman/match-magic/internal/model"
)

// ReconcileStream scans two key-sorted datasets. The exact strategy admits a
// strict two-pointer walk; tolerance-based strategies need the sliding
// window, because several targets can fall inside one window and the best by
// confidence must win.
func (e *Engine) ReconcileStream(ctx context.Context, sources, targets []model.Row) ([]model.Result, model.Summary, error) {
	if e.cfg.SourceSortKey == "" || e.cfg.TargetSortKey == "" {
		return nil, model.Summary{}, eris.Wrap(ErrConfigInvalid, "streaming requires sort keys on both sides")
	}

	srcKeys := make([]sortValue, len(sources))
	for i, r := range sources {
		srcKeys[i] = projectSortKey(r, e.cfg.SourceSortKey)
	}
	tgtKeys := make([]sortValue, len(targets))
	for j, r := range targets {
		tgtKeys[j] = projectSortKey(r, e.cfg.TargetSortKey)
	}

	if e.cfg.MatchStrategy == model.StrategyExact {
		return e.twoPointer(ctx, sources, srcKeys, targets, tgtKeys)
	}
	return e.slidingWindow(ctx, sources, srcKeys, targets, tgtKeys)
}

func (e *Engine) compare(a, b sortValue) int {
	return compareKeys(a, b, e.cfg.Tolerance, e.cfg.ToleranceUnit)
}

// slidingWindow is the canonical scan: a start-of-window pointer advances
// past targets too old for any future source, and each source picks the
// highest-confidence target inside its tolerance window.
func (e *Engine) slidingWindow(ctx context.Context, sources []model.Row, srcKeys []sortValue, targets []model.Row, tgtKeys []sortValue) ([]model.Result, model.Summary, error) {
	progress := newProgressEmitter(e.progressFn)
	summary := model.Summary{SourceRows: len(sources), TargetRows: len(targets)}
	results := make([]model.Result, 0, len(sources)+len(targets))

	claimed := make([]bool, len(targets))
	j := 0

	for i, src := range sources {
		if i%e.cfg.ChunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, model.Summary{}, eris.Wrap(ErrCancelled, err.Error())
			}
		}

		// Targets before the window start cannot match this source or any
		// later one; claimed targets are done either way.
		for j < len(targets) && (claimed[j] || e.compare(srcKeys[i], tgtKeys[j]) > 0) {
			j++
		}

		bestIdx := -1
		bestConfidence := 0.0
		for k := j; k < len(targets); k++ {
			if claimed[k] {
				continue
			}
			c := e.compare(srcKeys[i], tgtKeys[k])
			if c < 0 {
				break // too new for this source
			}
			if c == 0 {
				if conf := match.Confidence(src, targets[k], e.mappings, e.cfg); conf > bestConfidence {
					bestIdx, bestConfidence = k, conf
				}
			}
		}

		if bestIdx >= 0 && bestConfidence > candidateFloor {
			results = append(results, e.pairVerdict(src, targets[bestIdx], bestConfidence))
			claimed[bestIdx] = true
		} else {
			results = append(results, e.unmatchedSource(src))
		}
		progress.tick(1, i+1, len(sources)+len(targets), StageStreaming)
	}

	for k, tgt := range targets {
		if !claimed[k] {
			results = append(results, e.unmatchedTarget(tgt))
		}
		progress.tick(1, len(sources)+k+1, len(sources)+len(targets), StageStreaming)
	}

	for _, r := range results {
		summary.Count(r)
	}
	progress.complete()
	return results, summary, nil
}

// twoPointer is the constant-space walk for the exact strategy: on key
// equality both sides advance as a claimed pair, otherwise the older side is
// emitted unmatched.
func (e *Engine) twoPointer(ctx context.Context, sources []model.Row, srcKeys []sortValue, targets []model.Row, tgtKeys []sortValue) ([]model.Result, model.Summary, error) {
	progress := newProgressEmitter(e.progressFn)
	summary := model.Summary{SourceRows: len(sources), TargetRows: len(targets)}
	results := make([]model.Result, 0, len(sources)+len(targets))

	i, j, step := 0, 0, 0
	for i < len(sources) && j < len(targets) {
		if step%e.cfg.ChunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, model.Summary{}, eris.Wrap(ErrCancelled, err.Error())
			}
		}
		step++

		switch c := e.compare(srcKeys[i], tgtKeys[j]); {
		case c == 0:
			conf := match.Confidence(sources[i], targets[j], e.mappings, e.cfg)
			results = append(results, e.pairVerdict(sources[i], targets[j], conf))
			i++
			j++
		case c < 0:
			results = append(results, e.unmatchedSource(sources[i]))
			i++
		default:
			results = append(results, e.unmatchedTarget(targets[j]))
			j++
		}
		progress.tick(1, i+j, len(sources)+len(targets), StageStreaming)
	}
	for ; i < len(sources); i++ {
		results = append(results, e.unmatchedSource(sources[i]))
	}
	for ; j < len(targets); j++ {
		results = append(results, e.unmatchedTarget(targets[j]))
	}

	for _, r := range results {
		summary.Count(r)
	}
	progress.complete()
	return results, summary, nil
}
