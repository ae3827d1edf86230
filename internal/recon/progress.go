// Package recon pairs enriched source and target rows into verdicts, either
// fully in memory or with a sliding-window scan over sorted inputs.
package recon

import (
	"golang.org/x/time/rate"
)

// Reconciliation stages reported through the progress callback.
const (
	StageSource    = "Processing source file"
	StageTarget    = "Processing target file"
	StageMatching  = "Matching records"
	StageStreaming = "Streaming reconciliation"
	StageComplete  = "Complete"
)

// Progress is a coarse completion report. Processed is a percentage in
// [0, 100]; Total is always 100.
type Progress struct {
	Processed float64 `json:"processed"`
	Total     float64 `json:"total"`
	Stage     string  `json:"stage"`
}

// ProgressFunc receives progress reports. Callbacks must be fast; the engine
// invokes them inline.
type ProgressFunc func(Progress)

// progressEmitter throttles progress reports: at most a few per second, but
// never fewer than one per thousand records.
type progressEmitter struct {
	fn        ProgressFunc
	limiter   *rate.Limiter
	sinceEmit int
}

func newProgressEmitter(fn ProgressFunc) *progressEmitter {
	return &progressEmitter{
		fn:      fn,
		limiter: rate.NewLimiter(rate.Limit(4), 1),
	}
}

// tick reports progress after processing delta records.
func (p *progressEmitter) tick(delta, done, total int, stage string) {
	if p == nil || p.fn == nil {
		return
	}
	p.sinceEmit += delta
	if p.sinceEmit < 1000 && !p.limiter.Allow() {
		return
	}
	p.sinceEmit = 0
	pct := 100.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
		if pct > 100 {
			pct = 100
		}
	}
	p.fn(Progress{Processed: pct, Total: 100, Stage: stage})
}

// complete reports the terminal stage.
func (p *progressEmitter) complete() {
	if p == nil || p.fn == nil {
		return
	}
	p.fn(Progress{Processed: 100, Total: 100, Stage: StageComplete})
}
