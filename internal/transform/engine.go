// Package transform validates and executes cell-level transformation
// pipelines.
package transform

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/arunsoman/match-magic/internal/model"
	"github.com/arunsoman/match-magic/internal/rates"
)

// ErrExcludeRow signals that the row owning this cell must be dropped from
// reconciliation. It is raised only by exclude_if_null.
var ErrExcludeRow = eris.New("transform: exclude row")

// ErrUnsupported marks a feature the runtime cannot provide, such as an
// unknown timezone.
var ErrUnsupported = eris.New("transform: unsupported")

// Option configures an Engine.
type Option func(*Engine)

// WithRates injects the currency-rate provider.
func WithRates(p rates.Provider) Option {
	return func(e *Engine) { e.rates = p }
}

// WithClock injects the clock used by fill_null sentinels.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithWallClockShift makes convert_timezone shift the wall clock instead of
// preserving the absolute instant.
func WithWallClockShift() Option {
	return func(e *Engine) { e.wallClockShift = true }
}

// WithZoneLoader overrides timezone resolution, for environments without a
// zone database.
func WithZoneLoader(load func(name string) (*time.Location, error)) Option {
	return func(e *Engine) { e.loadZone = load }
}

// Engine executes transformation steps. Rate tables and zone databases are
// read-only collaborators supplied at construction.
type Engine struct {
	rates          rates.Provider
	now            func() time.Time
	loadZone       func(name string) (*time.Location, error)
	wallClockShift bool
}

// NewEngine builds an Engine with the given collaborators.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rates:    rates.Table{},
		now:      time.Now,
		loadZone: time.LoadLocation,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes a pipeline in order-ascending sequence. A failed step records
// its error and propagates its own input to the next step; the overall result
// is a success iff every step succeeded. ErrExcludeRow aborts immediately and
// surfaces to the caller.
func (e *Engine) Run(value model.Scalar, steps []model.TransformStep) (model.PipelineResult, error) {
	ordered := append([]model.TransformStep(nil), steps...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	result := model.PipelineResult{
		Value:       value,
		Success:     true,
		StepResults: make([]model.StepResult, 0, len(ordered)),
	}

	for _, step := range ordered {
		input := result.Value
		output, err := e.ExecuteStep(input, step)

		sr := model.StepResult{
			StepID: step.ID,
			Kind:   step.Kind,
			Input:  input,
			Output: output,
		}
		if err != nil {
			if eris.Is(err, ErrExcludeRow) {
				return result, err
			}
			sr.Err = err.Error()
			sr.Output = input
			result.Success = false
			result.StepResults = append(result.StepResults, sr)
			continue
		}
		result.Value = output
		result.StepResults = append(result.StepResults, sr)
	}
	return result, nil
}

// Preview is Run for interactive use: it never drops rows, reporting
// exclusion as a failed final step instead.
func (e *Engine) Preview(value model.Scalar, steps []model.TransformStep) model.PipelineResult {
	result, err := e.Run(value, steps)
	if err != nil && eris.Is(err, ErrExcludeRow) {
		result.Success = false
		result.StepResults = append(result.StepResults, model.StepResult{
			Kind:   model.StepExcludeIfNull,
			Input:  result.Value,
			Output: result.Value,
			Err:    "row would be excluded",
		})
	}
	return result
}
