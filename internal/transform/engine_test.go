package transform

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunsoman/match-magic/internal/model"
)

func TestRun_OrderAscending(t *testing.T) {
	e := NewEngine()
	steps := []model.TransformStep{
		{ID: "b", Kind: model.StepUppercase, Order: 2},
		{ID: "a", Kind: model.StepTrim, Order: 1},
	}
	res, err := e.Run(model.String("  ab  "), steps)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.String("AB"), res.Value)
	require.Len(t, res.StepResults, 2)
	assert.Equal(t, "a", res.StepResults[0].StepID)
	assert.Equal(t, "b", res.StepResults[1].StepID)
}

func TestRun_FailedStepPropagatesInput(t *testing.T) {
	e := NewEngine()
	steps := []model.TransformStep{
		{ID: "bad", Kind: model.StepCastToDate, Order: 1, Params: map[string]any{"strictParsing": true}},
		{ID: "next", Kind: model.StepUppercase, Order: 2},
	}
	res, err := e.Run(model.String("not a date"), steps)
	require.NoError(t, err)

	// The failed cast records its error; the original value reaches the next
	// step and the pipeline still produces usable output.
	assert.False(t, res.Success)
	require.Len(t, res.StepResults, 2)
	assert.NotEmpty(t, res.StepResults[0].Err)
	assert.Empty(t, res.StepResults[1].Err)
	assert.Equal(t, model.String("NOT A DATE"), res.Value)
}

func TestRun_ExcludeRowSurfaces(t *testing.T) {
	e := NewEngine()
	steps := []model.TransformStep{
		{ID: "x", Kind: model.StepExcludeIfNull, Order: 1},
	}
	_, err := e.Run(model.Null(), steps)
	assert.True(t, eris.Is(err, ErrExcludeRow))
}

func TestPreview_ReportsExclusionWithoutError(t *testing.T) {
	e := NewEngine()
	steps := []model.TransformStep{
		{ID: "x", Kind: model.StepExcludeIfNull, Order: 1},
	}
	res := e.Preview(model.Null(), steps)
	assert.False(t, res.Success)
}

func TestValidateStep(t *testing.T) {
	assert.NoError(t, ValidateStep(model.TransformStep{ID: "s", Kind: model.StepTrim}))

	err := ValidateStep(model.TransformStep{ID: "s", Kind: "nonsense"})
	assert.Error(t, err)

	err = ValidateStep(model.TransformStep{ID: "s", Kind: model.StepScaleNumber})
	assert.Error(t, err, "missing required factor")

	err = ValidateStep(model.TransformStep{
		ID: "s", Kind: model.StepRoundNumber,
		Params: map[string]any{"decimalPlaces": 2.0, "roundingMode": "bankers"},
	})
	assert.Error(t, err, "enum violation")

	err = ValidateStep(model.TransformStep{
		ID: "s", Kind: model.StepScaleNumber,
		Params: map[string]any{"factor": "lots"},
	})
	assert.Error(t, err, "type violation")

	err = ValidateStep(model.TransformStep{
		ID: "s", Kind: model.StepConditional,
		Params: map[string]any{"condition": "os.Exit(1)", "trueValue": "a", "falseValue": "b"},
	})
	assert.Error(t, err, "bad condition must reject eagerly")
}

func TestValidatePipeline_CrossStepRule(t *testing.T) {
	good := model.Pipeline{
		ID: "p", ColumnID: "Ts",
		Steps: []model.TransformStep{
			{ID: "1", Kind: model.StepCastToDate, Order: 1},
			{ID: "2", Kind: model.StepConvertTimezone, Order: 2, Params: map[string]any{"fromTimezone": "UTC", "toTimezone": "UTC"}},
		},
	}
	assert.NoError(t, ValidatePipeline(good))

	bad := model.Pipeline{
		ID: "p", ColumnID: "Ts",
		Steps: []model.TransformStep{
			{ID: "1", Kind: model.StepConvertTimezone, Order: 1, Params: map[string]any{"fromTimezone": "UTC", "toTimezone": "UTC"}},
			{ID: "2", Kind: model.StepCastToDate, Order: 2},
		},
	}
	assert.Error(t, ValidatePipeline(bad))
}
