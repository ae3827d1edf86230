package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunsoman/match-magic/internal/config"
	"github.com/arunsoman/match-magic/internal/model"
	"github.com/arunsoman/match-magic/internal/recon"
	"github.com/arunsoman/match-magic/internal/store"
)

func basicSetup() *config.Setup {
	return &config.Setup{
		Version: config.SetupVersion,
		Mappings: []model.ColumnMapping{
			{ID: "m1", Source: []string{"Amount"}, Target: "Value", Match: model.MatchExact},
		},
		SortConfiguration: model.ReconcileConfig{
			SourceSortKey: "Amount",
			TargetSortKey: "Value",
			ToleranceUnit: model.UnitExact,
			MatchStrategy: model.StrategyExact,
		},
	}
}

func TestNew_RejectsInvalidSetup(t *testing.T) {
	_, err := New(&config.Setup{Version: config.SetupVersion})
	assert.True(t, eris.Is(err, recon.ErrConfigInvalid))

	_, err = New(nil)
	assert.True(t, eris.Is(err, recon.ErrConfigInvalid))
}

func TestRun_EndToEnd(t *testing.T) {
	p, err := New(basicSetup())
	require.NoError(t, err)

	sources := []model.Row{
		{"Amount": model.String("1500.00"), model.LineKey: model.Number(2)},
		{"Amount": model.String("99.00"), model.LineKey: model.Number(3)},
	}
	targets := []model.Row{
		{"Value": model.String("1500.00"), model.LineKey: model.Number(2)},
	}

	result, err := p.Run(context.Background(), "bank.csv", "ledger.csv", sources, targets)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.Matched)
	assert.Equal(t, 1, result.Summary.UnmatchedSource)
	assert.Equal(t, 0, result.Summary.UnmatchedTarget)
	assert.False(t, result.Streaming)
	assert.Len(t, result.Results, 3)
}

func TestRun_UnsortedInputsAreSorted(t *testing.T) {
	p, err := New(basicSetup())
	require.NoError(t, err)

	sources := []model.Row{
		{"Amount": model.Number(300)},
		{"Amount": model.Number(100)},
		{"Amount": model.Number(200)},
	}
	targets := []model.Row{
		{"Value": model.Number(200)},
		{"Value": model.Number(300)},
		{"Value": model.Number(100)},
	}

	result, err := p.Run(context.Background(), "a", "b", sources, targets)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Summary.Matched)
}

func TestRun_VirtualFieldsAndTransforms(t *testing.T) {
	setup := &config.Setup{
		Version: config.SetupVersion,
		Mappings: []model.ColumnMapping{
			{ID: "m1", Source: []string{"Net"}, Target: "Amount", Match: model.MatchExact},
		},
		VirtualFields: []model.VirtualField{
			{
				Name: "Net", Side: model.SideSource, Type: model.TypeNumber,
				Fields:     []model.FieldRef{{Name: "Gross"}, {Name: "Fee"}},
				Operations: []model.FieldOp{model.OpSubtract},
			},
		},
		Transformations: []model.Pipeline{
			{
				ID: "t1", Side: model.SideTarget, ColumnID: "Amount",
				Steps: []model.TransformStep{
					{ID: "s1", Kind: model.StepCastToNumber, Order: 1},
				},
			},
		},
		SortConfiguration: model.ReconcileConfig{
			SourceSortKey: "Net",
			TargetSortKey: "Amount",
			ToleranceUnit: model.UnitExact,
			MatchStrategy: model.StrategyExact,
		},
	}

	p, err := New(setup)
	require.NoError(t, err)

	sources := []model.Row{{"Gross": model.Number(110), "Fee": model.Number(10)}}
	targets := []model.Row{{"Amount": model.String("$100.00")}}

	result, err := p.Run(context.Background(), "a", "b", sources, targets)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Matched)
}

func TestRun_ExcludedRowsTallied(t *testing.T) {
	setup := basicSetup()
	setup.Transformations = []model.Pipeline{
		{
			ID: "t1", Side: model.SideSource, ColumnID: "Amount",
			Steps: []model.TransformStep{
				{ID: "s1", Kind: model.StepExcludeIfNull, Order: 1},
			},
		},
	}

	p, err := New(setup)
	require.NoError(t, err)

	sources := []model.Row{
		{"Amount": model.Number(1)},
		{"Amount": model.Null()},
	}
	result, err := p.Run(context.Background(), "a", "b", sources, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.DroppedSource)
	assert.Equal(t, 1, result.Summary.UnmatchedSource)
	assert.Len(t, result.Results, 1)
}

func TestRun_SortKeyAbsentFromBothSides(t *testing.T) {
	setup := basicSetup()
	setup.SortConfiguration.SourceSortKey = "Nope"
	setup.SortConfiguration.TargetSortKey = "AlsoNope"

	p, err := New(setup)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "a", "b",
		[]model.Row{{"Amount": model.Number(1)}},
		[]model.Row{{"Value": model.Number(1)}},
	)
	assert.True(t, eris.Is(err, recon.ErrConfigInvalid))
}

func TestRun_PersistsToStore(t *testing.T) {
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(context.Background()))

	p, err := New(basicSetup(), WithStore(st), WithClock(func() time.Time {
		return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "bank.csv", "ledger.csv",
		[]model.Row{{"Amount": model.Number(1)}},
		[]model.Row{{"Value": model.Number(1)}},
	)
	require.NoError(t, err)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Result)
	assert.Equal(t, 1, runs[0].Result.Summary.Matched)
}

func TestRun_ProgressStages(t *testing.T) {
	var mu sync.Mutex
	var stages []string
	p, err := New(basicSetup(), WithProgress(func(pr recon.Progress) {
		mu.Lock()
		stages = append(stages, pr.Stage)
		mu.Unlock()
	}))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "a", "b",
		[]model.Row{{"Amount": model.Number(1)}},
		[]model.Row{{"Value": model.Number(1)}},
	)
	require.NoError(t, err)
	assert.Contains(t, stages, recon.StageComplete)
}
