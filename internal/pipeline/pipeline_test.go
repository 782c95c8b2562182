package pipeline

import (
	"context"
	"math"
	"sync"
	"testing"

	"emfit/adapters/fitting"
	"emfit/domain/lines"
	"emfit/domain/spectrum"
	"emfit/domain/target"
	"emfit/internal/bestfit"
	"emfit/internal/errors"
	"emfit/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	spectra map[int64]*spectrum.Spectrum
}

func (f *fakeSource) Spectrum(ctx context.Context, t target.Target) (*spectrum.Spectrum, error) {
	s, ok := f.spectra[t.TargetID]
	if !ok {
		return nil, errors.NotFound("spectrum")
	}
	return s, nil
}

func newSelector() *bestfit.Selector {
	return bestfit.NewSelector(fitting.NewLevMar(1000), bestfit.DefaultOptions())
}

func synthetic(z float64) *spectrum.Spectrum {
	cfg := testkit.DefaultSpectrumConfig()
	cfg.Redshift = z
	return testkit.NewSpectrumGenerator(cfg).Generate()
}

func TestFitIteration(t *testing.T) {
	res, err := FitIteration(newSelector(), synthetic(0), Forced{})
	require.NoError(t, err)

	require.Len(t, res.Selections, 4)
	assert.Equal(t, 1, res.Selections[lines.ComplexSII].NComponents)
	assert.Equal(t, 1, res.Selections[lines.ComplexOIII].NComponents)
	for _, c := range lines.Complexes {
		assert.Contains(t, res.Iteration, c)
		assert.False(t, math.IsNaN(res.RChi2()[c]), c)
	}
}

func TestFitIteration_Forced(t *testing.T) {
	res, err := FitIteration(newSelector(), synthetic(0), Forced{SII: 2, OIII: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Selections[lines.ComplexSII].NComponents)
	assert.True(t, res.Selections[lines.ComplexSII].Fit.Has(lines.SII6716Outflow))
	assert.True(t, res.Selections[lines.ComplexOIII].Fit.Has(lines.OIII5007Outflow))
	// Balmer variants follow the [SII] complexity
	assert.True(t, res.Selections[lines.ComplexHb].HasFlag(bestfit.FlagFreeTwo))
}

func TestMonteCarlo(t *testing.T) {
	spec := synthetic(0)
	fit, err := MonteCarlo(context.Background(), newSelector(), spec, MonteCarloConfig{Iterations: 3, Seed: 7})
	require.NoError(t, err)

	assert.Len(t, fit.Iterations, 3-fit.Failed)
	require.Len(t, fit.Summary, 4)
	for _, it := range fit.Iterations {
		// [SII] keeps the complexity of the first fit
		assert.False(t, it[lines.ComplexSII].Components[lines.SII6716Outflow].Present())
	}

	n := fit.Summary[lines.ComplexSII].Components[lines.SII6716Narrow]
	assert.InDelta(t, lines.SII6716, n.Mean.Value, 1)
	assert.InDelta(t, 90, n.Sigma.Value, 10)
	assert.Greater(t, n.Flux.Value, 0.0)

	assert.GreaterOrEqual(t, fit.PercentHbBroad, 0.0)
	assert.LessOrEqual(t, fit.PercentHaBroad, 100.0)
	assert.False(t, math.IsNaN(fit.RChi2[lines.ComplexSII]))
	assert.Contains(t, fit.Models, lines.ComplexNIIHa)
}

func TestMonteCarlo_SameSeedSameResult(t *testing.T) {
	spec := synthetic(0)
	cfg := MonteCarloConfig{Iterations: 2, Seed: 11}
	a, err := MonteCarlo(context.Background(), newSelector(), spec, cfg)
	require.NoError(t, err)
	b, err := MonteCarlo(context.Background(), newSelector(), spec, cfg)
	require.NoError(t, err)

	assert.Equal(t,
		a.Summary[lines.ComplexOIII].Components[lines.OIII5007Narrow].Amplitude,
		b.Summary[lines.ComplexOIII].Components[lines.OIII5007Narrow].Amplitude)
}

func TestMonteCarlo_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MonteCarlo(ctx, newSelector(), synthetic(0), MonteCarloConfig{Iterations: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner(t *testing.T) {
	source := &fakeSource{spectra: map[int64]*spectrum.Spectrum{
		1: synthetic(0.05),
		3: synthetic(0.1),
	}}
	targets := []target.Target{
		{TargetID: 1, Survey: "main", Program: "dark", Z: 0.05},
		{TargetID: 2, Survey: "main", Program: "dark", Z: 0.2},
		{TargetID: 3, Survey: "main", Program: "bright", Z: 0.1},
	}

	var mu sync.Mutex
	var sunk []int64
	runner := NewRunner(source, newSelector(), RunnerConfig{Workers: 2, MonteCarlo: MonteCarloConfig{Iterations: 1, Seed: 3}}).
		WithSink(func(r TargetResult) error {
			mu.Lock()
			defer mu.Unlock()
			sunk = append(sunk, r.Target.TargetID)
			return nil
		})
	assert.NotEmpty(t, runner.RunID())

	results, err := runner.Run(context.Background(), targets)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, res := range results {
		assert.Equal(t, targets[i].TargetID, res.Target.TargetID)
	}
	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Fit)
	assert.True(t, errors.Is(results[1].Err, errors.CodeNotFound))
	assert.Nil(t, results[1].Fit)
	assert.NoError(t, results[2].Err)
	assert.ElementsMatch(t, []int64{1, 3}, sunk)

	table := ResultTable(results)
	require.Len(t, table.Rows, 3)
	for _, row := range table.Rows {
		assert.Len(t, row, len(table.Columns))
	}

	id := table.Index("TARGETID")
	assert.Equal(t, int64(2), table.Rows[1][id])
	flux := table.Index("SII6716_FLUX")
	require.GreaterOrEqual(t, flux, 0)
	assert.Greater(t, table.Rows[0][flux].(float64), 0.0)
	assert.True(t, math.IsNaN(table.Rows[1][flux].(float64)))
	assert.NotEmpty(t, table.Rows[1][table.Index("ERROR")])
	assert.GreaterOrEqual(t, table.Index("HB_RCHI2"), 0)
	assert.GreaterOrEqual(t, table.Index("NII_HA_FLAGS"), 0)
	assert.GreaterOrEqual(t, table.Index("PERCENT_HA_B"), 0)
}

func TestRunner_Noise(t *testing.T) {
	source := &fakeSource{spectra: map[int64]*spectrum.Spectrum{7: synthetic(0.02)}}
	runner := NewRunner(source, newSelector(), RunnerConfig{Workers: 4})

	results, err := runner.Noise(context.Background(), []target.Target{{TargetID: 7, Z: 0.02}, {TargetID: 8}})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	for _, c := range lines.Complexes {
		// rest-frame noise is the generator's noise level
		assert.InDelta(t, 0.05, results[0].Noise[c], 0.02, c)
	}
	assert.Error(t, results[1].Err)

	table := NoiseTable(results)
	assert.Equal(t, "SII_NOISE", table.Columns[len(table.Columns)-1].Name)
	assert.True(t, math.IsNaN(table.Rows[1][1].(float64)))
}
