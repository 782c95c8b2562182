package params

import (
	"math"
	"testing"

	"emfit/domain/lines"
	"emfit/domain/measure"
	"emfit/domain/model"
	"emfit/domain/spectrum"
	"emfit/internal/bestfit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hbIteration(ampN, ampOut, ampB float64, cont float64, dof int) Iteration {
	comps := map[string]Component{}
	set := func(name string, amp, std float64) {
		if amp == 0 {
			comps[name] = Component{}
			return
		}
		comps[name] = Component{
			Amplitude: amp,
			Mean:      lines.Hb,
			Std:       std,
			Sigma:     measure.LamToVel(std, lines.Hb),
			Flux:      measure.Flux(amp, std),
		}
	}
	set(lines.HbNarrow, ampN, 1.5)
	set(lines.HbOutflow, ampOut, 4)
	set(lines.HbBroad, ampB, 20)
	return Iteration{lines.ComplexHb: {Components: comps, Continuum: cont, DOF: dof}}
}

func TestExtract(t *testing.T) {
	m := &model.Model{Components: []model.Gaussian{{Name: lines.HbNarrow, Amplitude: 2, Mean: lines.Hb, Stddev: 1.5}}}
	p := Extract(m, lines.Components(lines.ComplexHb))

	require.Len(t, p, 3)
	assert.InDelta(t, measure.Flux(2, 1.5), p[lines.HbNarrow].Flux, 1e-12)
	assert.InDelta(t, measure.LamToVel(1.5, lines.Hb), p[lines.HbNarrow].Sigma, 1e-12)
	assert.False(t, p[lines.HbBroad].Present())
	assert.True(t, p[lines.HbNarrow].Present())
}

func TestNewIteration(t *testing.T) {
	sel := &bestfit.Selection{
		Fit: &model.Model{
			Continuum:  &model.Continuum{Coeffs: []float64{0.4}},
			Components: []model.Gaussian{{Name: lines.SII6716Narrow, Amplitude: 1, Mean: lines.SII6716, Stddev: 2}},
		},
		RChi2: 1.1,
		DOF:   5,
		Flags: []int{0, 4},
	}
	it := NewIteration(map[lines.Complex]*bestfit.Selection{lines.ComplexSII: sel, lines.ComplexHb: nil})

	require.Contains(t, it, lines.ComplexSII)
	assert.NotContains(t, it, lines.ComplexHb)
	assert.Equal(t, 0.4, it[lines.ComplexSII].Continuum)
	assert.Equal(t, int64(17), it[lines.ComplexSII].Flags)
	assert.Len(t, it[lines.ComplexSII].Components, 4)
}

func TestSummarize(t *testing.T) {
	iters := []Iteration{
		hbIteration(2, 0, 1, 0.5, 7),
		hbIteration(4, 0, 0, 0.7, 4),
		hbIteration(3, 0, 1, 0, 7),
	}
	s := Summarize(iters)
	hb := s[lines.ComplexHb]

	n := hb.Components[lines.HbNarrow]
	assert.InDelta(t, 3, n.Amplitude.Value, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3), n.Amplitude.Err, 1e-12)
	assert.InDelta(t, 1.5, n.Std.Value, 1e-12)
	assert.InDelta(t, 0, n.Std.Err, 1e-12)
	assert.InDelta(t, measure.Flux(3, 1.5), n.Flux.Value, 1e-9)
	assert.InDelta(t, measure.Flux(3, 1.5), n.FluxFits.Value, 1e-9)

	// broad only counts the iterations where it was fitted
	b := hb.Components[lines.HbBroad]
	assert.InDelta(t, 1, b.Amplitude.Value, 1e-12)
	assert.InDelta(t, 0, b.Amplitude.Err, 1e-12)

	assert.Equal(t, ComponentSummary{}, hb.Components[lines.HbOutflow])

	// zero continuum entries are ignored
	assert.InDelta(t, 0.6, hb.Continuum.Value, 1e-12)
	assert.InDelta(t, 0.1, hb.Continuum.Err, 1e-12)

	assert.Equal(t, 7, hb.DOF)
	assert.InDelta(t, 200.0/3, PercentBroad(iters, lines.ComplexHb, lines.HbBroad), 1e-9)
}

func TestModeDOF(t *testing.T) {
	iters := []Iteration{hbIteration(1, 0, 0, 0, 8), hbIteration(1, 0, 0, 0, 5)}
	assert.Equal(t, 5, ModeDOF(iters, lines.ComplexHb))

	iters = append(iters, hbIteration(1, 0, 0, 0, 8))
	assert.Equal(t, 8, ModeDOF(iters, lines.ComplexHb))

	assert.Equal(t, 0, ModeDOF(nil, lines.ComplexHb))
}

func TestFixSwapped(t *testing.T) {
	s := Summarize([]Iteration{hbIteration(0, 2, 0, 0, 5)})
	FixSwapped(s)

	hb := s[lines.ComplexHb]
	assert.InDelta(t, 2, hb.Components[lines.HbNarrow].Amplitude.Value, 1e-12)
	assert.InDelta(t, 4, hb.Components[lines.HbNarrow].Std.Value, 1e-12)
	assert.Equal(t, 0.0, hb.Components[lines.HbOutflow].Amplitude.Value)
}

func TestConstructAndFinalRChi2(t *testing.T) {
	s := Summarize([]Iteration{hbIteration(2, 0, 1, 0.5, 4)})
	m := Construct(lines.ComplexHb, s[lines.ComplexHb], 4815)
	assert.Equal(t, []string{lines.HbNarrow, lines.HbBroad}, m.Names())
	assert.Equal(t, 0.5, m.Continuum.Level())

	// a spectrum drawn exactly from the rebuilt model
	var lam, flam, ivar []float64
	for l := 4700.0; l <= 4930; l++ {
		lam = append(lam, l)
		flam = append(flam, m.Eval(l))
		ivar = append(ivar, 1)
	}
	spec, err := spectrum.New(lam, flam, ivar, nil)
	require.NoError(t, err)

	r := FinalRChi2(spec, s)
	assert.InDelta(t, 0, r[lines.ComplexHb], 1e-12)
	assert.True(t, math.IsNaN(r[lines.ComplexSII]))
	assert.InDelta(t, 0, s[lines.ComplexHb].RChi2, 1e-12)
}

func TestFinalRChi2_SlopedContinuum(t *testing.T) {
	w := lines.FitWindow(lines.ComplexSII)
	pivot := (w.Lo + w.Hi) / 2
	truth := &model.Model{
		Continuum: &model.Continuum{Coeffs: []float64{1, 0.01}, Pivot: pivot},
		Components: []model.Gaussian{
			{Name: lines.SII6716Narrow, Amplitude: 3, Mean: lines.SII6716, Stddev: 2.2},
			{Name: lines.SII6731Narrow, Amplitude: 2, Mean: lines.SII6731, Stddev: 2.2},
		},
	}
	sel := &bestfit.Selection{Fit: truth, RChi2: 0, DOF: 6}

	var iters []Iteration
	for i := 0; i < 3; i++ {
		iters = append(iters, NewIteration(map[lines.Complex]*bestfit.Selection{lines.ComplexSII: sel}))
	}
	assert.Equal(t, []float64{1, 0.01}, iters[0][lines.ComplexSII].ContinuumCoeffs)

	s := Summarize(iters)
	sii := s[lines.ComplexSII]
	require.Len(t, sii.ContinuumCoeffs, 2)
	assert.InDelta(t, 0.01, sii.ContinuumCoeffs[1].Value, 1e-15)
	assert.InDelta(t, 1, sii.Continuum.Value, 1e-15)

	m := Construct(lines.ComplexSII, sii, pivot)
	assert.InDeltaSlice(t, []float64{1, 0.01}, m.Continuum.Coeffs, 1e-15)

	var lam, flam, ivar []float64
	for l := w.Lo; l <= w.Hi; l++ {
		lam = append(lam, l)
		flam = append(flam, truth.Eval(l))
		ivar = append(ivar, 1)
	}
	spec, err := spectrum.New(lam, flam, ivar, nil)
	require.NoError(t, err)

	r := FinalRChi2(spec, s)
	assert.InDelta(t, 0, r[lines.ComplexSII], 1e-9)
}
