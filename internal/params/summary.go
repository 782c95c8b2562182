package params

import (
	"math"

	"emfit/domain/lines"
	"emfit/domain/measure"
	"emfit/domain/model"

	"github.com/montanaflynn/stats"
)

// Estimate is a value with its 1σ error
type Estimate struct {
	Value float64 `json:"value"`
	Err   float64 `json:"err"`
}

// ComponentSummary is the best-fit estimate of one component. Flux and Sigma
// are propagated from the summarized amplitude, mean and width; FluxFits and
// SigmaFits are taken directly over the per-iteration values.
type ComponentSummary struct {
	Amplitude Estimate `json:"amplitude"`
	Mean      Estimate `json:"mean"`
	Std       Estimate `json:"std"`
	Sigma     Estimate `json:"sigma"`
	Flux      Estimate `json:"flux"`
	FluxFits  Estimate `json:"flux_fits"`
	SigmaFits Estimate `json:"sigma_fits"`
}

// ComplexSummary is the best-fit estimate of one complex
type ComplexSummary struct {
	Components map[string]ComponentSummary `json:"components"`
	Continuum  Estimate                    `json:"continuum"`
	RChi2      float64                     `json:"rchi2"`
	DOF        int                         `json:"dof"`

	// ContinuumCoeffs estimates every polynomial coefficient of the continuum
	ContinuumCoeffs []Estimate `json:"continuum_coeffs,omitempty"`
}

// Summary is the best-fit estimate of all complexes
type Summary map[lines.Complex]*ComplexSummary

// Summarize reduces iterations to mean and standard deviation per parameter.
// Only iterations where a component has positive amplitude, mean and width
// contribute to it; a component that is zero throughout stays zero.
func Summarize(iters []Iteration) Summary {
	out := make(Summary, len(lines.Complexes))
	for _, c := range lines.Complexes {
		cs := &ComplexSummary{Components: make(map[string]ComponentSummary)}
		for _, name := range lines.Components(c) {
			cs.Components[name] = summarizeComponent(iters, c, name)
		}
		cs.Continuum, cs.ContinuumCoeffs = summarizeContinuum(iters, c)
		cs.DOF = ModeDOF(iters, c)
		out[c] = cs
	}
	return out
}

func summarizeComponent(iters []Iteration, c lines.Complex, name string) ComponentSummary {
	var amp, mean, variance, flux, sigma []float64
	for _, it := range iters {
		p := it[c].Components[name]
		if p.Amplitude > 0 && p.Mean > 0 && p.Std > 0 {
			amp = append(amp, p.Amplitude)
			mean = append(mean, p.Mean)
			variance = append(variance, p.Std*p.Std)
			flux = append(flux, p.Flux)
			sigma = append(sigma, p.Sigma)
		}
	}
	if len(amp) == 0 {
		return ComponentSummary{}
	}

	s := ComponentSummary{
		Amplitude: estimate(amp),
		Mean:      estimate(mean),
		FluxFits:  estimate(flux),
		SigmaFits: estimate(sigma),
	}
	v := estimate(variance)
	s.Std = Estimate{Value: math.Sqrt(v.Value), Err: math.Sqrt(v.Err)}
	s.Flux.Value, s.Flux.Err = measure.FluxErr(s.Amplitude.Value, s.Std.Value, s.Amplitude.Err, s.Std.Err)
	s.Sigma.Value, s.Sigma.Err = measure.LamToVelErr(s.Std.Value, s.Mean.Value, s.Std.Err, s.Mean.Err)
	return s
}

// summarizeContinuum estimates the continuum level and each coefficient over
// the iterations that fitted a non-zero level.
func summarizeContinuum(iters []Iteration, c lines.Complex) (Estimate, []Estimate) {
	var levels []float64
	var byCoeff [][]float64
	for _, it := range iters {
		cx := it[c]
		if cx.Continuum == 0 || math.IsNaN(cx.Continuum) {
			continue
		}
		levels = append(levels, cx.Continuum)
		for k, v := range cx.ContinuumCoeffs {
			if k == len(byCoeff) {
				byCoeff = append(byCoeff, nil)
			}
			byCoeff[k] = append(byCoeff[k], v)
		}
	}
	if len(levels) == 0 {
		return Estimate{}, nil
	}

	var out []Estimate
	for _, vals := range byCoeff {
		out = append(out, estimate(vals))
	}
	return estimate(levels), out
}

// estimate is the mean and population standard deviation
func estimate(vals []float64) Estimate {
	m, _ := stats.Mean(vals)
	sd, _ := stats.StandardDeviationPopulation(vals)
	return Estimate{Value: m, Err: sd}
}

// ModeDOF returns the most common degrees of freedom of a complex, the
// smallest on ties.
func ModeDOF(iters []Iteration, c lines.Complex) int {
	var dofs []float64
	for _, it := range iters {
		if cx, ok := it[c]; ok {
			dofs = append(dofs, float64(cx.DOF))
		}
	}
	if len(dofs) == 0 {
		return 0
	}
	modes, _ := stats.Mode(dofs)
	seen := make(map[float64]bool, len(dofs))
	for _, d := range dofs {
		seen[d] = true
	}
	var valid []float64
	for _, m := range modes {
		if seen[m] {
			valid = append(valid, m)
		}
	}
	if len(valid) == 0 {
		// all values equally frequent
		valid = dofs
	}
	lowest, _ := stats.Min(valid)
	return int(lowest)
}

// PercentBroad is the share of iterations, in percent, with a broad component
func PercentBroad(iters []Iteration, c lines.Complex, name string) float64 {
	if len(iters) == 0 {
		return 0
	}
	n := 0
	for _, it := range iters {
		if it.HasBroad(c, name) {
			n++
		}
	}
	return float64(n) * 100 / float64(len(iters))
}

var swapPairs = []struct {
	complex         lines.Complex
	narrow, outflow string
}{
	{lines.ComplexHb, lines.HbNarrow, lines.HbOutflow},
	{lines.ComplexNIIHa, lines.NII6548Narrow, lines.NII6548Outflow},
	{lines.ComplexNIIHa, lines.NII6583Narrow, lines.NII6583Outflow},
	{lines.ComplexNIIHa, lines.HaNarrow, lines.HaOutflow},
}

// FixSwapped moves an outflow into the narrow slot when the narrow
// component vanished but the outflow did not.
func FixSwapped(s Summary) {
	for _, p := range swapPairs {
		cs, ok := s[p.complex]
		if !ok {
			continue
		}
		n, out := cs.Components[p.narrow], cs.Components[p.outflow]
		if n.Amplitude.Value == 0 && out.Amplitude.Value != 0 {
			cs.Components[p.narrow], cs.Components[p.outflow] = out, n
		}
	}
}

// Construct rebuilds the best-fit model of a complex from its summary.
// Components with zero flux are left out.
func Construct(c lines.Complex, cs *ComplexSummary, pivot float64) *model.Model {
	cont := []float64{cs.Continuum.Value}
	if len(cs.ContinuumCoeffs) > 1 {
		cont = make([]float64, len(cs.ContinuumCoeffs))
		for k, e := range cs.ContinuumCoeffs {
			cont[k] = e.Value
		}
	}
	m := &model.Model{
		Name:      string(c),
		Continuum: &model.Continuum{Coeffs: cont, Pivot: pivot},
	}
	for _, name := range lines.Components(c) {
		p := cs.Components[name]
		if p.Flux.Value == 0 {
			continue
		}
		m.Components = append(m.Components, model.Gaussian{
			Name:      name,
			Amplitude: p.Amplitude.Value,
			Mean:      p.Mean.Value,
			Stddev:    p.Std.Value,
		})
	}
	return m
}
