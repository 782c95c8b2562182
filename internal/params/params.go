// Package params turns fitted models into flat parameter rows and reduces
// Monte Carlo iterations into best-fit values with errors.
package params

import (
	"emfit/domain/lines"
	"emfit/domain/measure"
	"emfit/domain/model"
	"emfit/internal/bestfit"
)

// Component holds the measured parameters of one Gaussian
type Component struct {
	Amplitude float64 `json:"amplitude"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Sigma     float64 `json:"sigma"`
	Flux      float64 `json:"flux"`
}

// Present reports whether the component was fitted
func (c Component) Present() bool {
	return c.Amplitude != 0 || c.Mean != 0 || c.Std != 0
}

// Extract measures every named component of m; absent components are zero
func Extract(m *model.Model, names []string) map[string]Component {
	out := make(map[string]Component, len(names))
	for _, name := range names {
		g, ok := m.Component(name)
		if !ok {
			out[name] = Component{}
			continue
		}
		out[name] = Component{
			Amplitude: g.Amplitude,
			Mean:      g.Mean,
			Std:       g.Stddev,
			Sigma:     measure.LamToVel(g.Stddev, g.Mean),
			Flux:      measure.Flux(g.Amplitude, g.Stddev),
		}
	}
	return out
}

// Complex is one complex's part of an iteration
type Complex struct {
	Components map[string]Component `json:"components"`
	Continuum  float64              `json:"continuum"`
	RChi2      float64              `json:"rchi2"`
	DOF        int                  `json:"dof"`
	Flags      int64                `json:"flags"`
	Broad      bool                 `json:"broad"`

	// ContinuumCoeffs holds every polynomial coefficient; Continuum is the first
	ContinuumCoeffs []float64 `json:"continuum_coeffs,omitempty"`
}

// Iteration is the flat record of one fit of all four complexes
type Iteration map[lines.Complex]Complex

// NewIteration records the selections of one iteration
func NewIteration(sels map[lines.Complex]*bestfit.Selection) Iteration {
	it := make(Iteration, len(sels))
	for c, sel := range sels {
		if sel == nil || sel.Fit == nil {
			continue
		}
		it[c] = Complex{
			Components:      Extract(sel.Fit, lines.Components(c)),
			Continuum:       sel.Fit.Continuum.Level(),
			ContinuumCoeffs: coeffs(sel.Fit.Continuum),
			RChi2:           sel.RChi2,
			DOF:             sel.DOF,
			Flags:           sel.FlagMask(),
			Broad:           sel.Broad,
		}
	}
	return it
}

func coeffs(c *model.Continuum) []float64 {
	if c == nil {
		return nil
	}
	return append([]float64(nil), c.Coeffs...)
}

// HasBroad reports whether the named broad component has positive flux
func (it Iteration) HasBroad(c lines.Complex, name string) bool {
	return it[c].Components[name].Flux > 0
}
