// Package model describes emission-line models: a polynomial continuum plus a
// set of named Gaussian components, and the templates used to fit them.
package model

import (
	"math"
)

// Gaussian is a single named Gaussian component
type Gaussian struct {
	Name      string  `json:"name"`
	Amplitude float64 `json:"amplitude"`
	Mean      float64 `json:"mean"`
	Stddev    float64 `json:"stddev"`
}

// Eval returns the Gaussian at x
func (g Gaussian) Eval(x float64) float64 {
	if g.Stddev == 0 {
		return 0
	}
	d := (x - g.Mean) / g.Stddev
	return g.Amplitude * math.Exp(-0.5*d*d)
}

// Continuum is a polynomial in (x - Pivot). A single coefficient is a constant.
type Continuum struct {
	Coeffs []float64 `json:"coeffs"`
	Pivot  float64   `json:"pivot"`
}

// Eval returns the continuum at x; a nil continuum is zero
func (c *Continuum) Eval(x float64) float64 {
	if c == nil {
		return 0
	}
	dx := x - c.Pivot
	v := 0.0
	for i := len(c.Coeffs) - 1; i >= 0; i-- {
		v = v*dx + c.Coeffs[i]
	}
	return v
}

// Level returns the continuum value at the pivot
func (c *Continuum) Level() float64 {
	if c == nil || len(c.Coeffs) == 0 {
		return 0
	}
	return c.Coeffs[0]
}

// Model is a continuum plus Gaussian components
type Model struct {
	Name       string     `json:"name"`
	Continuum  *Continuum `json:"continuum,omitempty"`
	Components []Gaussian `json:"components"`
}

// Eval returns the model at x
func (m *Model) Eval(x float64) float64 {
	v := m.Continuum.Eval(x)
	for _, g := range m.Components {
		v += g.Eval(x)
	}
	return v
}

// EvalAll evaluates the model on every element of xs
func (m *Model) EvalAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = m.Eval(x)
	}
	return out
}

// EvalComponent evaluates a single named component on xs; zero if absent
func (m *Model) EvalComponent(name string, xs []float64) []float64 {
	out := make([]float64, len(xs))
	g, ok := m.Component(name)
	if !ok {
		return out
	}
	for i, x := range xs {
		out[i] = g.Eval(x)
	}
	return out
}

// Component returns the named component
func (m *Model) Component(name string) (Gaussian, bool) {
	if i := m.index(name); i >= 0 {
		return m.Components[i], true
	}
	return Gaussian{}, false
}

// Has reports whether the model contains the named component
func (m *Model) Has(name string) bool {
	return m.index(name) >= 0
}

// NumComponents returns the number of Gaussian components
func (m *Model) NumComponents() int {
	return len(m.Components)
}

// Names returns component names in model order
func (m *Model) Names() []string {
	out := make([]string, len(m.Components))
	for i, g := range m.Components {
		out[i] = g.Name
	}
	return out
}

// Clone returns a deep copy
func (m *Model) Clone() *Model {
	out := &Model{Name: m.Name, Components: append([]Gaussian(nil), m.Components...)}
	if m.Continuum != nil {
		out.Continuum = &Continuum{Coeffs: append([]float64(nil), m.Continuum.Coeffs...), Pivot: m.Continuum.Pivot}
	}
	return out
}

// Swap exchanges the parameters of two components while keeping their names.
// It reports false when either component is missing.
func (m *Model) Swap(a, b string) bool {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return false
	}
	gi, gj := m.Components[i], m.Components[j]
	m.Components[i] = Gaussian{Name: gi.Name, Amplitude: gj.Amplitude, Mean: gj.Mean, Stddev: gj.Stddev}
	m.Components[j] = Gaussian{Name: gj.Name, Amplitude: gi.Amplitude, Mean: gi.Mean, Stddev: gi.Stddev}
	return true
}

// Finite reports whether every parameter of the model is finite
func (m *Model) Finite() bool {
	if m.Continuum != nil {
		for _, c := range m.Continuum.Coeffs {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	for _, g := range m.Components {
		for _, v := range []float64{g.Amplitude, g.Mean, g.Stddev} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func (m *Model) index(name string) int {
	for i, g := range m.Components {
		if g.Name == name {
			return i
		}
	}
	return -1
}
