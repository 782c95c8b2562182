package model

import (
	"fmt"
	"math"
)

// Field selects a Gaussian parameter
type Field int

const (
	Amplitude Field = iota
	Mean
	Stddev
)

func (f Field) String() string {
	switch f {
	case Amplitude:
		return "amplitude"
	case Mean:
		return "mean"
	case Stddev:
		return "stddev"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Bounds is an inclusive parameter range; infinite ends are open
type Bounds struct {
	Lo float64
	Hi float64
}

// Unbounded places no limit on a parameter
func Unbounded() Bounds { return Bounds{Lo: math.Inf(-1), Hi: math.Inf(1)} }

// AtLeast bounds a parameter from below
func AtLeast(lo float64) Bounds { return Bounds{Lo: lo, Hi: math.Inf(1)} }

// Between bounds a parameter on both sides
func Between(lo, hi float64) Bounds { return Bounds{Lo: lo, Hi: hi} }

// TieFunc computes a parameter from the other parameters of the model
type TieFunc func(m *Model) float64

type param struct {
	comp   int // -1 for the continuum
	field  Field
	coeff  int
	bounds Bounds
	fixed  bool
	tie    TieFunc
}

func (p *param) free() bool {
	return !p.fixed && p.tie == nil
}

// Template is an initial model plus the constraints of every parameter. The
// fitter varies the free parameters; tied ones are recomputed after each step
// in declaration order, fixed ones keep their initial value.
type Template struct {
	initial *Model
	params  []*param
}

// NewTemplate starts a template. A negative continuum degree fits no continuum.
func NewTemplate(name string, continuumDegree int, pivot float64) *Template {
	t := &Template{initial: &Model{Name: name}}
	if continuumDegree >= 0 {
		t.initial.Continuum = &Continuum{Coeffs: make([]float64, continuumDegree+1), Pivot: pivot}
		for k := 0; k <= continuumDegree; k++ {
			t.params = append(t.params, &param{comp: -1, coeff: k, bounds: Unbounded()})
		}
	}
	return t
}

// GaussianSpec configures the parameters of one component in a template
type GaussianSpec struct {
	t    *Template
	comp int
}

// AddGaussian appends a component with the given starting values
func (t *Template) AddGaussian(name string, amp, mean, std float64) *GaussianSpec {
	t.initial.Components = append(t.initial.Components, Gaussian{Name: name, Amplitude: amp, Mean: mean, Stddev: std})
	comp := len(t.initial.Components) - 1
	for _, f := range []Field{Amplitude, Mean, Stddev} {
		t.params = append(t.params, &param{comp: comp, field: f, bounds: Unbounded()})
	}
	return &GaussianSpec{t: t, comp: comp}
}

func (s *GaussianSpec) param(f Field) *param {
	for _, p := range s.t.params {
		if p.comp == s.comp && p.field == f {
			return p
		}
	}
	panic("model: unknown field " + f.String())
}

// Bound restricts a parameter to a range
func (s *GaussianSpec) Bound(f Field, b Bounds) *GaussianSpec {
	s.param(f).bounds = b
	return s
}

// Tie derives a parameter from the rest of the model
func (s *GaussianSpec) Tie(f Field, fn TieFunc) *GaussianSpec {
	s.param(f).tie = fn
	return s
}

// Fix holds a parameter at its starting value
func (s *GaussianSpec) Fix(f Field) *GaussianSpec {
	s.param(f).fixed = true
	return s
}

// Name returns the component name
func (s *GaussianSpec) Name() string {
	return s.t.initial.Components[s.comp].Name
}

// Has reports whether the template contains the named component
func (t *Template) Has(name string) bool {
	return t.initial.Has(name)
}

// Name returns the model name
func (t *Template) Name() string {
	return t.initial.Name
}

// Free returns the number of free parameters
func (t *Template) Free() int {
	n := 0
	for _, p := range t.params {
		if p.free() {
			n++
		}
	}
	return n
}

// Initial returns the starting point in the fitter's unbounded space
func (t *Template) Initial() []float64 {
	out := make([]float64, 0, t.Free())
	for _, p := range t.params {
		if !p.free() {
			continue
		}
		out = append(out, toInternal(t.get(t.initial, p), p.bounds))
	}
	return out
}

// Model maps a vector in the fitter's unbounded space onto a model
func (t *Template) Model(u []float64) *Model {
	m := t.initial.Clone()
	k := 0
	for _, p := range t.params {
		if p.free() {
			t.set(m, p, toExternal(u[k], p.bounds))
			k++
		}
	}
	for _, p := range t.params {
		if p.tie != nil {
			t.set(m, p, p.tie(m))
		}
	}
	return m
}

// InitialModel returns the starting model with ties applied
func (t *Template) InitialModel() *Model {
	return t.Model(t.Initial())
}

func (t *Template) get(m *Model, p *param) float64 {
	if p.comp < 0 {
		return m.Continuum.Coeffs[p.coeff]
	}
	g := m.Components[p.comp]
	switch p.field {
	case Amplitude:
		return g.Amplitude
	case Mean:
		return g.Mean
	default:
		return g.Stddev
	}
}

func (t *Template) set(m *Model, p *param, v float64) {
	if p.comp < 0 {
		m.Continuum.Coeffs[p.coeff] = v
		return
	}
	g := &m.Components[p.comp]
	switch p.field {
	case Amplitude:
		g.Amplitude = v
	case Mean:
		g.Mean = v
	default:
		g.Stddev = v
	}
}

// Bounded parameters are mapped onto an unbounded internal variable: a sine
// for two-sided ranges and a hyperbola for one-sided ones.
func toExternal(u float64, b Bounds) float64 {
	loInf, hiInf := math.IsInf(b.Lo, -1), math.IsInf(b.Hi, 1)
	switch {
	case loInf && hiInf:
		return u
	case !loInf && !hiInf:
		return b.Lo + (b.Hi-b.Lo)*(math.Sin(u)+1)/2
	case !loInf:
		return b.Lo - 1 + math.Sqrt(u*u+1)
	default:
		return b.Hi + 1 - math.Sqrt(u*u+1)
	}
}

func toInternal(x float64, b Bounds) float64 {
	loInf, hiInf := math.IsInf(b.Lo, -1), math.IsInf(b.Hi, 1)
	switch {
	case loInf && hiInf:
		return x
	case !loInf && !hiInf:
		if b.Hi <= b.Lo {
			return 0
		}
		// keep away from the edges, where the derivative vanishes
		eps := 1e-6 * (b.Hi - b.Lo)
		x = math.Min(math.Max(x, b.Lo+eps), b.Hi-eps)
		return math.Asin(2*(x-b.Lo)/(b.Hi-b.Lo) - 1)
	case !loInf:
		x = math.Max(x, b.Lo+1e-6*(1+math.Abs(b.Lo)))
		d := x - b.Lo + 1
		return math.Sqrt(d*d - 1)
	default:
		x = math.Min(x, b.Hi-1e-6*(1+math.Abs(b.Hi)))
		d := b.Hi - x + 1
		return math.Sqrt(d*d - 1)
	}
}
