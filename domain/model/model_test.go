package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussianEval(t *testing.T) {
	g := Gaussian{Name: "g", Amplitude: 2, Mean: 10, Stddev: 1}
	assert.InDelta(t, 2, g.Eval(10), 1e-12)
	assert.InDelta(t, 2*math.Exp(-0.5), g.Eval(11), 1e-12)
	assert.Equal(t, 0.0, Gaussian{Amplitude: 1}.Eval(0))
}

func TestContinuumEval(t *testing.T) {
	c := &Continuum{Coeffs: []float64{1, 2, 3}, Pivot: 10}
	// 1 + 2*1 + 3*1
	assert.InDelta(t, 6, c.Eval(11), 1e-12)
	assert.InDelta(t, 1, c.Level(), 1e-12)

	var none *Continuum
	assert.Equal(t, 0.0, none.Eval(5))
	assert.Equal(t, 0.0, none.Level())
}

func TestModel_SwapAndClone(t *testing.T) {
	m := &Model{
		Name:      "hb",
		Continuum: &Continuum{Coeffs: []float64{0.5}},
		Components: []Gaussian{
			{Name: "hb_n", Amplitude: 5, Mean: 4862, Stddev: 1},
			{Name: "hb_out", Amplitude: 1, Mean: 4860, Stddev: 8},
			{Name: "hb_b", Amplitude: 2, Mean: 4862, Stddev: 4},
		},
	}
	c := m.Clone()

	require.True(t, m.Swap("hb_out", "hb_b"))
	out, _ := m.Component("hb_out")
	assert.Equal(t, 4.0, out.Stddev)
	b, _ := m.Component("hb_b")
	assert.Equal(t, 8.0, b.Stddev)
	assert.False(t, m.Swap("hb_out", "missing"))

	// clone is independent
	cout, _ := c.Component("hb_out")
	assert.Equal(t, 8.0, cout.Stddev)
	c.Continuum.Coeffs[0] = 3
	assert.Equal(t, 0.5, m.Continuum.Level())

	assert.Equal(t, []string{"hb_n", "hb_out", "hb_b"}, m.Names())
	assert.InDelta(t, 0.5+5+2, m.Eval(4862)-m.EvalComponent("hb_out", []float64{4862})[0], 1e-9)
	assert.True(t, m.Finite())
	m.Components[0].Amplitude = math.NaN()
	assert.False(t, m.Finite())
}

func TestTemplate_FreeCountAndTies(t *testing.T) {
	tmpl := NewTemplate("sii", 0, 6725)
	tmpl.AddGaussian("a", 1, 6718, 2.9).
		Bound(Amplitude, AtLeast(0)).
		Bound(Stddev, AtLeast(0.8))
	tmpl.AddGaussian("b", 1, 6732, 2.9).
		Bound(Amplitude, AtLeast(0)).
		Tie(Mean, func(m *Model) float64 { g, _ := m.Component("a"); return g.Mean + 14 }).
		Tie(Stddev, func(m *Model) float64 {
			a, _ := m.Component("a")
			b, _ := m.Component("b")
			return a.Stddev * b.Mean / a.Mean
		})

	// continuum + a(3) + b amplitude
	assert.Equal(t, 5, tmpl.Free())

	m := tmpl.InitialModel()
	a, _ := m.Component("a")
	b, _ := m.Component("b")
	assert.InDelta(t, 6718, a.Mean, 1e-9)
	assert.InDelta(t, 6732, b.Mean, 1e-9)
	assert.InDelta(t, 2.9*6732/6718, b.Stddev, 1e-9)
}

func TestTemplate_FixedKeepsValue(t *testing.T) {
	tmpl := NewTemplate("hb", -1, 0)
	tmpl.AddGaussian("hb_n", 3, 4862, 1.5).Fix(Stddev)

	assert.Equal(t, 2, tmpl.Free())
	u := tmpl.Initial()
	u[0] = 10
	m := tmpl.Model(u)
	assert.Nil(t, m.Continuum)
	assert.Equal(t, 1.5, m.Components[0].Stddev)
	assert.Equal(t, 10.0, m.Components[0].Amplitude)
}

func TestBoundTransforms(t *testing.T) {
	cases := []struct {
		name string
		b    Bounds
		x    float64
	}{
		{"unbounded", Unbounded(), -3.2},
		{"lower", AtLeast(0.8), 2.9},
		{"upper", Bounds{Lo: math.Inf(-1), Hi: 5}, 1},
		{"both", Between(1, 4), 2.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := toInternal(tc.x, tc.b)
			assert.InDelta(t, tc.x, toExternal(u, tc.b), 1e-9)
		})
	}

	// any internal value lands inside the bounds
	for _, u := range []float64{-100, -1, 0, 1, 100} {
		x := toExternal(u, Between(1, 4))
		assert.True(t, x >= 1 && x <= 4)
		assert.True(t, toExternal(u, AtLeast(0.8)) >= 0.8)
	}

	// starting values outside the range are pulled inside
	x := toExternal(toInternal(10, Between(1, 4)), Between(1, 4))
	assert.True(t, x < 4 && x > 3.99)
}
