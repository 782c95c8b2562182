package complexes

import (
	"testing"

	"emfit/domain/lines"
	"emfit/domain/measure"
	"emfit/domain/model"
	"emfit/domain/spectrum"
	"emfit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatWindow(t *testing.T, c lines.Complex, level float64) *spectrum.Spectrum {
	t.Helper()
	w := lines.FitWindow(c)
	var lam, flam, ivar []float64
	for l := w.Lo; l <= w.Hi; l += 0.8 {
		lam = append(lam, l)
		flam = append(flam, level)
		ivar = append(ivar, 1)
	}
	s, err := spectrum.New(lam, flam, ivar, nil)
	require.NoError(t, err)
	return s
}

func siiReference(outflow bool) *model.Model {
	m := &model.Model{Components: []model.Gaussian{
		{Name: lines.SII6716Narrow, Amplitude: 3, Mean: lines.SII6716, Stddev: 2.5},
		{Name: lines.SII6731Narrow, Amplitude: 2, Mean: lines.SII6731, Stddev: 2.5 * lines.SII6731 / lines.SII6716},
	}}
	if outflow {
		m.Components = append(m.Components,
			model.Gaussian{Name: lines.SII6716Outflow, Amplitude: 1, Mean: lines.SII6716 - 1, Stddev: 5},
			model.Gaussian{Name: lines.SII6731Outflow, Amplitude: 0.6, Mean: lines.SII6731 - 1, Stddev: 5})
	}
	return m
}

func TestVariant_Flag(t *testing.T) {
	assert.Equal(t, 0, VariantFor(WidthFree, 1).Flag())
	assert.Equal(t, 1, VariantFor(WidthFixed, 1).Flag())
	assert.Equal(t, 2, VariantFor(WidthFree, 2).Flag())
	assert.Equal(t, 3, VariantFor(WidthFixed, 2).Flag())

	w, err := ParseWidth("Fixed")
	require.NoError(t, err)
	assert.Equal(t, WidthFixed, w)
	_, err = ParseWidth("loose")
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestSII_Templates(t *testing.T) {
	win := flatWindow(t, lines.ComplexSII, 1)
	o := DefaultOptions()

	one := SII(win, 1, o)
	assert.Equal(t, 5, one.Free())

	two := SII(win, 2, o)
	assert.Equal(t, 9, two.Free())

	m := two.InitialModel()
	n16 := component(m, lines.SII6716Narrow)
	n31 := component(m, lines.SII6731Narrow)
	o31 := component(m, lines.SII6731Outflow)
	assert.InDelta(t, n16.Mean+lines.SIISeparation, n31.Mean, 1e-9)
	assert.InDelta(t, measure.LamToVel(n16.Stddev, n16.Mean), measure.LamToVel(n31.Stddev, n31.Mean), 1e-9)
	assert.InDelta(t, 1.0/6, o31.Amplitude, 1e-6)

	o.FitContinuum = false
	assert.Equal(t, 4, SII(win, 1, o).Free())
}

func TestOIII_Templates(t *testing.T) {
	win := flatWindow(t, lines.ComplexOIII, 2)
	o := DefaultOptions()

	one := OIII(win, 1, o)
	assert.Equal(t, 4, one.Free())
	m := one.InitialModel()
	assert.InDelta(t, 2*lines.OIIIRatio, component(m, lines.OIII5007Narrow).Amplitude, 1e-6)

	assert.Equal(t, 7, OIII(win, 2, o).Free())
}

func TestHb_Variants(t *testing.T) {
	win := flatWindow(t, lines.ComplexHb, 1)
	o := DefaultOptions()
	sii := siiReference(true)

	cases := []struct {
		v     Variant
		broad bool
		free  int
	}{
		{VariantFor(WidthFree, 1), false, 4},
		{VariantFor(WidthFree, 1), true, 7},
		{VariantFor(WidthFree, 2), false, 7},
		{VariantFor(WidthFree, 2), true, 10},
		{VariantFor(WidthFixed, 1), false, 3},
		{VariantFor(WidthFixed, 1), true, 6},
		{VariantFor(WidthFixed, 2), false, 5},
		{VariantFor(WidthFixed, 2), true, 8},
	}
	for _, tc := range cases {
		tmpl, err := Hb(win, sii, tc.v, tc.broad, o)
		require.NoError(t, err)
		assert.Equal(t, tc.free, tmpl.Free(), "%s broad=%v", tc.v, tc.broad)
		assert.Equal(t, tc.broad, tmpl.Has(lines.HbBroad))
	}

	// fixed narrow width matches [SII] in velocity
	tmpl, err := Hb(win, sii, VariantFor(WidthFixed, 1), false, o)
	require.NoError(t, err)
	hb := component(tmpl.InitialModel(), lines.HbNarrow)
	assert.InDelta(t, measure.LamToVel(2.5, lines.SII6716), measure.LamToVel(hb.Stddev, hb.Mean), 1e-6)

	_, err = Hb(win, siiReference(false), VariantFor(WidthFree, 2), false, o)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestNIIHa_Variants(t *testing.T) {
	win := flatWindow(t, lines.ComplexNIIHa, 1)
	o := DefaultOptions()
	sii := siiReference(true)

	cases := []struct {
		v     Variant
		broad bool
		free  int
	}{
		{VariantFor(WidthFree, 1), false, 6},
		{VariantFor(WidthFree, 1), true, 9},
		{VariantFor(WidthFree, 2), false, 11},
		{VariantFor(WidthFree, 2), true, 14},
		{VariantFor(WidthFixed, 1), false, 5},
		{VariantFor(WidthFixed, 1), true, 8},
		{VariantFor(WidthFixed, 2), false, 9},
		{VariantFor(WidthFixed, 2), true, 12},
	}
	for _, tc := range cases {
		tmpl, err := NIIHa(win, sii, tc.v, tc.broad, o)
		require.NoError(t, err)
		assert.Equal(t, tc.free, tmpl.Free(), "%s broad=%v", tc.v, tc.broad)
	}

	tmpl, err := NIIHa(win, sii, VariantFor(WidthFree, 1), false, o)
	require.NoError(t, err)
	m := tmpl.InitialModel()
	blue := component(m, lines.NII6548Narrow)
	red := component(m, lines.NII6583Narrow)
	assert.InDelta(t, blue.Mean+lines.NIISeparation, red.Mean, 1e-9)
	assert.InDelta(t, blue.Amplitude*lines.NIIRatio, red.Amplitude, 1e-9)
	assert.InDelta(t, measure.LamToVel(2.5, lines.SII6716), measure.LamToVel(red.Stddev, red.Mean), 1e-6)
}

func TestWidthBounds(t *testing.T) {
	ref := model.Gaussian{Mean: lines.SII6716, Stddev: 2.9}
	b := widthBounds(ref, lines.Hb, 60)
	sig := measure.LamToVel(2.9, lines.SII6716)
	assert.InDelta(t, measure.VelToLam(0.4*sig, lines.Hb), b.Lo, 1e-9)
	assert.InDelta(t, measure.VelToLam(1.6*sig, lines.Hb), b.Hi, 1e-9)
}
