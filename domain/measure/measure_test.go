package measure

import (
	"math"
	"testing"

	"emfit/domain/lines"

	"github.com/stretchr/testify/assert"
)

func TestVelocityConversions(t *testing.T) {
	sig := LamToVel(2.9, lines.SII6716)
	assert.InDelta(t, 129.4, sig, 0.1)
	assert.InDelta(t, 2.9, VelToLam(sig, lines.SII6716), 1e-9)
	assert.Equal(t, 0.0, LamToVel(1, 0))

	s, e := LamToVelErr(2, 5000, 0.2, 0)
	assert.InDelta(t, LamToVel(2, 5000), s, 1e-12)
	assert.InDelta(t, 0.1*s, e, 1e-9)
}

func TestFlux(t *testing.T) {
	assert.InDelta(t, math.Sqrt(2*math.Pi), Flux(1, 1), 1e-12)

	f, e := FluxErr(10, 2, 1, 0)
	assert.InDelta(t, Flux(10, 2), f, 1e-12)
	assert.InDelta(t, 0.1*f, e, 1e-9)

	_, e = FluxErr(0, 2, 1, 1)
	assert.Equal(t, 0.0, e)
}

func TestFWHM(t *testing.T) {
	assert.InDelta(t, 2.3548, FWHM(1), 1e-4)
}

func TestRedChi2(t *testing.T) {
	flam := []float64{1, 2, 3, 4}
	model := []float64{0, 2, 3, 5}
	ivar := []float64{1, 1, 0, 4}

	chi2, n := Chi2(flam, model, ivar)
	assert.Equal(t, 5.0, chi2)
	assert.Equal(t, 3, n)
	assert.InDelta(t, 2.5, RedChi2(flam, model, ivar, 1), 1e-12)
	assert.True(t, math.IsNaN(RedChi2(flam, model, ivar, 3)))
}

func TestDeltaRChi2Percent(t *testing.T) {
	assert.InDelta(t, 25, DeltaRChi2Percent(2, 1.5), 1e-12)
	assert.InDelta(t, -50, DeltaRChi2Percent(2, 3), 1e-12)
	assert.Equal(t, 0.0, DeltaRChi2Percent(0, 1))
	assert.Equal(t, 0.0, DeltaRChi2Percent(math.NaN(), 1))
}

func TestSigmaClip(t *testing.T) {
	data := []float64{1, 2, 1, 2, 1, 2, 1, 2, 1, 2, 1000, math.NaN()}
	cs := SigmaClip(data, 3, 5)

	assert.Equal(t, 10, cs.N)
	assert.InDelta(t, 1.5, cs.Mean, 1e-12)
	assert.InDelta(t, 0.5, cs.StdDev, 1e-12)

	empty := SigmaClip(nil, 3, 5)
	assert.True(t, math.IsNaN(empty.StdDev))
}

func TestNoise(t *testing.T) {
	var lam, flam []float64
	for l := 6650.0; l <= 6800; l += 1 {
		lam = append(lam, l)
		v := 0.1
		if int(l)%2 == 0 {
			v = -0.1
		}
		if math.Abs(l-lines.SII6716) < 5 {
			v = 50 // line flux is masked
		}
		flam = append(flam, v)
	}

	assert.InDelta(t, 0.1, Noise(lam, flam, lines.ComplexSII), 1e-3)
	assert.True(t, math.IsNaN(Noise(lam, flam, lines.ComplexHb)))
}
