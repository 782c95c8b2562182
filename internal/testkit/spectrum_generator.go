package testkit

import (
	"math"
	"math/rand"

	"emfit/domain/lines"
	"emfit/domain/measure"
	"emfit/domain/model"
	"emfit/domain/spectrum"
)

// SpectrumGeneratorConfig configures the synthetic emission-line spectrum
type SpectrumGeneratorConfig struct {
	LamMin    float64 `json:"lam_min"`
	LamMax    float64 `json:"lam_max"`
	Step      float64 `json:"step"`
	Redshift  float64 `json:"redshift"`
	Continuum float64 `json:"continuum"`
	Noise     float64 `json:"noise"`

	// Narrow line widths in km/s and peak amplitudes
	NarrowSigma float64 `json:"narrow_sigma"`
	SIIAmp      float64 `json:"sii_amp"`
	OIIIAmp     float64 `json:"oiii_amp"`
	HbAmp       float64 `json:"hb_amp"`
	HaAmp       float64 `json:"ha_amp"`
	NIIAmp      float64 `json:"nii_amp"`

	// Outflow components share OutflowSigma and are blueshifted by
	// OutflowShift km/s; OutflowFrac scales the narrow amplitudes.
	OutflowFrac  float64 `json:"outflow_frac"`
	OutflowSigma float64 `json:"outflow_sigma"`
	OutflowShift float64 `json:"outflow_shift"`

	// Broad Balmer components; BroadFrac scales the narrow amplitudes.
	BroadFrac  float64 `json:"broad_frac"`
	BroadSigma float64 `json:"broad_sigma"`

	Seed int64 `json:"seed"`
}

// DefaultSpectrumConfig returns a narrow-line galaxy covering all four complexes
func DefaultSpectrumConfig() SpectrumGeneratorConfig {
	return SpectrumGeneratorConfig{
		LamMin:       4600,
		LamMax:       6900,
		Step:         0.8,
		Continuum:    1.0,
		Noise:        0.05,
		NarrowSigma:  90,
		SIIAmp:       3,
		OIIIAmp:      4,
		HbAmp:        5,
		HaAmp:        15,
		NIIAmp:       2,
		OutflowSigma: 300,
		OutflowShift: -150,
		BroadSigma:   1500,
		Seed:         42,
	}
}

// SpectrumGenerator produces seeded synthetic spectra with known parameters
type SpectrumGenerator struct {
	config SpectrumGeneratorConfig
	rng    *rand.Rand
}

// NewSpectrumGenerator creates a generator
func NewSpectrumGenerator(config SpectrumGeneratorConfig) *SpectrumGenerator {
	return &SpectrumGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Truth returns the noiseless rest-frame model the spectrum is drawn from
func (g *SpectrumGenerator) Truth() *model.Model {
	c := g.config
	m := &model.Model{Name: "truth", Continuum: &model.Continuum{Coeffs: []float64{c.Continuum}}}

	add := func(name string, amp, center, sigma, shift float64) {
		if amp <= 0 || sigma <= 0 {
			return
		}
		mean := center * (1 + shift/lines.SpeedOfLight)
		m.Components = append(m.Components, model.Gaussian{
			Name:      name,
			Amplitude: amp,
			Mean:      mean,
			Stddev:    measure.VelToLam(sigma, mean),
		})
	}

	narrow := []struct {
		name, out string
		amp       float64
		center    float64
	}{
		{lines.SII6716Narrow, lines.SII6716Outflow, c.SIIAmp, lines.SII6716},
		{lines.SII6731Narrow, lines.SII6731Outflow, c.SIIAmp * 0.75, lines.SII6731},
		{lines.OIII4959Narrow, lines.OIII4959Outflow, c.OIIIAmp / lines.OIIIRatio, lines.OIII4959},
		{lines.OIII5007Narrow, lines.OIII5007Outflow, c.OIIIAmp, lines.OIII5007},
		{lines.HbNarrow, lines.HbOutflow, c.HbAmp, lines.Hb},
		{lines.NII6548Narrow, lines.NII6548Outflow, c.NIIAmp / lines.NIIRatio, lines.NII6548},
		{lines.NII6583Narrow, lines.NII6583Outflow, c.NIIAmp, lines.NII6583},
		{lines.HaNarrow, lines.HaOutflow, c.HaAmp, lines.Ha},
	}
	for _, l := range narrow {
		add(l.name, l.amp, l.center, c.NarrowSigma, 0)
		add(l.out, l.amp*c.OutflowFrac, l.center, c.OutflowSigma, c.OutflowShift)
	}
	add(lines.HbBroad, c.HbAmp*c.BroadFrac, lines.Hb, c.BroadSigma, 0)
	add(lines.HaBroad, c.HaAmp*c.BroadFrac, lines.Ha, c.BroadSigma, 0)
	return m
}

// Generate draws an observed-frame spectrum with Gaussian noise
func (g *SpectrumGenerator) Generate() *spectrum.Spectrum {
	c := g.config
	truth := g.Truth()
	step := c.Step
	if step <= 0 {
		step = 0.8
	}
	n := int(math.Floor((c.LamMax-c.LamMin)/step)) + 1

	lam := make([]float64, n)
	flam := make([]float64, n)
	ivar := make([]float64, n)
	for i := 0; i < n; i++ {
		rest := c.LamMin + float64(i)*step
		lam[i] = rest * (1 + c.Redshift)
		f := truth.Eval(rest)
		if c.Noise > 0 {
			f += g.rng.NormFloat64() * c.Noise
			ivar[i] = 1 / (c.Noise * c.Noise)
		} else {
			ivar[i] = 1
		}
		// observed flux density is diluted by (1+z)
		flam[i] = f / (1 + c.Redshift)
		ivar[i] *= (1 + c.Redshift) * (1 + c.Redshift)
	}
	return &spectrum.Spectrum{Lam: lam, Flam: flam, Ivar: ivar, Res: spectrum.Identity(n, 5)}
}
