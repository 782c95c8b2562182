package complexes

import (
	"emfit/domain/lines"
	"emfit/domain/model"
	"emfit/domain/spectrum"
)

// SII builds the [SII]6716,6731 doublet template with n (1 or 2) components
// per line. The 6731 line follows 6716 in mean and velocity width.
func SII(win *spectrum.Spectrum, n int, o Options) *model.Template {
	amp := windowPeak(win)
	t := newTemplate(lines.ComplexSII, o)

	narrowAmp, outAmp := amp, 0.0
	if n >= 2 {
		narrowAmp, outAmp = amp/3, amp/6
	}

	t.AddGaussian(lines.SII6716Narrow, narrowAmp, lines.SII6716, 2.9).
		Bound(model.Amplitude, model.AtLeast(0)).
		Bound(model.Stddev, model.AtLeast(0.8))
	t.AddGaussian(lines.SII6731Narrow, narrowAmp, lines.SII6731, 2.9).
		Bound(model.Amplitude, model.AtLeast(0)).
		Tie(model.Mean, tieMeanOffset(lines.SII6716Narrow, lines.SIISeparation)).
		Tie(model.Stddev, tieVelocity(lines.SII6731Narrow, lines.SII6716Narrow))

	if n < 2 {
		return t
	}

	t.AddGaussian(lines.SII6716Outflow, outAmp, lines.SII6716, 4.0).
		Bound(model.Amplitude, model.AtLeast(0)).
		Bound(model.Stddev, model.AtLeast(1.6))
	t.AddGaussian(lines.SII6731Outflow, outAmp, lines.SII6731, 4.0).
		Bound(model.Amplitude, model.AtLeast(0)).
		Tie(model.Mean, tieMeanOffset(lines.SII6716Outflow, lines.SIISeparation)).
		Tie(model.Stddev, tieVelocity(lines.SII6731Outflow, lines.SII6716Outflow)).
		// outflow keeps the narrow line ratio
		Tie(model.Amplitude, func(m *model.Model) float64 {
			a16 := component(m, lines.SII6716Narrow).Amplitude
			if a16 == 0 {
				return 0
			}
			return component(m, lines.SII6731Narrow).Amplitude / a16 * component(m, lines.SII6716Outflow).Amplitude
		})
	return t
}

// OIII builds the [OIII]4959,5007 doublet template with n (1 or 2)
// components per line. 5007 follows 4959 in mean, amplitude ratio and
// velocity width.
func OIII(win *spectrum.Spectrum, n int, o Options) *model.Template {
	amp4959 := peakInclusive(win, 4959, 4961)
	amp5007 := peakInclusive(win, 5007, 5009)
	t := newTemplate(lines.ComplexOIII, o)

	div := 1.0
	if n >= 2 {
		div = 2
	}

	t.AddGaussian(lines.OIII4959Narrow, amp4959/div, lines.OIII4959, 1.0).
		Bound(model.Amplitude, model.AtLeast(0)).
		Bound(model.Stddev, model.AtLeast(0.6))
	t.AddGaussian(lines.OIII5007Narrow, amp5007/div, lines.OIII5007, 1.0).
		Bound(model.Amplitude, model.AtLeast(0)).
		Tie(model.Mean, tieMeanOffset(lines.OIII4959Narrow, lines.OIIISeparation)).
		Tie(model.Amplitude, tieAmpRatio(lines.OIII4959Narrow, lines.OIIIRatio)).
		Tie(model.Stddev, tieVelocity(lines.OIII5007Narrow, lines.OIII4959Narrow))

	if n < 2 {
		return t
	}

	t.AddGaussian(lines.OIII4959Outflow, amp4959/4, lines.OIII4959, 6.0).
		Bound(model.Amplitude, model.AtLeast(0)).
		Bound(model.Stddev, model.AtLeast(1.2))
	t.AddGaussian(lines.OIII5007Outflow, amp5007/4, lines.OIII5007, 6.0).
		Bound(model.Amplitude, model.AtLeast(0)).
		Tie(model.Mean, tieMeanOffset(lines.OIII4959Outflow, lines.OIIISeparation)).
		Tie(model.Amplitude, tieAmpRatio(lines.OIII4959Outflow, lines.OIIIRatio)).
		Tie(model.Stddev, tieVelocity(lines.OIII5007Outflow, lines.OIII4959Outflow))
	return t
}

// peakInclusive is peak over lo <= lam <= hi
func peakInclusive(win *spectrum.Spectrum, lo, hi float64) float64 {
	const eps = 1e-9
	return peak(win, lo-eps, hi+eps)
}
