// Package measure converts fitted Gaussian parameters into physical quantities
// and computes the goodness-of-fit statistics used for model selection.
package measure

import (
	"math"

	"emfit/domain/lines"
)

var sqrt2Pi = math.Sqrt(2 * math.Pi)

// LamToVel converts a Gaussian width in Angstrom into km/s at the given center
func LamToVel(std, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return std / mean * lines.SpeedOfLight
}

// LamToVelErr converts a width and propagates the uncertainties of width and center
func LamToVelErr(std, mean, stdErr, meanErr float64) (sig, sigErr float64) {
	sig = LamToVel(std, mean)
	if std == 0 || mean == 0 {
		return sig, 0
	}
	sigErr = math.Abs(sig) * math.Hypot(stdErr/std, meanErr/mean)
	return sig, sigErr
}

// VelToLam converts a width in km/s into Angstrom at the given center
func VelToLam(sig, mean float64) float64 {
	return sig / lines.SpeedOfLight * mean
}

// Flux returns the integrated flux of a Gaussian
func Flux(amp, std float64) float64 {
	return amp * std * sqrt2Pi
}

// FluxErr returns the integrated flux and its propagated uncertainty
func FluxErr(amp, std, ampErr, stdErr float64) (flux, fluxErr float64) {
	flux = Flux(amp, std)
	if amp == 0 || std == 0 {
		return flux, 0
	}
	fluxErr = math.Abs(flux) * math.Hypot(ampErr/amp, stdErr/std)
	return flux, fluxErr
}

// FWHM of a Gaussian with the given sigma
func FWHM(sigma float64) float64 {
	return 2 * math.Sqrt(2*math.Ln2) * sigma
}

// Chi2 returns the weighted chi-square and the number of pixels that carry weight
func Chi2(flam, model, ivar []float64) (chi2 float64, n int) {
	for i := range flam {
		iv := ivar[i]
		if !(iv > 0) || math.IsInf(iv, 0) {
			continue
		}
		d := flam[i] - model[i]
		chi2 += d * d * iv
		n++
	}
	return chi2, n
}

// RedChi2 returns chi-square divided by the degrees of freedom N - nFree.
// It is NaN when there are no degrees of freedom left.
func RedChi2(flam, model, ivar []float64, nFree int) float64 {
	chi2, n := Chi2(flam, model, ivar)
	dof := n - nFree
	if dof <= 0 {
		return math.NaN()
	}
	return chi2 / float64(dof)
}

// DeltaRChi2Percent is the relative improvement of the complex model over the
// simple one, in percent of the simple model's reduced chi-square.
func DeltaRChi2Percent(simple, complex float64) float64 {
	if simple == 0 || math.IsNaN(simple) || math.IsNaN(complex) {
		return 0
	}
	return (simple - complex) / simple * 100
}
