// Package pipeline drives the per-target fit: the selection of every
// complex, Monte Carlo error propagation, and a bounded worker pool over
// many targets.
package pipeline

import (
	"emfit/domain/lines"
	"emfit/domain/spectrum"
	"emfit/internal/bestfit"
	"emfit/internal/errors"
	"emfit/internal/params"
)

// Forced fixes the number of [SII] and [OIII] components; zero selects
type Forced struct {
	SII  int
	OIII int
}

// IterationResult is one fit of all four complexes
type IterationResult struct {
	Selections map[lines.Complex]*bestfit.Selection
	Iteration  params.Iteration
}

// RChi2 returns the reduced chi-square of every complex
func (r *IterationResult) RChi2() map[lines.Complex]float64 {
	out := make(map[lines.Complex]float64, len(r.Selections))
	for c, s := range r.Selections {
		out[c] = s.RChi2
	}
	return out
}

// FitIteration fits [SII], [OIII], Hβ and [NII]+Hα on a rest-frame
// spectrum. The Balmer fits use the [SII] result as width template.
func FitIteration(sel *bestfit.Selector, spec *spectrum.Spectrum, forced Forced) (*IterationResult, error) {
	var (
		sii, oiii *bestfit.Selection
		err       error
	)

	siiWin := spec.WindowFor(lines.ComplexSII)
	if forced.SII > 0 {
		sii, err = sel.SIIWithComponents(siiWin, forced.SII)
	} else {
		sii, err = sel.SII(siiWin)
	}
	if err != nil {
		return nil, errors.Wrap(err, "[SII]")
	}

	oiiiWin := spec.WindowFor(lines.ComplexOIII)
	if forced.OIII > 0 {
		oiii, err = sel.OIIIWithComponents(oiiiWin, forced.OIII)
	} else {
		oiii, err = sel.OIII(oiiiWin)
	}
	if err != nil {
		return nil, errors.Wrap(err, "[OIII]")
	}

	hb, err := sel.Hb(spec.WindowFor(lines.ComplexHb), sii)
	if err != nil {
		return nil, errors.Wrap(err, "Hβ")
	}

	nii, err := sel.NIIHa(spec.WindowFor(lines.ComplexNIIHa), sii)
	if err != nil {
		return nil, errors.Wrap(err, "[NII]+Hα")
	}

	sels := map[lines.Complex]*bestfit.Selection{
		lines.ComplexSII:   sii,
		lines.ComplexOIII:  oiii,
		lines.ComplexHb:    hb,
		lines.ComplexNIIHa: nii,
	}
	return &IterationResult{Selections: sels, Iteration: params.NewIteration(sels)}, nil
}
