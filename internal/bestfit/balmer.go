package bestfit

import (
	"math"

	"emfit/domain/lines"
	"emfit/domain/measure"
	"emfit/domain/model"
	"emfit/domain/spectrum"
	"emfit/internal/complexes"
	"emfit/internal/errors"
)

type balmer struct {
	complex  lines.Complex
	narrow   string
	outflow  string
	broad    string
	slowFlag int
	// requireFWHM is the minimum broad FWHM in km/s; zero disables the check
	requireFWHM float64
	build       func(*spectrum.Spectrum, *model.Model, complexes.Variant, bool, complexes.Options) (*model.Template, error)
}

var (
	hbLine = balmer{
		complex: lines.ComplexHb, narrow: lines.HbNarrow, outflow: lines.HbOutflow, broad: lines.HbBroad,
		slowFlag: FlagHbNarrowSlow, build: complexes.Hb,
	}
	haLine = balmer{
		complex: lines.ComplexNIIHa, narrow: lines.HaNarrow, outflow: lines.HaOutflow, broad: lines.HaBroad,
		slowFlag: FlagHaNarrowSlow, requireFWHM: MinBroadFWHM, build: complexes.NIIHa,
	}
)

// Hb fits Hβ with the variant mirroring the [SII] selection, with and
// without a broad component.
func (s *Selector) Hb(win *spectrum.Spectrum, sii *Selection) (*Selection, error) {
	return s.selectBalmer(hbLine, win, sii)
}

// NIIHa fits [NII]+Hα with the variant mirroring the [SII] selection, with
// and without a broad Hα component.
func (s *Selector) NIIHa(win *spectrum.Spectrum, sii *Selection) (*Selection, error) {
	return s.selectBalmer(haLine, win, sii)
}

// A broad component is kept when it improves the reduced chi-square by the
// threshold and is broader than the narrow line. Free-width fits also need a
// resolved narrow line, and Hα needs a broad FWHM of at least 300 km/s.
func (s *Selector) selectBalmer(b balmer, win *spectrum.Spectrum, sii *Selection) (*Selection, error) {
	if sii == nil || sii.Fit == nil {
		return nil, errors.InvalidInput("missing [SII] selection")
	}
	v := complexes.VariantFor(s.opts.Width, sii.NComponents)

	tNarrow, err := b.build(win, sii.Fit, v, false, s.opts.Complex)
	if err != nil {
		return nil, err
	}
	narrowOnly, err := s.fit(tNarrow, win)
	if err != nil {
		return nil, err
	}

	flags := []int{v.Flag()}
	finish := func(res *Selection) *Selection {
		res.Variant = v
		res.NComponents = v.Components
		return res
	}

	tBroad, err := b.build(win, sii.Fit, v, true, s.opts.Complex)
	if err != nil {
		return nil, err
	}
	withBroad, err := s.fit(tBroad, win)
	if err != nil {
		logFallback(b.complex, err)
		return finish(newSelection(b.complex, narrowOnly, append(flags, FlagNotConverged))), nil
	}

	if v.Components >= 2 && velocity(withBroad.Model, b.broad) < velocity(withBroad.Model, b.outflow) {
		withBroad.Model.Swap(b.broad, b.outflow)
		flags = append(flags, FlagSwapped)
	}

	delta := deltaRChi2(narrowOnly.RChi2, withBroad.RChi2)
	sigN := velocity(withBroad.Model, b.narrow)
	sigB := velocity(withBroad.Model, b.broad)
	fwhm := measure.FWHM(sigB)

	if delta >= s.opts.Threshold {
		flags = append(flags, FlagDeltaPasses)
	}
	if sigB < sigN {
		flags = append(flags, FlagBroadNarrower)
	}
	if sigN < MinNarrowSigma {
		flags = append(flags, b.slowFlag)
	}

	accept := delta >= s.opts.Threshold && sigB > sigN
	if v.Width == complexes.WidthFree {
		accept = accept && sigN >= MinNarrowSigma
	}
	if b.requireFWHM > 0 {
		accept = accept && fwhm >= b.requireFWHM
	}

	if accept {
		sel := finish(newSelection(b.complex, withBroad, flags))
		sel.Broad = true
		sel.DeltaRChi2 = delta
		return sel, nil
	}
	sel := finish(newSelection(b.complex, narrowOnly, flags))
	sel.DeltaRChi2 = delta
	return sel, nil
}

func deltaRChi2(simple, complex float64) float64 {
	d := measure.DeltaRChi2Percent(simple, complex)
	if math.IsNaN(d) {
		return 0
	}
	return d
}
