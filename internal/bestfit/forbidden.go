package bestfit

import (
	"emfit/domain/lines"
	"emfit/domain/model"
	"emfit/domain/spectrum"
	"emfit/internal/complexes"
)

type doublet struct {
	complex lines.Complex
	narrow  string
	outflow string
	build   func(*spectrum.Spectrum, int, complexes.Options) *model.Template
}

var (
	siiDoublet  = doublet{lines.ComplexSII, lines.SII6716Narrow, lines.SII6716Outflow, complexes.SII}
	oiiiDoublet = doublet{lines.ComplexOIII, lines.OIII4959Narrow, lines.OIII4959Outflow, complexes.OIII}
)

// SII fits one- and two-component [SII] and keeps the better justified one
func (s *Selector) SII(win *spectrum.Spectrum) (*Selection, error) {
	return s.selectDoublet(siiDoublet, win)
}

// OIII fits one- and two-component [OIII] and keeps the better justified one
func (s *Selector) OIII(win *spectrum.Spectrum) (*Selection, error) {
	return s.selectDoublet(oiiiDoublet, win)
}

// SIIWithComponents fits [SII] with a fixed number of components
func (s *Selector) SIIWithComponents(win *spectrum.Spectrum, n int) (*Selection, error) {
	return s.forceDoublet(siiDoublet, win, n)
}

// OIIIWithComponents fits [OIII] with a fixed number of components
func (s *Selector) OIIIWithComponents(win *spectrum.Spectrum, n int) (*Selection, error) {
	return s.forceDoublet(oiiiDoublet, win, n)
}

func (s *Selector) forceDoublet(d doublet, win *spectrum.Spectrum, n int) (*Selection, error) {
	if n < 1 {
		n = 1
	}
	if n > 2 {
		n = 2
	}
	res, err := s.fit(d.build(win, n, s.opts.Complex), win)
	if err != nil {
		return nil, err
	}
	var flags []int
	if n == 2 {
		flags = append(flags, FlagTwoComponents)
	}
	sel := newSelection(d.complex, res, flags)
	sel.NComponents = n
	return sel, nil
}

// The two-component fit wins when it improves the reduced chi-square by at
// least the threshold, both fits converged, and the outflow is fainter and
// broader than the narrow line.
func (s *Selector) selectDoublet(d doublet, win *spectrum.Spectrum) (*Selection, error) {
	one, err := s.fit(d.build(win, 1, s.opts.Complex), win)
	if err != nil {
		return nil, err
	}

	two, err := s.fit(d.build(win, 2, s.opts.Complex), win)
	if err != nil {
		logFallback(d.complex, err)
		sel := newSelection(d.complex, one, []int{FlagNotConverged})
		sel.NComponents = 1
		return sel, nil
	}

	var flags []int
	delta := deltaRChi2(one.RChi2, two.RChi2)
	if delta >= s.opts.Threshold {
		flags = append(flags, FlagDeltaPasses)
	}

	n, _ := two.Model.Component(d.narrow)
	out, _ := two.Model.Component(d.outflow)
	brighter := out.Amplitude > n.Amplitude
	if brighter {
		flags = append(flags, FlagOutflowBrighter)
	}
	narrower := velocity(two.Model, d.outflow) < velocity(two.Model, d.narrow)
	if narrower {
		flags = append(flags, FlagOutflowNarrower)
	}

	if delta >= s.opts.Threshold && one.Converged && two.Converged && !brighter && !narrower {
		sel := newSelection(d.complex, two, append(flags, FlagTwoComponents))
		sel.NComponents = 2
		sel.DeltaRChi2 = delta
		return sel, nil
	}
	if !two.Converged {
		logFallback(d.complex, two.Err())
		flags = append(flags, FlagNotConverged)
	}
	sel := newSelection(d.complex, one, flags)
	sel.NComponents = 1
	sel.DeltaRChi2 = delta
	return sel, nil
}
