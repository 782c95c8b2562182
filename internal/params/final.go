package params

import (
	"emfit/domain/lines"
	"emfit/domain/measure"
	"emfit/domain/model"
	"emfit/domain/spectrum"
)

// FinalModels rebuilds every complex from the summary
func FinalModels(s Summary) map[lines.Complex]*model.Model {
	out := make(map[lines.Complex]*model.Model, len(s))
	for c, cs := range s {
		w := lines.FitWindow(c)
		out[c] = Construct(c, cs, (w.Lo+w.Hi)/2)
	}
	return out
}

// FinalRChi2 evaluates the reduced chi-square of each rebuilt model on the
// original spectrum, using the summary's degrees of freedom.
func FinalRChi2(spec *spectrum.Spectrum, s Summary) map[lines.Complex]float64 {
	out := make(map[lines.Complex]float64, len(s))
	for c, m := range FinalModels(s) {
		win := spec.WindowFor(c)
		r := measure.RedChi2(win.Flam, m.EvalAll(win.Lam), win.Ivar, s[c].DOF)
		s[c].RChi2 = r
		out[c] = r
	}
	return out
}
