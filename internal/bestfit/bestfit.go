// Package bestfit chooses, for each emission-line complex, the simplest model
// whose reduced chi-square improvement and physical checks justify it.
package bestfit

import (
	"log"
	"math"
	"sort"

	"emfit/adapters/fitting"
	"emfit/domain/lines"
	"emfit/domain/measure"
	"emfit/domain/model"
	"emfit/domain/spectrum"
	"emfit/internal/complexes"
	"emfit/internal/errors"

	"gonum.org/v1/gonum/stat/distuv"
)

// Flag bits attached to a selection
const (
	FlagFreeOne         = 0
	FlagFixedOne        = 1
	FlagFreeTwo         = 2
	FlagFixedTwo        = 3
	FlagDeltaPasses     = 4
	FlagBroadNarrower   = 5
	FlagSwapped         = 6
	FlagOutflowBrighter = 7
	FlagNotConverged    = 8
	FlagHbNarrowSlow    = 9
	FlagHaNarrowSlow    = 10
	FlagTwoComponents   = 11
	FlagOutflowNarrower = 12
)

const (
	// MinNarrowSigma is the smallest resolved narrow width in km/s
	MinNarrowSigma = 40.0
	// MinBroadFWHM is the smallest accepted broad Hα FWHM in km/s
	MinBroadFWHM = 300.0
)

// Fitter fits a template to pixels
type Fitter interface {
	Fit(t *model.Template, lam, flam, ivar []float64) (*fitting.Result, error)
}

// Options control model selection
type Options struct {
	Complex complexes.Options
	// Threshold is the reduced chi-square improvement, in percent, that a
	// more complex model must reach.
	Threshold float64
	Width     complexes.Width
}

// DefaultOptions returns a 20% threshold and free Balmer widths
func DefaultOptions() Options {
	return Options{Complex: complexes.DefaultOptions(), Threshold: 20, Width: complexes.WidthFree}
}

// Selection is the chosen fit of one complex
type Selection struct {
	Complex     lines.Complex     `json:"complex"`
	Fit         *model.Model      `json:"fit"`
	RChi2       float64           `json:"rchi2"`
	Chi2        float64           `json:"chi2"`
	DOF         int               `json:"dof"`
	NPix        int               `json:"n_pix"`
	Flags       []int             `json:"flags"`
	NComponents int               `json:"n_components"`
	Broad       bool              `json:"broad"`
	Variant     complexes.Variant `json:"variant"`
	DeltaRChi2  float64           `json:"delta_rchi2"`
	Prob        float64           `json:"prob"`
	Converged   bool              `json:"converged"`
}

// HasFlag reports whether a flag bit is set
func (s *Selection) HasFlag(bit int) bool {
	for _, f := range s.Flags {
		if f == bit {
			return true
		}
	}
	return false
}

// FlagMask packs the flags into an integer bitmask
func (s *Selection) FlagMask() int64 {
	var m int64
	for _, f := range s.Flags {
		m |= 1 << uint(f)
	}
	return m
}

// Selector runs the fits for every complex
type Selector struct {
	fitter Fitter
	opts   Options
}

// NewSelector creates a selector. A zero threshold accepts any improvement.
func NewSelector(fitter Fitter, opts Options) *Selector {
	return &Selector{fitter: fitter, opts: opts}
}

// Options returns the selection options
func (s *Selector) Options() Options {
	return s.opts
}

func (s *Selector) fit(t *model.Template, win *spectrum.Spectrum) (*fitting.Result, error) {
	res, err := s.fitter.Fit(t, win.Lam, win.Flam, win.Ivar)
	if err != nil {
		return nil, errors.Wrapf(err, "%s fit", t.Name())
	}
	return res, nil
}

func newSelection(c lines.Complex, res *fitting.Result, flags []int) *Selection {
	sel := &Selection{
		Complex:   c,
		Fit:       res.Model,
		RChi2:     res.RChi2,
		Chi2:      res.Chi2,
		DOF:       res.NFree,
		NPix:      res.NPix,
		Converged: res.Converged,
		Prob:      survival(res.Chi2, res.DOF()),
	}
	if !res.Converged {
		flags = append(flags, FlagNotConverged)
	}
	sel.Flags = normalize(flags)
	return sel
}

// survival is the probability of a chi-square at least this large
func survival(chi2 float64, dof int) float64 {
	if dof <= 0 || math.IsNaN(chi2) || math.IsInf(chi2, 0) {
		return math.NaN()
	}
	return distuv.ChiSquared{K: float64(dof)}.Survival(chi2)
}

func normalize(flags []int) []int {
	seen := make(map[int]bool, len(flags))
	out := make([]int, 0, len(flags))
	for _, f := range flags {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Ints(out)
	return out
}

func velocity(m *model.Model, name string) float64 {
	g, ok := m.Component(name)
	if !ok {
		return 0
	}
	return measure.LamToVel(g.Stddev, g.Mean)
}

func logFallback(c lines.Complex, err error) {
	log.Printf("[BestFit] %s: complex model failed, keeping simpler fit: %v", c, err)
}
