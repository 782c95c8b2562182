// Package complexes builds the fit templates for each emission-line complex:
// one- and two-component [SII] and [OIII], and the narrow/outflow/broad
// variants of Hβ and [NII]+Hα whose widths are anchored on the [SII] fit.
package complexes

import (
	"fmt"
	"math"
	"strings"

	"emfit/domain/lines"
	"emfit/domain/measure"
	"emfit/domain/model"
	"emfit/domain/spectrum"
	"emfit/internal/errors"
)

// Options control how templates are built
type Options struct {
	FitContinuum    bool
	ContinuumDegree int
	// WidthFraction is the allowed deviation, in percent, of a free narrow
	// width from the [SII] template width.
	WidthFraction float64
}

// DefaultOptions returns a constant continuum and a 60% template window
func DefaultOptions() Options {
	return Options{FitContinuum: true, ContinuumDegree: 0, WidthFraction: 60}
}

func (o Options) degree() int {
	if !o.FitContinuum {
		return -1
	}
	if o.ContinuumDegree < 0 {
		return 0
	}
	return o.ContinuumDegree
}

// Width selects how narrow Balmer widths follow [SII]
type Width int

const (
	// WidthFree lets the narrow width vary within WidthFraction of [SII]
	WidthFree Width = iota
	// WidthFixed ties the narrow width to [SII] in velocity space
	WidthFixed
)

func (w Width) String() string {
	if w == WidthFixed {
		return "fixed"
	}
	return "free"
}

// ParseWidth parses "free" or "fixed"
func ParseWidth(s string) (Width, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free", "":
		return WidthFree, nil
	case "fixed":
		return WidthFixed, nil
	}
	return WidthFree, errors.InvalidInput(fmt.Sprintf("unknown width mode %q", s))
}

// Variant is one of the four Balmer fit strategies
type Variant struct {
	Width      Width
	Components int
}

// VariantFor picks the Balmer variant that mirrors the [SII] complexity
func VariantFor(w Width, siiComponents int) Variant {
	if siiComponents >= 2 {
		return Variant{Width: w, Components: 2}
	}
	return Variant{Width: w, Components: 1}
}

// Flag returns the flag bit identifying the variant: 0 free one-component,
// 1 fixed one-component, 2 free two-component, 3 fixed two-component.
func (v Variant) Flag() int {
	bit := 0
	if v.Components >= 2 {
		bit = 2
	}
	if v.Width == WidthFixed {
		bit++
	}
	return bit
}

func (v Variant) String() string {
	return fmt.Sprintf("%s-%d", v.Width, v.Components)
}

func newTemplate(c lines.Complex, o Options) *model.Template {
	w := lines.FitWindow(c)
	return model.NewTemplate(string(c), o.degree(), (w.Lo+w.Hi)/2)
}

// peak is the initial amplitude guess: the largest flux strictly inside
// (lo, hi), never negative so the bound transform can move it.
func peak(win *spectrum.Spectrum, lo, hi float64) float64 {
	return math.Max(win.MaxFlux(lo, hi), 1e-3)
}

func windowPeak(win *spectrum.Spectrum) float64 {
	return peak(win, math.Inf(-1), math.Inf(1))
}

func component(m *model.Model, name string) model.Gaussian {
	g, _ := m.Component(name)
	return g
}

// tieMeanOffset keeps a line at a fixed separation from its partner
func tieMeanOffset(partner string, sep float64) model.TieFunc {
	return func(m *model.Model) float64 {
		return component(m, partner).Mean + sep
	}
}

// tieAmpRatio scales a line's amplitude to its partner's
func tieAmpRatio(partner string, ratio float64) model.TieFunc {
	return func(m *model.Model) float64 {
		return component(m, partner).Amplitude * ratio
	}
}

// tieVelocity gives target the same velocity width as partner
func tieVelocity(target, partner string) model.TieFunc {
	return func(m *model.Model) float64 {
		p := component(m, partner)
		if p.Mean == 0 {
			return p.Stddev
		}
		return p.Stddev * component(m, target).Mean / p.Mean
	}
}

// tieToReference gives target the velocity width of a component of another fit
func tieToReference(target string, ref model.Gaussian) model.TieFunc {
	return func(m *model.Model) float64 {
		if ref.Mean == 0 {
			return ref.Stddev
		}
		return component(m, target).Mean / ref.Mean * ref.Stddev
	}
}

// atRest converts a reference width to the same velocity at another line
func atRest(ref model.Gaussian, center float64) float64 {
	if ref.Mean == 0 {
		return ref.Stddev
	}
	return center / ref.Mean * ref.Stddev
}

// widthBounds allows ±frac percent of the reference velocity width, expressed
// in Angstrom at center.
func widthBounds(ref model.Gaussian, center, frac float64) model.Bounds {
	sig := measure.LamToVel(ref.Stddev, ref.Mean)
	lo := sig - frac/100*sig
	hi := sig + frac/100*sig
	return model.Between(measure.VelToLam(lo, center), measure.VelToLam(hi, center))
}

func requireComponents(sii *model.Model, names ...string) error {
	if sii == nil {
		return errors.InvalidInput("missing [SII] reference fit")
	}
	for _, n := range names {
		if !sii.Has(n) {
			return errors.InvalidInput("[SII] reference fit has no " + n)
		}
	}
	return nil
}
