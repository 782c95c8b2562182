// Package spectrum holds one-dimensional spectra with their inverse variance
// and resolution matrix, and the operations that cut fit windows out of them.
package spectrum

import (
	"math"
	"sort"

	"emfit/domain/lines"
	"emfit/internal/errors"
)

// Spectrum is a sampled spectrum. Res may be nil when no resolution
// information is available, in which case it behaves as the identity.
type Spectrum struct {
	Lam  []float64   `json:"lam"`
	Flam []float64   `json:"flam"`
	Ivar []float64   `json:"ivar"`
	Res  *Resolution `json:"-"`
}

// New validates the arrays and builds a Spectrum
func New(lam, flam, ivar []float64, res *Resolution) (*Spectrum, error) {
	s := &Spectrum{Lam: lam, Flam: flam, Ivar: ivar, Res: res}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks array lengths and wavelength ordering
func (s *Spectrum) Validate() error {
	n := len(s.Lam)
	if n == 0 {
		return errors.InvalidInput("spectrum has no pixels")
	}
	if len(s.Flam) != n || len(s.Ivar) != n {
		return errors.InvalidInput("wavelength, flux and ivar lengths differ")
	}
	if s.Res != nil && s.Res.Size() != n {
		return errors.InvalidInput("resolution matrix size does not match the spectrum")
	}
	for i := 1; i < n; i++ {
		if !(s.Lam[i] > s.Lam[i-1]) {
			return errors.InvalidInput("wavelength array must be strictly increasing")
		}
	}
	return nil
}

// Len returns the number of pixels
func (s *Spectrum) Len() int {
	return len(s.Lam)
}

// RestFrame shifts an observed spectrum to the rest frame of redshift z.
// Flux density per unit wavelength scales by (1+z) and ivar by (1+z)^-2.
func (s *Spectrum) RestFrame(z float64) *Spectrum {
	zp := 1 + z
	out := &Spectrum{
		Lam:  make([]float64, s.Len()),
		Flam: make([]float64, s.Len()),
		Ivar: make([]float64, s.Len()),
		Res:  s.Res,
	}
	for i := range s.Lam {
		out.Lam[i] = s.Lam[i] / zp
		out.Flam[i] = s.Flam[i] * zp
		out.Ivar[i] = s.Ivar[i] / (zp * zp)
	}
	return out
}

// Window returns the pixels with lo <= lam <= hi
func (s *Spectrum) Window(lo, hi float64) *Spectrum {
	start := sort.SearchFloat64s(s.Lam, lo)
	end := sort.Search(len(s.Lam), func(i int) bool { return s.Lam[i] > hi })
	if end < start {
		end = start
	}
	out := &Spectrum{
		Lam:  append([]float64(nil), s.Lam[start:end]...),
		Flam: append([]float64(nil), s.Flam[start:end]...),
		Ivar: append([]float64(nil), s.Ivar[start:end]...),
	}
	if s.Res != nil {
		out.Res = s.Res.Sub(start, end)
	}
	return out
}

// WindowFor returns the fit window of an emission-line complex
func (s *Spectrum) WindowFor(c lines.Complex) *Spectrum {
	w := lines.FitWindow(c)
	return s.Window(w.Lo, w.Hi)
}

// ErrorSpectrum returns 1/sqrt(ivar) with zero where ivar is not positive
func (s *Spectrum) ErrorSpectrum() []float64 {
	out := make([]float64, s.Len())
	for i, iv := range s.Ivar {
		e := 1 / math.Sqrt(iv)
		if iv <= 0 || math.IsNaN(e) || math.IsInf(e, 0) {
			e = 0
		}
		out[i] = e
	}
	return out
}

// WithFlux returns a copy sharing wavelength, ivar and resolution but with new flux
func (s *Spectrum) WithFlux(flam []float64) *Spectrum {
	return &Spectrum{Lam: s.Lam, Flam: flam, Ivar: s.Ivar, Res: s.Res}
}

// Good returns the number of pixels with positive finite ivar
func (s *Spectrum) Good() int {
	n := 0
	for _, iv := range s.Ivar {
		if iv > 0 && !math.IsInf(iv, 0) {
			n++
		}
	}
	return n
}

// MaxFlux returns the largest flux value with lo < lam < hi, or the largest
// value of the whole spectrum when no pixel falls in that range.
func (s *Spectrum) MaxFlux(lo, hi float64) float64 {
	best := math.Inf(-1)
	for i, l := range s.Lam {
		if l > lo && l < hi && s.Flam[i] > best {
			best = s.Flam[i]
		}
	}
	if math.IsInf(best, -1) {
		for _, f := range s.Flam {
			if f > best {
				best = f
			}
		}
	}
	if math.IsInf(best, -1) {
		return 0
	}
	return best
}
