// Package lines holds the emission-line catalog: rest wavelengths, doublet
// constraints, fit windows and the component names of each line complex.
package lines

import "fmt"

// SpeedOfLight in km/s
const SpeedOfLight = 2.99792458e5

// Vacuum rest-frame wavelengths in Angstrom
const (
	Hb       = 4862.683
	OIII4959 = 4960.295
	OIII5007 = 5008.239
	NII6548  = 6549.852
	Ha       = 6564.312
	NII6583  = 6585.277
	SII6716  = 6718.294
	SII6731  = 6732.673
)

// Doublet constraints
const (
	OIIISeparation = 47.934
	OIIIRatio      = 2.98
	NIISeparation  = 35.425
	NIIRatio       = 2.96
	SIISeparation  = 14.379
)

// Complex identifies a group of lines fitted together
type Complex string

const (
	ComplexHb    Complex = "hb"
	ComplexOIII  Complex = "oiii"
	ComplexNIIHa Complex = "nii_ha"
	ComplexSII   Complex = "sii"
)

// Complexes in output order
var Complexes = []Complex{ComplexHb, ComplexOIII, ComplexNIIHa, ComplexSII}

// Window is a rest-frame wavelength range in Angstrom, inclusive on both ends
type Window struct {
	Lo float64
	Hi float64
}

// Contains reports whether lam falls inside the window
func (w Window) Contains(lam float64) bool {
	return lam >= w.Lo && lam <= w.Hi
}

// Component names
const (
	HbNarrow  = "hb_n"
	HbOutflow = "hb_out"
	HbBroad   = "hb_b"

	OIII4959Narrow  = "oiii4959"
	OIII4959Outflow = "oiii4959_out"
	OIII5007Narrow  = "oiii5007"
	OIII5007Outflow = "oiii5007_out"

	NII6548Narrow  = "nii6548"
	NII6548Outflow = "nii6548_out"
	NII6583Narrow  = "nii6583"
	NII6583Outflow = "nii6583_out"
	HaNarrow       = "ha_n"
	HaOutflow      = "ha_out"
	HaBroad        = "ha_b"

	SII6716Narrow  = "sii6716"
	SII6716Outflow = "sii6716_out"
	SII6731Narrow  = "sii6731"
	SII6731Outflow = "sii6731_out"
)

type complexInfo struct {
	window     Window
	components []string
	centers    []float64
}

var catalog = map[Complex]complexInfo{
	ComplexHb: {
		window:     Window{Lo: 4700, Hi: 4930},
		components: []string{HbNarrow, HbOutflow, HbBroad},
		centers:    []float64{Hb},
	},
	ComplexOIII: {
		window:     Window{Lo: 4930, Hi: 5100},
		components: []string{OIII4959Narrow, OIII4959Outflow, OIII5007Narrow, OIII5007Outflow},
		centers:    []float64{OIII4959, OIII5007},
	},
	ComplexNIIHa: {
		window:     Window{Lo: 6460, Hi: 6640},
		components: []string{NII6548Narrow, NII6548Outflow, NII6583Narrow, NII6583Outflow, HaNarrow, HaOutflow, HaBroad},
		centers:    []float64{NII6548, Ha, NII6583},
	},
	ComplexSII: {
		window:     Window{Lo: 6650, Hi: 6800},
		components: []string{SII6716Narrow, SII6716Outflow, SII6731Narrow, SII6731Outflow},
		centers:    []float64{SII6716, SII6731},
	},
}

// FitWindow returns the rest-frame fit window of a complex
func FitWindow(c Complex) Window {
	return catalog[c].window
}

// Components returns the full list of component names a complex can contain
func Components(c Complex) []string {
	src := catalog[c].components
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Centers returns the rest wavelengths of the lines in a complex
func Centers(c Complex) []float64 {
	src := catalog[c].centers
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// ParseComplex converts a name such as "nii_ha" into a Complex
func ParseComplex(name string) (Complex, error) {
	c := Complex(name)
	if _, ok := catalog[c]; !ok {
		return "", fmt.Errorf("unknown emission-line complex %q", name)
	}
	return c, nil
}

// String implements fmt.Stringer
func (c Complex) String() string {
	return string(c)
}

// Label returns the display label of a complex
func (c Complex) Label() string {
	switch c {
	case ComplexHb:
		return "Hβ"
	case ComplexOIII:
		return "[OIII]"
	case ComplexNIIHa:
		return "[NII]+Hα"
	case ComplexSII:
		return "[SII]"
	}
	return string(c)
}
