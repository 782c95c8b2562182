package desi

import (
	"sort"

	"emfit/domain/spectrum"
	"emfit/internal/errors"
)

// Stitch joins camera spectra in wavelength order. Where two cameras
// overlap, pixels below the midpoint of the overlap come from the bluer
// camera and the rest from the redder one. Each camera's resolution block is
// cut to the pixels it contributes.
func Stitch(arms ...*spectrum.Spectrum) (*spectrum.Spectrum, error) {
	if len(arms) == 0 {
		return nil, errors.InvalidInput("no camera spectra to stitch")
	}

	var lam, flam, ivar []float64
	var blocks []*spectrum.Resolution
	withRes := true

	for k, arm := range arms {
		lo, hi := 0, arm.Len()
		if k > 0 {
			prev := arms[k-1]
			mid := (arm.Lam[0] + prev.Lam[prev.Len()-1]) / 2
			lo = sort.SearchFloat64s(arm.Lam, mid)
		}
		if k < len(arms)-1 {
			next := arms[k+1]
			mid := (next.Lam[0] + arm.Lam[arm.Len()-1]) / 2
			hi = sort.SearchFloat64s(arm.Lam, mid)
		}
		if len(lam) > 0 {
			// no overlap in the stitched output
			for lo < hi && arm.Lam[lo] <= lam[len(lam)-1] {
				lo++
			}
		}
		if lo >= hi {
			continue
		}

		lam = append(lam, arm.Lam[lo:hi]...)
		flam = append(flam, arm.Flam[lo:hi]...)
		ivar = append(ivar, arm.Ivar[lo:hi]...)
		if arm.Res == nil {
			withRes = false
		} else {
			blocks = append(blocks, arm.Res.Sub(lo, hi))
		}
	}

	var res *spectrum.Resolution
	if withRes && len(blocks) > 0 {
		var err error
		if res, err = spectrum.Stitch(blocks...); err != nil {
			return nil, errors.Wrap(err, "stitch resolution")
		}
	}
	return spectrum.New(lam, flam, ivar, res)
}
