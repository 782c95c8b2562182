// Package desi reads DESI healpix coadd spectra and target lists.
package desi

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"emfit/domain/spectrum"
	"emfit/domain/target"
	"emfit/internal/errors"

	"github.com/astrogo/fitsio"
)

// Cameras in wavelength order
var Cameras = []string{"B", "R", "Z"}

// CoaddReader loads spectra from a DESI spectroscopic production tree
type CoaddReader struct {
	Root string
}

// NewCoaddReader creates a reader rooted at the directory holding the
// spectroscopic productions
func NewCoaddReader(root string) *CoaddReader {
	return &CoaddReader{Root: root}
}

// Path returns the coadd file of a target:
// <root>/<specprod>/healpix/<survey>/<program>/<hp/100>/<hp>/coadd-<survey>-<program>-<hp>.fits
func (r *CoaddReader) Path(t target.Target) string {
	return filepath.Join(r.Root, t.SpecProd, "healpix", t.Survey, t.Program,
		fmt.Sprintf("%d", t.Healpix/100), fmt.Sprintf("%d", t.Healpix),
		fmt.Sprintf("coadd-%s-%s-%d.fits", t.Survey, t.Program, t.Healpix))
}

// Spectrum reads the observed-frame spectrum of t with the three cameras
// stitched into one array
func (r *CoaddReader) Spectrum(ctx context.Context, t target.Target) (*spectrum.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	path := r.Path(t)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("coadd file %s", path))
		}
		return nil, errors.IOError(path, err)
	}
	defer f.Close()

	ff, err := fitsio.Open(f)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer ff.Close()

	row, err := fibermapRow(ff, t.TargetID)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	arms := make([]*spectrum.Spectrum, 0, len(Cameras))
	for _, cam := range Cameras {
		arm, err := readCamera(ff, cam, row)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s camera %s", path, cam)
		}
		arms = append(arms, arm)
	}

	spec, err := Stitch(arms...)
	if err != nil {
		return nil, errors.Wrapf(err, "stitch %s", path)
	}
	log.Printf("[CoaddReader] target %d: %d pixels from %s in %v",
		t.TargetID, spec.Len(), filepath.Base(path), time.Since(start).Round(time.Millisecond))
	return spec, nil
}

type fibermapEntry struct {
	TargetID int64 `fits:"TARGETID"`
}

// fibermapRow returns the row of targetID in the FIBERMAP table
func fibermapRow(f *fitsio.File, targetID int64) (int, error) {
	if !f.Has("FIBERMAP") {
		return 0, errors.NotFound("FIBERMAP HDU")
	}
	tbl, ok := f.Get("FIBERMAP").(*fitsio.Table)
	if !ok {
		return 0, errors.InvalidInput("FIBERMAP is not a table")
	}
	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	for i := 0; rows.Next(); i++ {
		var e fibermapEntry
		if err := rows.Scan(&e); err != nil {
			return 0, err
		}
		if e.TargetID == targetID {
			return i, nil
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return 0, errors.NotFound(fmt.Sprintf("target %d in FIBERMAP", targetID))
}

// readCamera extracts one camera's spectrum; masked pixels get zero ivar
func readCamera(f *fitsio.File, cam string, row int) (*spectrum.Spectrum, error) {
	wave, err := readImage[float64](f, cam+"_WAVELENGTH")
	if err != nil {
		return nil, err
	}
	n := len(wave)

	flux, err := imageRow[float32](f, cam+"_FLUX", row, n)
	if err != nil {
		return nil, err
	}
	ivar, err := imageRow[float32](f, cam+"_IVAR", row, n)
	if err != nil {
		return nil, err
	}
	mask, err := imageRow[int32](f, cam+"_MASK", row, n)
	if err != nil {
		return nil, err
	}

	lam := make([]float64, n)
	flam := make([]float64, n)
	iv := make([]float64, n)
	for i := 0; i < n; i++ {
		lam[i] = wave[i]
		flam[i] = float64(flux[i])
		iv[i] = float64(ivar[i])
		if mask[i] != 0 || math.IsNaN(iv[i]) || math.IsNaN(flam[i]) {
			iv[i] = 0
		}
		if math.IsNaN(flam[i]) {
			flam[i] = 0
		}
	}

	res, err := readResolution(f, cam+"_RESOLUTION", row, n)
	if err != nil {
		return nil, err
	}
	return spectrum.New(lam, flam, iv, res)
}

// readResolution reads the (nspec, ndiag, nwave) resolution cube row
func readResolution(f *fitsio.File, name string, row, n int) (*spectrum.Resolution, error) {
	img, err := imageHDU(f, name)
	if err != nil {
		return nil, err
	}
	axes := img.Header().Axes()
	if len(axes) != 3 || axes[0] != n {
		return nil, errors.InvalidInput(fmt.Sprintf("%s has axes %v, want [%d ndiag nspec]", name, axes, n))
	}
	ndiag := axes[1]

	var raw []float32
	if err := img.Read(&raw); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	offset := row * ndiag * n
	if offset+ndiag*n > len(raw) {
		return nil, errors.InvalidInput(fmt.Sprintf("%s has no row %d", name, row))
	}
	diags := make([][]float64, ndiag)
	for d := range diags {
		diags[d] = make([]float64, n)
		for j := 0; j < n; j++ {
			diags[d][j] = float64(raw[offset+d*n+j])
		}
	}
	return spectrum.FromDiagonals(diags)
}

func imageHDU(f *fitsio.File, name string) (fitsio.Image, error) {
	if !f.Has(name) {
		return nil, errors.NotFound(name + " HDU")
	}
	img, ok := f.Get(name).(fitsio.Image)
	if !ok {
		return nil, errors.InvalidInput(name + " is not an image")
	}
	return img, nil
}

func readImage[T float32 | float64 | int32](f *fitsio.File, name string) ([]T, error) {
	img, err := imageHDU(f, name)
	if err != nil {
		return nil, err
	}
	var raw []T
	if err := img.Read(&raw); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return raw, nil
}

// imageRow reads row of a (nspec, n) image
func imageRow[T float32 | float64 | int32](f *fitsio.File, name string, row, n int) ([]T, error) {
	raw, err := readImage[T](f, name)
	if err != nil {
		return nil, err
	}
	if (row+1)*n > len(raw) {
		return nil, errors.InvalidInput(fmt.Sprintf("%s has no row %d", name, row))
	}
	return raw[row*n : (row+1)*n], nil
}
