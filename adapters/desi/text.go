package desi

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"emfit/domain/spectrum"
	"emfit/domain/target"
	"emfit/internal/errors"
)

// ReadText reads a spectrum from a CSV file with lam, flam and ivar
// columns. The header row is required; other columns are ignored.
func ReadText(path string) (*spectrum.Spectrum, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("spectrum file %s", path))
		}
		return nil, errors.IOError(path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comment = '#'
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	if len(rows) < 2 {
		return nil, errors.InvalidInput(path + " needs a header row and at least one pixel")
	}

	idx := map[string]int{"lam": -1, "flam": -1, "ivar": -1}
	for i, h := range rows[0] {
		if _, ok := idx[strings.ToLower(strings.TrimSpace(h))]; ok {
			idx[strings.ToLower(strings.TrimSpace(h))] = i
		}
	}
	for name, i := range idx {
		if i < 0 {
			return nil, errors.InvalidInput(fmt.Sprintf("%s has no %s column", path, name))
		}
	}

	n := len(rows) - 1
	lam, flam, ivar := make([]float64, n), make([]float64, n), make([]float64, n)
	for r, row := range rows[1:] {
		for _, col := range []struct {
			name string
			dst  []float64
		}{{"lam", lam}, {"flam", flam}, {"ivar", ivar}} {
			i := idx[col.name]
			if i >= len(row) {
				return nil, errors.InvalidInput(fmt.Sprintf("%s line %d is short", path, r+2))
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return nil, errors.InvalidInput(fmt.Sprintf("%s line %d: bad %s %q", path, r+2, col.name, row[i]))
			}
			col.dst[r] = v
		}
	}
	return spectrum.New(lam, flam, ivar, nil)
}

// WriteText writes a spectrum in the format ReadText reads
func WriteText(path string, s *spectrum.Spectrum) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"lam", "flam", "ivar"}); err != nil {
		return errors.IOError(path, err)
	}
	for i := range s.Lam {
		rec := []string{
			strconv.FormatFloat(s.Lam[i], 'f', 4, 64),
			strconv.FormatFloat(s.Flam[i], 'g', 10, 64),
			strconv.FormatFloat(s.Ivar[i], 'g', 10, 64),
		}
		if err := w.Write(rec); err != nil {
			return errors.IOError(path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}

// TextSource serves spectra stored as <dir>/<TARGETID>.csv
type TextSource struct {
	Dir string
}

// Spectrum implements ports.SpectrumSource
func (s *TextSource) Spectrum(ctx context.Context, t target.Target) (*spectrum.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadText(filepath.Join(s.Dir, fmt.Sprintf("%d.csv", t.TargetID)))
}
