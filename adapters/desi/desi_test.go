package desi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"emfit/adapters/output"
	"emfit/domain/spectrum"
	"emfit/domain/target"
	"emfit/internal/errors"
	"emfit/internal/testkit"
	"emfit/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func arm(t *testing.T, lo, hi, step, level float64) *spectrum.Spectrum {
	t.Helper()
	n := int((hi-lo)/step+0.5) + 1
	lam, flam, ivar := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := range lam {
		lam[i] = lo + float64(i)*step
		flam[i] = level
		ivar[i] = 1
	}
	s, err := spectrum.New(lam, flam, ivar, spectrum.Identity(len(lam), 2))
	require.NoError(t, err)
	return s
}

func TestCoaddReader_Path(t *testing.T) {
	r := NewCoaddReader("/spectro/redux")
	p := r.Path(target.Target{SpecProd: "iron", Survey: "main", Program: "dark", Healpix: 27256})
	assert.Equal(t, "/spectro/redux/iron/healpix/main/dark/272/27256/coadd-main-dark-27256.fits", p)
}

func TestCoaddReader_MissingFile(t *testing.T) {
	r := NewCoaddReader(t.TempDir())
	_, err := r.Spectrum(context.Background(), target.Target{TargetID: 1, SpecProd: "iron", Survey: "main", Program: "dark", Healpix: 5})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestStitch(t *testing.T) {
	b := arm(t, 3600, 5800, 0.8, 1)
	r := arm(t, 5760, 7620, 0.8, 2)
	z := arm(t, 7520, 9824, 0.8, 3)

	s, err := Stitch(b, r, z)
	require.NoError(t, err)

	for i := 1; i < s.Len(); i++ {
		require.Greater(t, s.Lam[i], s.Lam[i-1])
	}
	assert.Equal(t, 3600.0, s.Lam[0])
	assert.InDelta(t, 9824, s.Lam[s.Len()-1], 1e-6)
	require.NotNil(t, s.Res)
	assert.Equal(t, s.Len(), s.Res.Size())

	// the B/R overlap is split at its midpoint
	for i, l := range s.Lam {
		switch {
		case l < 5780:
			assert.Equal(t, 1.0, s.Flam[i], l)
		case l < 7570:
			assert.Equal(t, 2.0, s.Flam[i], l)
		default:
			assert.Equal(t, 3.0, s.Flam[i], l)
		}
	}
	assert.Less(t, s.Len(), b.Len()+r.Len()+z.Len())
}

func TestStitch_Empty(t *testing.T) {
	_, err := Stitch()
	assert.Error(t, err)
}

func TestText_RoundTrip(t *testing.T) {
	cfg := testkit.DefaultSpectrumConfig()
	cfg.LamMin, cfg.LamMax = 6600, 6800
	spec := testkit.NewSpectrumGenerator(cfg).Generate()

	dir := t.TempDir()
	path := filepath.Join(dir, "39627.csv")
	require.NoError(t, WriteText(path, spec))

	got, err := ReadText(path)
	require.NoError(t, err)
	require.Equal(t, spec.Len(), got.Len())
	assert.InDelta(t, spec.Lam[10], got.Lam[10], 1e-4)
	assert.InDelta(t, spec.Flam[10], got.Flam[10], 1e-8)
	assert.InDelta(t, spec.Ivar[10], got.Ivar[10], 1e-6)

	src := &TextSource{Dir: dir}
	s, err := src.Spectrum(context.Background(), target.Target{TargetID: 39627})
	require.NoError(t, err)
	assert.Equal(t, got.Len(), s.Len())

	_, err = src.Spectrum(context.Background(), target.Target{TargetID: 1})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestReadText_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("lam,flux\n1,2\n"), 0o644))
	_, err := ReadText(path)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestReadTargets_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.csv")
	body := "targetid,specprod,survey,program,healpix,z\n" +
		"39627652,iron,main,dark,27256,0.0812\n" +
		"39627653,iron,sv3,bright,9000,0.12\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	var reader ports.TargetReader = NewTargetReader()
	targets, err := reader.ReadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, target.Target{TargetID: 39627652, SpecProd: "iron", Survey: "main", Program: "dark", Healpix: 27256, Z: 0.0812}, targets[0])
	assert.Equal(t, "sv3", targets[1].Survey)
}

func TestReadTargets_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewTargetReader().ReadTargets(filepath.Join(dir, "none.csv"))
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	path := filepath.Join(dir, "noz.csv")
	require.NoError(t, os.WriteFile(path, []byte("TARGETID\n5\n"), 0o644))
	_, err = NewTargetReader().ReadTargets(path)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))

	path = filepath.Join(dir, "t.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err = NewTargetReader().ReadTargets(path)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestReadTargets_Excel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"TARGETID", "Z", "HEALPIX"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{42, 0.05, 123}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	targets, err := NewTargetReader().ReadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, int64(42), targets[0].TargetID)
	assert.Equal(t, 0.05, targets[0].Z)
	assert.Equal(t, 123, targets[0].Healpix)
}

func TestReadTargets_FITS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.fits")
	tbl := &ports.Table{
		Columns: []ports.Column{
			{Name: "TARGETID", Kind: ports.KindInt},
			{Name: "SPECPROD", Kind: ports.KindString},
			{Name: "SURVEY", Kind: ports.KindString},
			{Name: "PROGRAM", Kind: ports.KindString},
			{Name: "HEALPIX", Kind: ports.KindInt},
			{Name: "Z", Kind: ports.KindFloat},
		},
		Rows: [][]interface{}{
			{int64(7), "iron", "main", "dark", int64(27256), 0.25},
			{int64(8), "fuji", "sv1", "other", int64(1), 0.5},
		},
	}
	require.NoError(t, output.Write(path, tbl))

	targets, err := NewTargetReader().ReadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, target.Target{TargetID: 7, SpecProd: "iron", Survey: "main", Program: "dark", Healpix: 27256, Z: 0.25}, targets[0])
	assert.Equal(t, "other", targets[1].Program)
}
