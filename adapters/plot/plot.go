// Package plot renders the best-fit models of the four emission-line
// complexes of one spectrum as a PNG.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"strings"

	"emfit/domain/lines"
	"emfit/domain/model"
	"emfit/domain/spectrum"
	"emfit/internal/errors"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Config sets the image size in inches
type Config struct {
	Width  float64
	Height float64
}

// DefaultConfig returns a landscape 2x2 figure
func DefaultConfig() Config {
	return Config{Width: 14, Height: 9}
}

var (
	dataColor     = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	modelColor    = color.RGBA{A: 255}
	narrowColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	outflowColor  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	broadColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	residualColor = color.RGBA{R: 148, G: 103, B: 189, A: 255}
)

// Fits draws data, total model, components and residuals for every complex
// in a 2x2 grid. rchi2 values are shown in the panel titles.
func Fits(path string, spec *spectrum.Spectrum, models map[lines.Complex]*model.Model,
	rchi2 map[lines.Complex]float64, title string, cfg Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg = DefaultConfig()
	}

	const rows, cols = 2, 2
	plots := make([][]*plot.Plot, rows)
	for i := range plots {
		plots[i] = make([]*plot.Plot, cols)
	}
	for k, c := range lines.Complexes {
		p, err := panel(spec, c, models[c], rchi2[c])
		if err != nil {
			return errors.Wrapf(err, "plot %s", c)
		}
		if k == 0 && title != "" {
			p.Title.Text = title + "\n" + p.Title.Text
		}
		plots[k/cols][k%cols] = p
	}

	img := vgimg.New(vg.Length(cfg.Width)*vg.Inch, vg.Length(cfg.Height)*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter * 4, PadY: vg.Millimeter * 4,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			plots[i][j].Draw(canvases[i][j])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}

func panel(spec *spectrum.Spectrum, c lines.Complex, m *model.Model, rchi2 float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.Label()
	if !math.IsNaN(rchi2) && m != nil {
		p.Title.Text += fmt.Sprintf("  rχ² = %.2f", rchi2)
	}
	p.X.Label.Text = "Rest wavelength (Å)"
	p.Y.Label.Text = "Flux"
	p.Legend.Top = true

	win := spec.WindowFor(c)
	if win.Len() == 0 {
		return p, nil
	}

	data, err := line(win.Lam, win.Flam, dataColor, 1)
	if err != nil {
		return nil, err
	}
	p.Add(data)
	p.Legend.Add("data", data)

	if m == nil {
		return p, nil
	}

	total := m.EvalAll(win.Lam)
	fit, err := line(win.Lam, total, modelColor, 1.5)
	if err != nil {
		return nil, err
	}
	p.Add(fit)
	p.Legend.Add("model", fit)

	for _, g := range m.Components {
		ys := make([]float64, win.Len())
		for i, x := range win.Lam {
			ys[i] = m.Continuum.Eval(x) + g.Eval(x)
		}
		l, err := line(win.Lam, ys, componentColor(g.Name), 1)
		if err != nil {
			return nil, err
		}
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(l)
		p.Legend.Add(g.Name, l)
	}

	// residuals drawn below the data, offset by the lowest flux
	lo := math.Inf(1)
	for _, f := range win.Flam {
		lo = math.Min(lo, f)
	}
	res := make([]float64, win.Len())
	for i := range res {
		res[i] = win.Flam[i] - total[i] + lo - 0.1*math.Abs(lo)
	}
	r, err := line(win.Lam, res, residualColor, 0.5)
	if err != nil {
		return nil, err
	}
	p.Add(r)
	p.Legend.Add("residual", r)
	return p, nil
}

func line(xs, ys []float64, c color.Color, width float64) (*plotter.Line, error) {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(width)
	return l, nil
}

func componentColor(name string) color.Color {
	switch {
	case strings.HasSuffix(name, "_out"):
		return outflowColor
	case strings.HasSuffix(name, "_b"):
		return broadColor
	default:
		return narrowColor
	}
}
