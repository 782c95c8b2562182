package spectrum

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Resolution is a banded resolution matrix. Row i holds the elements
// R[i][i-HalfWidth .. i+HalfWidth]; entries that fall outside the matrix are zero.
type Resolution struct {
	HalfWidth int
	Band      [][]float64
}

// Identity returns an n-pixel identity resolution matrix
func Identity(n, halfWidth int) *Resolution {
	r := &Resolution{HalfWidth: halfWidth, Band: make([][]float64, n)}
	for i := range r.Band {
		r.Band[i] = make([]float64, 2*halfWidth+1)
		r.Band[i][halfWidth] = 1
	}
	return r
}

// FromDiagonals converts the survey diagonal storage, data[d][j] with offsets
// running from +h down to -h, into a banded matrix. Element data[d][j] sits in
// column j and row j-offset(d).
func FromDiagonals(data [][]float64) (*Resolution, error) {
	ndiag := len(data)
	if ndiag == 0 || ndiag%2 == 0 {
		return nil, fmt.Errorf("resolution needs an odd number of diagonals, got %d", ndiag)
	}
	n := len(data[0])
	for d := range data {
		if len(data[d]) != n {
			return nil, fmt.Errorf("diagonal %d has %d pixels, want %d", d, len(data[d]), n)
		}
	}

	h := ndiag / 2
	r := &Resolution{HalfWidth: h, Band: make([][]float64, n)}
	for i := range r.Band {
		r.Band[i] = make([]float64, ndiag)
	}
	for d := 0; d < ndiag; d++ {
		offset := h - d
		for j := 0; j < n; j++ {
			row := j - offset
			if row < 0 || row >= n {
				continue
			}
			r.Band[row][offset+h] = data[d][j]
		}
	}
	return r, nil
}

// Size returns the number of pixels
func (r *Resolution) Size() int {
	return len(r.Band)
}

// At returns R[i][j]
func (r *Resolution) At(i, j int) float64 {
	k := j - i + r.HalfWidth
	if i < 0 || i >= len(r.Band) || k < 0 || k > 2*r.HalfWidth {
		return 0
	}
	return r.Band[i][k]
}

// Apply returns R·x
func (r *Resolution) Apply(x []float64) ([]float64, error) {
	n := len(r.Band)
	if len(x) != n {
		return nil, fmt.Errorf("resolution is %dx%d, vector has %d entries", n, n, len(x))
	}
	if n == 0 {
		return []float64{}, nil
	}

	w := 2*r.HalfWidth + 1
	data := make([]float64, 0, n*w)
	for i, row := range r.Band {
		if len(row) != w {
			return nil, fmt.Errorf("resolution row %d has %d entries, want %d", i, len(row), w)
		}
		data = append(data, row...)
	}
	band := mat.NewBandDense(n, n, r.HalfWidth, r.HalfWidth, data)

	var out mat.VecDense
	out.MulVec(band, mat.NewVecDense(n, x))
	return out.RawVector().Data, nil
}

// Sub returns the square block covering pixels [lo, hi)
func (r *Resolution) Sub(lo, hi int) *Resolution {
	out := &Resolution{HalfWidth: r.HalfWidth, Band: make([][]float64, 0, hi-lo)}
	for i := lo; i < hi; i++ {
		row := make([]float64, len(r.Band[i]))
		for k, v := range r.Band[i] {
			j := i + k - r.HalfWidth
			if j >= lo && j < hi {
				row[k] = v
			}
		}
		out.Band = append(out.Band, row)
	}
	return out
}

// Stitch concatenates block-diagonal resolution matrices of consecutive
// wavelength segments. All blocks must share the same half width.
func Stitch(blocks ...*Resolution) (*Resolution, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no resolution blocks to stitch")
	}
	h := blocks[0].HalfWidth
	out := &Resolution{HalfWidth: h}
	for i, b := range blocks {
		if b.HalfWidth != h {
			return nil, fmt.Errorf("block %d has half width %d, want %d", i, b.HalfWidth, h)
		}
		for row := range b.Band {
			band := make([]float64, len(b.Band[row]))
			for k, v := range b.Band[row] {
				j := row + k - h
				if j >= 0 && j < len(b.Band) {
					band[k] = v
				}
			}
			out.Band = append(out.Band, band)
		}
	}
	return out, nil
}
