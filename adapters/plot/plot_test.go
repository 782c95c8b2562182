package plot

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"emfit/domain/lines"
	"emfit/domain/model"
	"emfit/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFits(t *testing.T) {
	gen := testkit.NewSpectrumGenerator(testkit.DefaultSpectrumConfig())
	spec := gen.Generate()
	truth := gen.Truth()

	models := map[lines.Complex]*model.Model{}
	for _, c := range lines.Complexes {
		m := &model.Model{Name: string(c), Continuum: truth.Continuum}
		for _, name := range lines.Components(c) {
			if g, ok := truth.Component(name); ok {
				m.Components = append(m.Components, g)
			}
		}
		models[c] = m
	}
	// a complex without a fit still gets a panel
	delete(models, lines.ComplexOIII)

	path := filepath.Join(t.TempDir(), "fits.png")
	err := Fits(path, spec, models, map[lines.Complex]float64{lines.ComplexHb: 1.02, lines.ComplexSII: math.NaN()}, "TARGETID 1", Config{})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(raw), 8)
	assert.Equal(t, []byte("\x89PNG"), raw[:4])
}

func TestComponentColor(t *testing.T) {
	assert.Equal(t, outflowColor, componentColor(lines.HbOutflow))
	assert.Equal(t, broadColor, componentColor(lines.HaBroad))
	assert.Equal(t, narrowColor, componentColor(lines.SII6716Narrow))
}
