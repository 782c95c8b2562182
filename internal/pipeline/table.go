package pipeline

import (
	"math"
	"strings"

	"emfit/domain/lines"
	"emfit/internal/params"
	"emfit/ports"
)

var targetColumns = []ports.Column{
	{Name: "TARGETID", Kind: ports.KindInt},
	{Name: "SPECPROD", Kind: ports.KindString},
	{Name: "SURVEY", Kind: ports.KindString},
	{Name: "PROGRAM", Kind: ports.KindString},
	{Name: "HEALPIX", Kind: ports.KindInt},
	{Name: "Z", Kind: ports.KindFloat},
}

var componentFields = []string{
	"AMPLITUDE", "AMPLITUDE_ERR",
	"MEAN", "MEAN_ERR",
	"STD", "STD_ERR",
	"SIGMA", "SIGMA_ERR",
	"FLUX", "FLUX_ERR",
	"FLUX_FITS", "FLUX_ERR_FITS",
	"SIGMA_FITS", "SIGMA_ERR_FITS",
}

func componentValues(s params.ComponentSummary) []float64 {
	return []float64{
		s.Amplitude.Value, s.Amplitude.Err,
		s.Mean.Value, s.Mean.Err,
		s.Std.Value, s.Std.Err,
		s.Sigma.Value, s.Sigma.Err,
		s.Flux.Value, s.Flux.Err,
		s.FluxFits.Value, s.FluxFits.Err,
		s.SigmaFits.Value, s.SigmaFits.Err,
	}
}

// ResultColumns lists the columns of a result table in order
func ResultColumns() []ports.Column {
	cols := append([]ports.Column(nil), targetColumns...)
	for _, c := range lines.Complexes {
		for _, name := range lines.Components(c) {
			for _, f := range componentFields {
				cols = append(cols, ports.Column{Name: strings.ToUpper(name) + "_" + f, Kind: ports.KindFloat})
			}
		}
		prefix := strings.ToUpper(string(c))
		cols = append(cols,
			ports.Column{Name: prefix + "_CONTINUUM", Kind: ports.KindFloat},
			ports.Column{Name: prefix + "_CONTINUUM_ERR", Kind: ports.KindFloat},
			ports.Column{Name: prefix + "_RCHI2", Kind: ports.KindFloat},
			ports.Column{Name: prefix + "_DOF", Kind: ports.KindInt},
			ports.Column{Name: prefix + "_FLAGS", Kind: ports.KindInt},
		)
	}
	return append(cols,
		ports.Column{Name: "PERCENT_HB_B", Kind: ports.KindFloat},
		ports.Column{Name: "PERCENT_HA_B", Kind: ports.KindFloat},
		ports.Column{Name: "MC_FAILED", Kind: ports.KindInt},
		ports.Column{Name: "ERROR", Kind: ports.KindString},
	)
}

// ResultTable flattens target results into one row each. A failed target
// keeps its identifiers, NaN measurements and the error message.
func ResultTable(results []TargetResult) *ports.Table {
	t := &ports.Table{Columns: ResultColumns()}
	for _, res := range results {
		t.Rows = append(t.Rows, resultRow(res))
	}
	return t
}

func resultRow(res TargetResult) []interface{} {
	tg := res.Target
	row := []interface{}{tg.TargetID, tg.SpecProd, tg.Survey, tg.Program, int64(tg.Healpix), tg.Z}

	fit := res.Fit
	for _, c := range lines.Complexes {
		var cs *params.ComplexSummary
		if fit != nil {
			cs = fit.Summary[c]
		}
		for _, name := range lines.Components(c) {
			for _, v := range componentValues(componentOf(cs, name)) {
				row = append(row, orNaN(cs != nil, v))
			}
		}
		if cs == nil {
			row = append(row, math.NaN(), math.NaN(), math.NaN(), int64(0), int64(0))
			continue
		}
		var flags int64
		if sel := fit.Original.Selections[c]; sel != nil {
			flags = sel.FlagMask()
		}
		row = append(row, cs.Continuum.Value, cs.Continuum.Err, cs.RChi2, int64(cs.DOF), flags)
	}

	if fit == nil {
		msg := ""
		if res.Err != nil {
			msg = res.Err.Error()
		}
		return append(row, math.NaN(), math.NaN(), int64(0), msg)
	}
	return append(row, fit.PercentHbBroad, fit.PercentHaBroad, int64(fit.Failed), "")
}

func componentOf(cs *params.ComplexSummary, name string) params.ComponentSummary {
	if cs == nil {
		return params.ComponentSummary{}
	}
	return cs.Components[name]
}

func orNaN(ok bool, v float64) float64 {
	if !ok {
		return math.NaN()
	}
	return v
}

// NoiseTable flattens noise results: TARGETID and <COMPLEX>_NOISE
func NoiseTable(results []NoiseResult) *ports.Table {
	t := &ports.Table{Columns: []ports.Column{{Name: "TARGETID", Kind: ports.KindInt}}}
	for _, c := range lines.Complexes {
		t.Columns = append(t.Columns, ports.Column{Name: strings.ToUpper(string(c)) + "_NOISE", Kind: ports.KindFloat})
	}
	for _, res := range results {
		row := []interface{}{res.Target.TargetID}
		for _, c := range lines.Complexes {
			v, ok := res.Noise[c]
			row = append(row, orNaN(ok, v))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
