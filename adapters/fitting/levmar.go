// Package fitting adapts the Levenberg-Marquardt solver to line templates.
package fitting

import (
	"fmt"
	"math"

	"emfit/domain/measure"
	"emfit/domain/model"
	"emfit/internal/errors"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/optimize"
)

// Result is a converged (or best effort) fit of a template
type Result struct {
	Model     *model.Model `json:"model"`
	Chi2      float64      `json:"chi2"`
	RChi2     float64      `json:"rchi2"`
	NFree     int          `json:"n_free"`
	NPix      int          `json:"n_pix"`
	Converged bool         `json:"converged"`

	// Status is the solver's termination status
	Status optimize.Status `json:"-"`
}

// DOF returns the degrees of freedom of the fit
func (r *Result) DOF() int {
	return r.NPix - r.NFree
}

// Err returns a NOT_CONVERGED error for a fit that did not converge
func (r *Result) Err() error {
	if r.Converged {
		return nil
	}
	return errors.NotConverged(fmt.Sprintf("solver stopped with status %v, chi2 %g", r.Status, r.Chi2))
}

// LevMar fits templates with a numerical-Jacobian Levenberg-Marquardt solver
type LevMar struct {
	MaxIter int
	Tau     float64
	Eps1    float64
	Eps2    float64
}

// NewLevMar returns a fitter with the solver's usual tolerances
func NewLevMar(maxIter int) *LevMar {
	if maxIter <= 0 {
		maxIter = 1000
	}
	return &LevMar{MaxIter: maxIter, Tau: 1e-6, Eps1: 1e-8, Eps2: 1e-8}
}

// Fit minimises the inverse-variance weighted residuals of the template
// against the spectrum. Pixels with ivar <= 0 do not contribute. A fit that
// stops at MaxIter is returned with Converged false.
func (f *LevMar) Fit(t *model.Template, lam, flam, ivar []float64) (out *Result, err error) {
	if len(lam) != len(flam) || len(lam) != len(ivar) {
		return nil, errors.InvalidInput("wavelength, flux and ivar lengths differ")
	}

	var x, y, w []float64
	for i := range lam {
		if ivar[i] > 0 && !math.IsInf(ivar[i], 0) && !math.IsNaN(flam[i]) {
			x = append(x, lam[i])
			y = append(y, flam[i])
			w = append(w, math.Sqrt(ivar[i]))
		}
	}

	nFree := t.Free()
	if len(x) <= nFree {
		return nil, errors.InvalidInput("too few good pixels to fit " + t.Name())
	}

	resFunc := func(dst, params []float64) {
		m := t.Model(params)
		for i := range x {
			dst[i] = (m.Eval(x[i]) - y[i]) * w[i]
		}
	}

	nj := &lm.NumJac{Func: resFunc}
	problem := lm.LMProblem{
		Dim:        nFree,
		Size:       len(x),
		Func:       resFunc,
		Jac:        nj.Jac,
		InitParams: t.Initial(),
		Tau:        f.Tau,
		Eps1:       f.Eps1,
		Eps2:       f.Eps2,
	}

	// lm panics on a singular damped normal matrix
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, errors.FitFailed(t.Name(), fmt.Errorf("solver panic: %v", r))
		}
	}()

	maxIter := f.MaxIter
	if maxIter <= 0 {
		maxIter = 1000
	}
	res, err := lm.LM(problem, &lm.Settings{Iterations: maxIter, ObjectiveTol: 1e-16})
	if err != nil || len(res.X) != nFree {
		return nil, errors.FitFailed(t.Name(), err)
	}

	best := t.Model(res.X)
	fitted := best.EvalAll(lam)
	chi2, n := measure.Chi2(flam, fitted, ivar)
	out = &Result{
		Model:  best,
		Chi2:   chi2,
		RChi2:  measure.RedChi2(flam, fitted, ivar, nFree),
		NFree:  nFree,
		NPix:   n,
		Status: res.Status,
	}
	out.Converged = res.Status != optimize.IterationLimit &&
		best.Finite() && !math.IsNaN(chi2) && !math.IsInf(chi2, 0)
	return out, nil
}
