package projection

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"projtrace/internal/fit"
	"projtrace/internal/infostore"
	"projtrace/internal/model"
)

const (
	peakSigmaInit = 10.0
	gammaInit     = 1.0
	gammaMax      = 30.0
)

// layout maps the solver vector onto model parameters. Free parameters are
// appended in a fixed order: centre, background terms (fit-background boxes
// only), then per peak offset, sigma, amplitude and, for Voigt, gamma.
type layout struct {
	params model.Params
	slots  []*float64
	init   []float64
	bounds []fit.Bound
}

func (l *layout) add(slot *float64, init float64, b fit.Bound) {
	l.slots = append(l.slots, slot)
	l.init = append(l.init, init)
	l.bounds = append(l.bounds, b)
}

func (l *layout) apply(x []float64) {
	for i, slot := range l.slots {
		*slot = x[i]
	}
}

func (p *Processor) newLayout(box infostore.Box, peaks infostore.PeakSet, hist infostore.Series) *layout {
	n := float64(len(hist))
	total := finiteSum(hist)

	l := &layout{params: model.Params{Shape: peaks.Shape, Peaks: make([]model.Peak, len(peaks.Offsets))}}
	center := p.initialCenter(box)
	l.add(&l.params.Center, center, fit.Between(center-p.opts.CenterTolerance, center+p.opts.CenterTolerance))

	if box.Method == infostore.MethodHull {
		l.params.Background = model.PinnedBackground()
	} else {
		bg := &l.params.Background
		l.add(&bg.Sigma, n/3, fit.Between(1, 2*n+1))
		l.add(&bg.Amplitude, 0, fit.Between(-1, total+1))
		l.add(&bg.MeridianSigma1, 15, fit.Between(1, n+1))
		l.add(&bg.MeridianAmplitude1, total/20, fit.Between(-1, total+1))
		l.add(&bg.MeridianSigma2, 5, fit.Between(1, n+1))
		l.add(&bg.MeridianAmplitude2, total/20, fit.Between(-1, total+1))
	}

	tol := p.opts.PeakPositionTolerance
	for i, off := range peaks.Offsets {
		pk := &l.params.Peaks[i]
		l.add(&pk.Offset, off, fit.Between(off-tol, off+tol))
		l.add(&pk.Sigma, peakSigmaInit, fit.Between(p.opts.PeakSigmaMin, p.opts.PeakSigmaMax))
		l.add(&pk.Amplitude, total/10, fit.AtLeast(-1))
		if peaks.Shape == model.ShapeVoigt {
			l.add(&pk.Gamma, gammaInit, fit.Between(0, gammaMax))
		}
	}
	return l
}

// fitBox fits the layer-line model to hist. Solver trouble never aborts the
// pipeline; it shows up as a poor error score instead.
func (p *Processor) fitBox(box infostore.Box, peaks infostore.PeakSet, hist infostore.Series) infostore.FitResult {
	l := p.newLayout(box, peaks, hist)

	res, err := fit.Solve(fit.Problem{
		M:       len(hist),
		Initial: l.init,
		Bounds:  l.bounds,
		Residuals: func(dst, x []float64) {
			l.apply(x)
			for i := range dst {
				dst[i] = l.params.Eval(float64(i)) - hist[i]
			}
		},
		MaxIterations: p.opts.MaxIterations,
		Tolerance:     p.opts.Tolerance,
	})
	if err != nil {
		res = fit.Result{X: l.init}
	}
	l.apply(res.X)

	params := l.params.Clone()
	return infostore.FitResult{
		Params:     params,
		Error:      errorScore(hist, params.Curve(len(hist))),
		Iterations: res.Iterations,
		Converged:  res.Converged,
		NonFinite:  res.NonFinite,
	}
}

// errorScore is 1 - R² over the samples where both series are finite.
// Constant data scores 0 on an exact fit and 1 otherwise; a score that is
// still not finite is reported as 1.
func errorScore(values, estimates []float64) float64 {
	var obs, est []float64
	for i, v := range values {
		if isFinite(v) && isFinite(estimates[i]) {
			obs = append(obs, v)
			est = append(est, estimates[i])
		}
	}
	if len(obs) == 0 {
		return 1
	}
	if floats.Max(obs) == floats.Min(obs) {
		if floats.EqualApprox(obs, est, 1e-12) {
			return 0
		}
		return 1
	}
	score := 1 - stat.RSquaredFrom(est, obs, nil)
	if !isFinite(score) {
		return 1
	}
	return score
}

func finiteSum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		if isFinite(v) {
			sum += v
		}
	}
	return sum
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
