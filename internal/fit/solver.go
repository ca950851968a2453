package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultMaxIterations = 2000
	defaultTolerance     = 1e-10
	initialLambda        = 1e-3
	maxLambda            = 1e16
	minLambda            = 1e-15
	diagonalFloor        = 1e-12
)

// ErrProblem reports a malformed problem description.
var ErrProblem = errors.New("fit: invalid problem")

// ResidualFunc writes the residuals for parameters x into dst.
type ResidualFunc func(dst, x []float64)

// Problem is a bounded nonlinear least-squares problem.
type Problem struct {
	// Residuals is evaluated with len(dst) == M and len(x) == len(Initial).
	Residuals ResidualFunc
	M         int
	Initial   []float64
	Bounds    []Bound
	// MaxIterations caps accepted and rejected steps. Zero uses 2000.
	MaxIterations int
	// Tolerance drives every stopping test: relative cost reduction, cost
	// relative to the starting cost, step size and gradient cosine. Zero
	// uses 1e-10.
	Tolerance float64
}

// Result describes the solver outcome. X always lies within the bounds.
type Result struct {
	X           []float64
	Residuals   []float64
	Cost        float64
	Iterations  int
	Evaluations int
	Converged   bool
	// NonFinite counts residuals at X that were NaN or infinite.
	NonFinite int
}

type solver struct {
	p      Problem
	bounds []Bound
	scale  []float64
	ext    []float64
	evals  int
}

// Solve minimises the sum of squared finite residuals.
func Solve(p Problem) (Result, error) {
	n := len(p.Initial)
	if p.Residuals == nil || p.M <= 0 || n == 0 {
		return Result{}, fmt.Errorf("%w: need residuals, M > 0 and at least one parameter", ErrProblem)
	}
	if len(p.Bounds) != 0 && len(p.Bounds) != n {
		return Result{}, fmt.Errorf("%w: %d bounds for %d parameters", ErrProblem, len(p.Bounds), n)
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = defaultMaxIterations
	}
	if p.Tolerance <= 0 {
		p.Tolerance = defaultTolerance
	}

	s := &solver{p: p, bounds: make([]Bound, n), scale: make([]float64, n), ext: make([]float64, n)}
	v := make([]float64, n)
	for i := range n {
		b := Unbounded
		if len(p.Bounds) == n {
			b = p.Bounds[i]
		}
		b = b.normalized()
		s.bounds[i] = b
		u := b.toInternal(p.Initial[i])
		s.scale[i] = math.Max(1, math.Abs(u))
		v[i] = u / s.scale[i]
	}

	r := make([]float64, p.M)
	s.residuals(r, v)
	cost, bad := sumSquares(r)
	// Exact data drives the cost towards rounding noise, where the relative
	// reduction never settles. Anything below this floor counts as a fit.
	costFloor := p.Tolerance * cost

	res := Result{}
	lambda := initialLambda
	jac := mat.NewDense(p.M, n, nil)
	trial := make([]float64, n)
	trialR := make([]float64, p.M)

	for res.Iterations < p.MaxIterations && !res.Converged {
		if bad == p.M {
			break
		}
		if cost <= costFloor {
			res.Converged = true
			break
		}
		fd.Jacobian(jac, s.residuals, v, &fd.JacobianSettings{Formula: fd.Central})

		a, g, ok := normalEquations(jac, r)
		if !ok {
			break
		}
		if gradientCosine(a, g, cost) <= p.Tolerance {
			res.Converged = true
			break
		}

		improved := false
		for lambda <= maxLambda && res.Iterations < p.MaxIterations {
			res.Iterations++
			step, ok := dampedStep(a, g, lambda)
			if !ok {
				lambda *= 10
				continue
			}
			for i := range v {
				trial[i] = v[i] - step.AtVec(i)
			}
			s.residuals(trialR, trial)
			trialCost, trialBad := sumSquares(trialR)
			// A step may not buy a lower cost by pushing residuals out of range.
			if !finite(trialCost) || trialCost >= cost || trialBad > bad {
				lambda *= 10
				continue
			}

			reduction := (cost - trialCost) / math.Max(cost, math.SmallestNonzeroFloat64)
			copy(v, trial)
			copy(r, trialR)
			cost, bad = trialCost, trialBad
			lambda = math.Max(lambda/10, minLambda)
			improved = true
			if cost <= costFloor || reduction < p.Tolerance || mat.Norm(step, 2) < p.Tolerance*(floats.Norm(v, 2)+p.Tolerance) {
				res.Converged = true
			}
			break
		}
		if !improved {
			// No damping produced a better point: v is a local minimum to
			// within the reachable precision.
			res.Converged = lambda > maxLambda
			break
		}
	}

	res.X = s.external(v)
	res.Residuals = append([]float64(nil), r...)
	res.Cost, res.NonFinite = sumSquares(r)
	res.Evaluations = s.evals
	return res, nil
}

func (s *solver) residuals(dst, v []float64) {
	for i, b := range s.bounds {
		s.ext[i] = b.toExternal(v[i] * s.scale[i])
	}
	s.evals++
	s.p.Residuals(dst, s.ext)
}

func (s *solver) external(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, b := range s.bounds {
		out[i] = b.toExternal(v[i] * s.scale[i])
	}
	return out
}

// normalEquations builds JᵀJ and Jᵀr from the rows whose residual and
// derivatives are all finite.
func normalEquations(jac *mat.Dense, r []float64) (*mat.SymDense, *mat.VecDense, bool) {
	m, n := jac.Dims()
	rows := make([]int, 0, m)
	for i := range m {
		if !finite(r[i]) {
			continue
		}
		keep := true
		for _, d := range jac.RawRowView(i) {
			if !finite(d) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, nil, false
	}

	jf := mat.NewDense(len(rows), n, nil)
	rf := mat.NewVecDense(len(rows), nil)
	for k, i := range rows {
		jf.SetRow(k, jac.RawRowView(i))
		rf.SetVec(k, r[i])
	}

	a := mat.NewSymDense(n, nil)
	a.SymOuterK(1, jf.T())
	g := mat.NewVecDense(n, nil)
	g.MulVec(jf.T(), rf)
	return a, g, true
}

// gradientCosine is the largest cosine between the residual vector and a
// Jacobian column, the scale-free gradient test of MINPACK. Columns with no
// derivative are skipped.
func gradientCosine(a *mat.SymDense, g *mat.VecDense, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	rnorm := math.Sqrt(cost)
	var worst float64
	for i := range a.SymmetricDim() {
		d := a.At(i, i)
		if d <= 0 {
			continue
		}
		worst = math.Max(worst, math.Abs(g.AtVec(i))/(math.Sqrt(d)*rnorm))
	}
	return worst
}

// dampedStep solves (A + λ·diag(A)) δ = g. Diagonal entries are floored
// relative to the largest one so a parameter without derivative still gets
// damped.
func dampedStep(a *mat.SymDense, g *mat.VecDense, lambda float64) (*mat.VecDense, bool) {
	n := a.SymmetricDim()
	var largest float64
	for i := range n {
		largest = math.Max(largest, a.At(i, i))
	}
	floor := math.Max(largest*diagonalFloor, math.SmallestNonzeroFloat64)

	damped := mat.NewSymDense(n, nil)
	damped.CopySym(a)
	for i := range n {
		d := a.At(i, i)
		damped.SetSym(i, i, d+lambda*math.Max(d, floor))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(damped); !ok {
		return nil, false
	}
	step := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(step, g); err != nil {
		// Ill conditioning is only a warning; the finite check below decides.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, false
		}
	}
	for i := range n {
		if !finite(step.AtVec(i)) {
			return nil, false
		}
	}
	return step, true
}

func sumSquares(r []float64) (float64, int) {
	var sum float64
	bad := 0
	for _, v := range r {
		if !finite(v) {
			bad++
			continue
		}
		sum += v * v
	}
	return sum, bad
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
