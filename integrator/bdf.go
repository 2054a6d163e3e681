package integrator

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

// bdfAlpha holds the fixed-step BDF coefficients (alpha[0]*y_n +
// alpha[1]*y_{n-1} + ... = h*f(t_n, y_n)) for orders 1 through 5, the
// standard backward-differentiation table.
var bdfAlpha = [][]float64{
	{1, -1},
	{1.5, -2, 0.5},
	{11.0 / 6.0, -3, 1.5, -1.0 / 3.0},
	{25.0 / 12.0, -4, 3, -4.0 / 3.0, 0.25},
	{137.0 / 60.0, -5, 5, -10.0 / 3.0, 1.25, -0.2},
}

const (
	newtonMaxIter  = 8
	newtonTol      = 0.1 // on the tolerance-weighted RMS residual
	maxHalvings    = 12
	bisectionIters = 60
)

// BDF is a variable-order backward-differentiation stiff corrector with
// a Newton inner loop, a dense finite-difference Jacobian solved by
// matrix inversion, and bisection-refined root detection between
// accepted steps. It is the Go-native stand-in for a CVODE-style BDF
// solver; no Go binding for one exists among the libraries this
// implementation draws on.
type BDF struct {
	n int
	f Derivs

	rootFn   RootFunc
	numRoots int
	prevG    []float64
	haveG    bool
	rootInfo []int

	t float64
	y []float64

	histT []float64
	histY [][]float64
	order int

	relTol   float64
	absTol   []float64
	h        float64
	hMin     float64
	hMax     float64
	maxOrder int
	maxSteps int
}

// New returns a BDF sized for an n-component state.
func New(n int) *BDF {
	return &BDF{n: n}
}

// Init allocates solver memory and configures tolerances and step
// bounds, per §4.1's contract.
func (b *BDF) Init(t0 float64, y0 []float64, relTol float64, absTol []float64, f Derivs, opts Options) error {
	if opts.MaxOrder <= 0 || opts.MaxOrder > 5 {
		opts.MaxOrder = 5
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 10000
	}
	b.f = f
	b.relTol = relTol
	b.absTol = append([]float64(nil), absTol...)
	b.maxOrder = opts.MaxOrder
	b.maxSteps = opts.MaxSteps
	b.hMin = opts.MinStep
	b.hMax = opts.MaxStep
	if opts.InitStep > 0 {
		b.h = opts.InitStep
	} else {
		b.h = defaultInitStep(relTol)
	}
	return b.Reinit(t0, y0)
}

// Reinit restarts the solver's history at (t, y), discarding any
// accumulated order history: every event assignment does this.
func (b *BDF) Reinit(t float64, y []float64) error {
	if len(y) != b.n {
		b.n = len(y)
	}
	b.t = t
	b.y = append([]float64(nil), y...)
	b.histT = []float64{t}
	b.histY = [][]float64{append([]float64(nil), y...)}
	b.order = 1
	b.haveG = false
	return nil
}

// RootInit installs the event-trigger function. Subsequent Step calls
// watch its numRoots outputs for sign changes.
func (b *BDF) RootInit(numRoots int, rootFn RootFunc) {
	b.numRoots = numRoots
	b.rootFn = rootFn
	b.prevG = make([]float64, numRoots)
	b.rootInfo = make([]int, numRoots)
	b.haveG = false
}

// RootInfo reports, for each root index, -1/0/+1 for the sign
// transition detected by the most recent RootHit.
func (b *BDF) RootInfo() []int {
	return b.rootInfo
}

// State copies the solver's current y into out.
func (b *BDF) State(out []float64) {
	copy(out, b.y)
}

// Step advances the solver from its current (t, y) toward tTarget,
// internally subdividing into accepted BDF steps, stopping early with
// RootHit at the first detected root crossing.
func (b *BDF) Step(tTarget float64) (float64, StepOutcome) {
	if b.numRoots > 0 && !b.haveG {
		g := make([]float64, b.numRoots)
		b.rootFn(b.t, b.y, g)
		b.prevG = g
		b.haveG = true
	}

	internalSteps := 0
	for {
		if b.t >= tTarget-1e-16 {
			return b.t, StepOutcome{Result: Converged}
		}
		if internalSteps >= b.maxSteps {
			return b.t, StepOutcome{Result: Failed, Code: ErrMaxStepsExceeded}
		}
		internalSteps++

		h := b.h
		if b.hMax > 0 && h > b.hMax {
			h = b.hMax
		}
		if b.t+h > tTarget {
			h = tTarget - b.t
		}

		tPrev, yPrev := b.t, append([]float64(nil), b.y...)
		tNew, yNew, code := b.acceptStep(h)
		if code != 0 {
			return b.t, StepOutcome{Result: Failed, Code: code}
		}

		b.pushHistory(tNew, yNew)
		b.t, b.y = tNew, yNew

		if b.numRoots == 0 {
			continue
		}
		g := make([]float64, b.numRoots)
		b.rootFn(tNew, yNew, g)
		crossed := false
		for i := range g {
			if sign(g[i]) != sign(b.prevG[i]) && sign(b.prevG[i]) != 0 {
				crossed = true
			}
		}
		if !crossed {
			b.prevG = g
			continue
		}

		tRoot, yRoot, info := b.bisectRoot(tPrev, yPrev, b.prevG, tNew, yNew, g)
		b.t, b.y = tRoot, yRoot
		b.rootInfo = info
		b.haveG = false
		return tRoot, StepOutcome{Result: RootHit}
	}
}

// acceptStep attempts one internal step of size h, halving on Newton
// non-convergence up to maxHalvings times before giving up. The returned
// code is 0 on success, ErrStepTooSmall once h falls below MinStep, and
// ErrNewtonDiverged when the halvings are exhausted.
func (b *BDF) acceptStep(h float64) (float64, []float64, int) {
	for attempt := 0; attempt < maxHalvings; attempt++ {
		if h < b.hMin && b.hMin > 0 {
			return 0, nil, ErrStepTooSmall
		}
		yPred := b.predict(h)
		yCorr, ok := b.newtonCorrect(b.t+h, h, yPred)
		if ok {
			b.h = h
			return b.t + h, yCorr, 0
		}
		h /= 2
	}
	return 0, nil, ErrNewtonDiverged
}

// predict extrapolates a starting guess for the corrector: a single RK4
// step from the last accepted point when there is no usable history
// beyond it, or linear extrapolation from the last two accepted points
// once the order has grown.
func (b *BDF) predict(h float64) []float64 {
	last := b.histY[0]
	if len(b.histY) < 2 {
		return rk4Step(b.f, b.t, h, last)
	}
	prev := b.histY[1]
	hLast := b.histT[0] - b.histT[1]
	if hLast == 0 {
		return rk4Step(b.f, b.t, h, last)
	}
	ratio := h / hLast
	out := make([]float64, b.n)
	for i := range out {
		slope := last[i] - prev[i]
		out[i] = last[i] + ratio*slope
	}
	return out
}

// newtonCorrect solves alpha0*y - h*f(t,y) + rhs = 0 for y by Newton
// iteration with a finite-difference Jacobian solved by matrix
// inversion, mirroring the teacher's own Φ-inversion idiom.
func (b *BDF) newtonCorrect(t, h float64, y0 []float64) ([]float64, bool) {
	order := b.order
	if order > len(b.histY) {
		order = len(b.histY)
	}
	alpha := bdfAlpha[order-1]

	rhs := make([]float64, b.n)
	for k := 1; k <= order; k++ {
		hy := b.histY[k-1]
		for i := range rhs {
			rhs[i] += alpha[k] * hy[i]
		}
	}

	y := append([]float64(nil), y0...)
	ydot := make([]float64, b.n)
	g := make([]float64, b.n)
	for iter := 0; iter < newtonMaxIter; iter++ {
		b.f(t, y, ydot)
		for i := range g {
			g[i] = alpha[0]*y[i] - h*ydot[i] + rhs[i]
		}
		if vecNorm(g, b.tolFor(y)) < newtonTol {
			return y, true
		}
		jac := b.finiteDiffJacobian(t, h, y, alpha[0], ydot)
		var jacInv mat64.Dense
		if err := jacInv.Inverse(jac); err != nil {
			return nil, false
		}
		gv := mat64.NewDense(b.n, 1, g)
		var delta mat64.Dense
		delta.Mul(&jacInv, gv)
		for i := range y {
			y[i] -= delta.At(i, 0)
		}
	}
	return nil, false
}

// finiteDiffJacobian builds d(alpha0*y - h*f(t,y))/dy by forward
// differences, one model evaluation per state component.
func (b *BDF) finiteDiffJacobian(t, h float64, y []float64, alpha0 float64, f0 []float64) *mat64.Dense {
	jac := mat64.NewDense(b.n, b.n, nil)
	perturbed := append([]float64(nil), y...)
	fPert := make([]float64, b.n)
	for j := 0; j < b.n; j++ {
		eps := 1e-7 * math.Max(1, math.Abs(y[j]))
		perturbed[j] = y[j] + eps
		b.f(t, perturbed, fPert)
		perturbed[j] = y[j]
		for i := 0; i < b.n; i++ {
			dfdy := (fPert[i] - f0[i]) / eps
			d := -h * dfdy
			if i == j {
				d += alpha0
			}
			jac.Set(i, j, d)
		}
	}
	return jac
}

func (b *BDF) pushHistory(t float64, y []float64) {
	b.histT = append([]float64{t}, b.histT...)
	b.histY = append([][]float64{y}, b.histY...)
	if len(b.histT) > b.maxOrder {
		b.histT = b.histT[:b.maxOrder]
		b.histY = b.histY[:b.maxOrder]
	}
	if b.order < b.maxOrder && len(b.histY) > b.order {
		b.order++
	}
}

func (b *BDF) tolFor(y []float64) []float64 {
	tol := make([]float64, len(y))
	for i := range tol {
		at := b.relTol * math.Abs(y[i])
		if i < len(b.absTol) && b.absTol[i] > at {
			at = b.absTol[i]
		}
		tol[i] = at
	}
	return tol
}

func vecNorm(v, scale []float64) float64 {
	var sum float64
	for i, vi := range v {
		s := scale[i]
		if s <= 0 {
			s = 1
		}
		r := vi / s
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(v)))
}

// bisectRoot refines the first sign change among gPrev/gNew to within
// relTol of t, linearly interpolating y along the way; this is a
// simplification of the original's dense-output root refinement.
func (b *BDF) bisectRoot(tLo float64, yLo []float64, gLo []float64, tHi float64, yHi []float64, gHi []float64) (float64, []float64, []int) {
	info := make([]int, b.numRoots)
	for i := range gLo {
		info[i] = sign(gHi[i]) - sign(gLo[i])
		if info[i] > 1 {
			info[i] = 1
		}
		if info[i] < -1 {
			info[i] = -1
		}
	}

	lo, hi := tLo, tHi
	yl := append([]float64(nil), yLo...)
	yh := append([]float64(nil), yHi...)
	gl := append([]float64(nil), gLo...)
	tol := b.relTol
	if tol <= 0 {
		tol = 1e-8
	}
	for i := 0; i < bisectionIters && hi-lo > tol; i++ {
		mid := (lo + hi) / 2
		ym := interp(yl, yh, lo, hi, mid)
		gm := make([]float64, b.numRoots)
		b.rootFn(mid, ym, gm)

		crossed := false
		for j := range gm {
			if sign(gm[j]) != sign(gl[j]) && sign(gl[j]) != 0 {
				crossed = true
				break
			}
		}
		if crossed {
			hi = mid
			yh = ym
		} else {
			lo = mid
			yl = ym
			gl = gm
		}
	}
	yRoot := interp(yl, yh, lo, hi, hi)
	return hi, yRoot, info
}

func interp(yLo, yHi []float64, tLo, tHi, t float64) []float64 {
	out := make([]float64, len(yLo))
	if tHi == tLo {
		copy(out, yHi)
		return out
	}
	frac := (t - tLo) / (tHi - tLo)
	for i := range out {
		out[i] = yLo[i] + frac*(yHi[i]-yLo[i])
	}
	return out
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func defaultInitStep(relTol float64) float64 {
	if relTol <= 0 {
		return 1e-3
	}
	h := math.Sqrt(relTol)
	if h <= 0 {
		return 1e-3
	}
	return h
}
