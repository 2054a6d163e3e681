package integrator

// Integrable is a state owner that can be advanced by RK4: the same
// shape as the teacher's original Integrable interface, generalized from
// an orbit propagation's fixed six-plus-STM state to an arbitrary-length
// state vector.
type Integrable interface {
	GetState() []float64                   // current state.
	SetState(i uint64, s []float64)        // commit the state reached at iteration i.
	Stop(i uint64) bool                    // report whether to halt before iteration i.
	Func(t float64, s []float64) []float64 // ODE right-hand side at (t, s).
}

// RK4 is a fixed-step, non-stiff classical Runge-Kutta integrator kept
// both as a standalone driver for simple models and as the single-step
// predictor the BDF corrector uses to bootstrap its history.
type RK4 struct {
	X0       float64
	StepSize float64
	Integ    Integrable
}

// NewRK4 returns an RK4 integrator advancing integ from x0 in steps of
// stepSize.
func NewRK4(x0, stepSize float64, integ Integrable) *RK4 {
	if stepSize <= 0 {
		panic("integrator: RK4 StepSize must be positive")
	}
	if integ == nil {
		panic("integrator: RK4 Integ may not be nil")
	}
	return &RK4{X0: x0, StepSize: stepSize, Integ: integ}
}

// Solve advances the integrator until Stop reports true, returning the
// iteration count and the final x.
func (r *RK4) Solve() (uint64, float64) {
	iter := uint64(0)
	xi := r.X0
	for !r.Integ.Stop(iter) {
		state := r.Integ.GetState()
		newState := rk4Step(func(t float64, y, ydot []float64) {
			copy(ydot, r.Integ.Func(t, y))
		}, xi, r.StepSize, state)
		r.Integ.SetState(iter, newState)
		xi += r.StepSize
		iter++
	}
	return iter, xi
}

// rk4Step takes one classical fourth-order Runge-Kutta step of size h
// from (t, y), returning the new state. It is the BDF corrector's
// startup predictor as well as RK4.Solve's inner step.
func rk4Step(f Derivs, t, h float64, y []float64) []float64 {
	n := len(y)
	const (
		half     = 0.5
		oneSixth = 1.0 / 6.0
		oneThird = 1.0 / 3.0
	)

	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	tmp := make([]float64, n)
	out := make([]float64, n)

	f(t, y, k1)
	for i := range tmp {
		tmp[i] = y[i] + h*half*k1[i]
	}
	f(t+h*half, tmp, k2)
	for i := range tmp {
		tmp[i] = y[i] + h*half*k2[i]
	}
	f(t+h*half, tmp, k3)
	for i := range tmp {
		tmp[i] = y[i] + h*k3[i]
	}
	f(t+h, tmp, k4)
	for i := range out {
		out[i] = y[i] + h*(oneSixth*(k1[i]+k4[i])+oneThird*(k2[i]+k3[i]))
	}
	return out
}
