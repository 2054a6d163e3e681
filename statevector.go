package sbmlsolver

// StateVector is the integrator's authoritative copy of the continuous
// state between Driver calls. Its length is fixed at Initialize and
// tracks the model's declared state size.
type StateVector []float64

// ToleranceVector holds one positive absolute tolerance per state
// component, parallel to a StateVector.
type ToleranceVector []float64

func newStateVector(n int) StateVector {
	return make(StateVector, n)
}

func newToleranceVector(n int, absTol float64) ToleranceVector {
	tol := make(ToleranceVector, n)
	for i := range tol {
		tol[i] = absTol
	}
	return tol
}

// tighten applies the "assignNewTolerances" rule from Driver
// initialization: every component's tolerance is set to one shared value,
// min(absTol, y[i]/1000 over all positive y[i]). Non-positive components
// do not contribute, so the result stays positive whenever absTol is.
func (tol ToleranceVector) tighten(y []float64, absTol float64) {
	dMin := absTol
	for _, yi := range y {
		s := yi / 1000
		if s > 0 && s < dMin {
			dMin = s
		}
	}
	for i := range tol {
		tol[i] = dMin
	}
}
