package sbmlsolver

import "fmt"

// IntegratorFailure reports a fatal failure from the underlying stiff
// solver, such as a non-convergent Newton corrector or an internal step
// count exceeding MaxSteps.
type IntegratorFailure struct {
	Code int
	msg  string
}

func (e *IntegratorFailure) Error() string {
	return fmt.Sprintf("integrator failure (code %d): %s", e.Code, e.msg)
}

// InitializationFailure reports a fatal problem discovered while
// allocating or configuring a Driver: a nil Model, a negative state size
// or event count, an integrator that fails to initialize, or a Reset on
// a Driver that was never initialized. The state size is read once per
// Initialize; a later change in the model's declared size is not checked.
type InitializationFailure struct {
	msg string
}

func (e *InitializationFailure) Error() string {
	return "initialization failure: " + e.msg
}

func newInitializationFailure(format string, args ...interface{}) *InitializationFailure {
	return &InitializationFailure{msg: fmt.Sprintf(format, args...)}
}

func newIntegratorFailure(code int, format string, args ...interface{}) *IntegratorFailure {
	return &IntegratorFailure{Code: code, msg: fmt.Sprintf(format, args...)}
}
