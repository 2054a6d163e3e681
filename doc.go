// Package sbmlsolver implements the hybrid ODE-with-events integration
// driver at the core of a biochemical simulation runtime: it advances a
// continuous state vector with a stiff adaptive integrator while handling
// discrete events (trigger zero-crossings, delayed and immediate
// assignments, persistence, simultaneity and chatter).
//
// SBML parsing, steady-state analysis and code generation of model
// functions live outside this package; it only needs a Model
// collaborator (see model.go) to drive a simulation.
package sbmlsolver
