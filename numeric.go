package sbmlsolver

import (
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

// sign returns the sign of v, treating anything within 1e-12 of zero as
// positive; adapted from the teacher's own epsilon-aware sign, which
// this package also needs for its own "effectively equal" comparisons.
func sign(v float64) float64 {
	if floats.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// norm returns the Euclidean norm of an N-dimensional vector via
// mat64/BLAS, generalized from the teacher's 3-vector-only norm.
func norm(v []float64) float64 {
	return mat64.Norm(mat64.NewVector(len(v), v), 2)
}

// closeWithin reports whether a and b are within tol of each other;
// Advance uses it for chatter detection.
func closeWithin(a, b, tol float64) bool {
	return floats.EqualWithinAbs(a, b, tol)
}
