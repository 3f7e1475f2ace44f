package engine

// Collision log thresholds. Below the first every collision is logged; past
// each threshold only every Nth one is.
const (
	logEveryBelow   = 1000
	logSparseBelow  = 3000
	logSparserBelow = 5000

	sparseEvery   = 100
	sparserEvery  = 250
	sparsestEvery = 500
)

// ShouldLogCollision reports whether the collision that brought the group's
// cumulative retry count to retries should be logged.
func ShouldLogCollision(retries int) bool {
	switch {
	case retries < logEveryBelow:
		return true
	case retries < logSparseBelow:
		return retries%sparseEvery == 0
	case retries < logSparserBelow:
		return retries%sparserEvery == 0
	default:
		return retries%sparsestEvery == 0
	}
}
