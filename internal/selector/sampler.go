package selector

import (
	"math/rand/v2"
)

// Sampler is the source of randomness for selection.
type Sampler interface {
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int

	// Sample returns k distinct uniform integers from [0, n), k <= n.
	Sample(n, k int) []int
}

// pcgStream is the fixed PCG stream; only the seed varies between runs.
const pcgStream = 0x9e3779b97f4a7c15

type randSampler struct {
	r *rand.Rand
}

// NewRandSampler returns a Sampler backed by a PCG generator. The same seed
// always yields the same sequence.
func NewRandSampler(seed uint64) Sampler {
	return &randSampler{r: rand.New(rand.NewPCG(seed, pcgStream))}
}

// RandomSeed returns a fresh non-zero seed.
func RandomSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}

func (s *randSampler) Intn(n int) int {
	return s.r.IntN(n)
}

// Sample runs a partial Fisher-Yates shuffle over [0, n).
func (s *randSampler) Sample(n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + s.r.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
