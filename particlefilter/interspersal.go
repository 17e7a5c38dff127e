package particlefilter

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/deepfathom/dpslam/randm"
)

// Intersperse implements §4.E.6: on an externally supplied pose hint
// (mean, cov) with ratio r, keep the top floor((1-r)*N) particles by
// weight and replace the remainder with draws from 𝒩(mean, cov); replaced
// particles copy velocity from the single best particle and get weight
// best.weight - ε, then the whole set is renormalized. Replaced particles
// lose their map associations outright, since they are being re-seeded at
// an unrelated pose; callers must release those associations' refcounts
// beforehand, matching Resample's release-then-retain discipline.
func (e *Engine) Intersperse(mean [3]float64, cov *mat.SymDense, rng *randm.Source) int {
	n := len(e.Particles)
	if n == 0 || e.Config.HoughInterspersalRatio <= 0 {
		return 0
	}

	ratio := e.Config.HoughInterspersalRatio
	keep := int(math.Floor((1 - ratio) * float64(n)))
	if keep < 0 {
		keep = 0
	}
	if keep > n {
		keep = n
	}
	replaceCount := n - keep
	if replaceCount <= 0 {
		return 0
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return e.Particles[order[a]].Confidence > e.Particles[order[b]].Confidence
	})

	best := e.Particles[order[0]]
	const epsilon = 1e-9
	replaceWeight := best.Confidence - epsilon
	if replaceWeight < 0 {
		replaceWeight = 0
	}

	dist, ok := rng.MultiGaussian3(mean, cov)

	for _, idx := range order[keep:] {
		pos := mean
		if ok {
			sample := dist.Rand(nil)
			pos = [3]float64{sample[0], sample[1], sample[2]}
		}
		np := newParticle(pos, replaceWeight)
		np.Velocity = best.Velocity
		e.Particles[idx] = np
	}

	e.NormalizeWeights()
	return replaceCount
}
