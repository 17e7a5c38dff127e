package particlefilter

import (
	"github.com/deepfathom/dpslam/featuremap"
	"github.com/deepfathom/dpslam/randm"
)

// releaseAllAssociations drops every particle's hold on its map
// associations, used as the first half of Resample's release-then-retain
// sweep so the Map's refcounts always equal the number of particles
// currently pointing at a node (§3 Feature tree invariants).
func releaseAllAssociations(particles []Particle, m *featuremap.Map) {
	for _, p := range particles {
		for cell, assoc := range p.DepthCells {
			m.ReleaseDepth(cell.IX, cell.IY, assoc.ID)
		}
		for cell, assoc := range p.ObstacleCells {
			m.ReleaseObstacle(cell.IX, cell.IY, assoc.ID)
		}
	}
}

func retainAllAssociations(particles []Particle, m *featuremap.Map) {
	for _, p := range particles {
		for cell, assoc := range p.DepthCells {
			m.RetainDepth(cell.IX, cell.IY, assoc.ID)
		}
		for cell, assoc := range p.ObstacleCells {
			m.RetainObstacle(cell.IX, cell.IY, assoc.ID)
		}
	}
}

// systematicIndices draws N indices into a weight distribution using
// low-variance (systematic) resampling: a single uniform draw in [0, 1/N)
// offset by i/N for each of the N output slots, rather than N independent
// draws (§4.E.5).
func systematicIndices(weights []float64, rng *randm.Source) []int {
	n := len(weights)
	out := make([]int, n)

	start := rng.Uniform01() / float64(n)
	cumulative := weights[0]
	j := 0

	for i := 0; i < n; i++ {
		target := start + float64(i)/float64(n)
		for target > cumulative && j < n-1 {
			j++
			cumulative += weights[j]
		}
		out[i] = j
	}

	return out
}

// Resample implements §4.E.5: if ESS has fallen below
// EssThreshold * particle count, draw a fresh particle set via
// low-variance/systematic resampling and reset all weights uniformly. The
// Map's refcounts are rebalanced to match the new particle set via a
// release-then-retain sweep. Resample is a no-op (returns false) when ESS
// is still above threshold.
func (e *Engine) Resample(m *featuremap.Map, rng *randm.Source) bool {
	n := len(e.Particles)
	if n == 0 {
		return false
	}

	threshold := e.Config.EssThreshold * float64(n)
	if e.ESS() >= threshold {
		return false
	}

	weights := make([]float64, n)
	for i, p := range e.Particles {
		weights[i] = p.Confidence
	}

	indices := systematicIndices(weights, rng)

	newParticles := make([]Particle, n)
	weight := 1.0 / float64(n)
	for i, idx := range indices {
		cp := e.Particles[idx].clone()
		cp.Confidence = weight
		newParticles[i] = cp
	}

	releaseAllAssociations(e.Particles, m)
	retainAllAssociations(newParticles, m)

	e.Particles = newParticles
	e.Generation++
	return true
}
