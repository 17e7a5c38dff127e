// Package particlefilter implements the Rao-Blackwellised particle filter
// core (§4.E): state, propagation, weighting, normalization, resampling,
// effective sample size tracking, and interspersal of externally supplied
// pose hints.
package particlefilter

import (
	"time"

	"github.com/deepfathom/dpslam/featuremap"
	"github.com/deepfathom/dpslam/grid"
)

// Particle is one weighted pose hypothesis (§3 Pose particle). Position and
// velocity are 3-vectors (x, y, z); depth is observed directly rather than
// dead-reckoned (§4.E.2), so Position[2] is overwritten on every Dynamic
// call instead of being integrated from velocity.
type Particle struct {
	Position [3]float64
	Velocity [3]float64

	Timestamp    time.Time
	HasTimestamp bool

	Confidence float64

	DepthCells    map[grid.Cell]featuremap.Association
	ObstacleCells map[grid.Cell]featuremap.Association
}

func newParticle(pos [3]float64, weight float64) Particle {
	return Particle{
		Position:      pos,
		Velocity:      [3]float64{0, 0, 0},
		Confidence:    weight,
		DepthCells:    make(map[grid.Cell]featuremap.Association),
		ObstacleCells: make(map[grid.Cell]featuremap.Association),
	}
}

// clone deep-copies the pose and association maps of p, used by resampling
// (§4.E.5). Refcount bumps for every copied association are the caller's
// responsibility (the Map is the sole authority on refcounts).
func (p *Particle) clone() Particle {
	cp := Particle{
		Position:      p.Position,
		Velocity:      p.Velocity,
		Timestamp:     p.Timestamp,
		HasTimestamp:  p.HasTimestamp,
		Confidence:    p.Confidence,
		DepthCells:    make(map[grid.Cell]featuremap.Association, len(p.DepthCells)),
		ObstacleCells: make(map[grid.Cell]featuremap.Association, len(p.ObstacleCells)),
	}
	for k, v := range p.DepthCells {
		cp.DepthCells[k] = v
	}
	for k, v := range p.ObstacleCells {
		cp.ObstacleCells[k] = v
	}
	return cp
}
