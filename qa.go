package dpslam

import (
	"math"
	"time"

	"github.com/samber/lo"
	"github.com/soniakeys/meeus/v3/julian"

	"github.com/deepfathom/dpslam/grid"
	"github.com/deepfathom/dpslam/particlefilter"
)

// QualityInfo is the live analogue of the teacher's QualityInfo: instead of
// sweeping a decoded file once for ping-header consistency, it sweeps the
// current particle set and map once for filter-health consistency
// (SPEC_FULL supplemented feature 5).
type QualityInfo struct {
	// WeightSumDrift is |sum(confidence) - 1| measured before
	// normalization, the same drift NormalizeWeights guards against.
	WeightSumDrift float64
	ESS            float64
	ZeroWeighted   int

	// MinMaxCellReferences is the [min, max] number of particle
	// associations pointing into any one cell, mirroring qa.go's
	// Min_Max_Beams domain check (lo.Min/lo.Max over a per-entity count).
	MinMaxCellReferences [2]int
	ParticleCount        int

	// JulianDay is the Julian day number of the QA sweep, carried in the
	// persisted report so logs and Cloud/SimpleGrid snapshots from the same
	// run can be cross-referenced by an absolute time scale rather than a
	// zone-dependent wall clock (mirrors meeus-based day-number bookkeeping
	// used for ephemeris/tide-table correlation in marine survey tooling).
	JulianDay float64
}

// QA performs the one-shot consistency sweep of SPEC_FULL supplemented
// feature 5, grounded directly on the teacher's qa.go (Min_Max_Beams,
// Consistent_Beams-style domain checks over a lo.Min/lo.Max pair).
func (e *Engine) QA() QualityInfo {
	var info QualityInfo

	sum := 0.0
	zero := 0
	for _, p := range e.PF.Particles {
		sum += p.Confidence
		if p.Confidence == 0 {
			zero++
		}
	}

	info.WeightSumDrift = math.Abs(sum - 1.0)
	info.ESS = e.PF.ESS()
	info.ZeroWeighted = zero
	info.ParticleCount = len(e.PF.Particles)
	info.JulianDay = julian.TimeToJD(time.Now())

	counts := cellReferenceCounts(e.PF.Particles)
	if len(counts) > 0 {
		info.MinMaxCellReferences = [2]int{lo.Min(counts), lo.Max(counts)}
	}

	return info
}

// cellReferenceCounts tallies, per distinct cell referenced by any
// particle's depth or obstacle associations, how many associations across
// the whole particle set point into that cell.
func cellReferenceCounts(particles []particlefilter.Particle) []int {
	seen := make(map[grid.Cell]int)
	for _, p := range particles {
		for cell := range p.DepthCells {
			seen[cell]++
		}
		for cell := range p.ObstacleCells {
			seen[cell]++
		}
	}

	counts := make([]int, 0, len(seen))
	for _, c := range seen {
		counts = append(counts, c)
	}
	return counts
}
