package particlefilter

// ApplyLikelihood updates particle i's weight per §4.E.3:
// w_i <- w_i * (importance*likelihood_i + (1-importance)). With the
// default Importance of 1 this reduces to a plain multiply; a lower
// importance damps the influence of a single noisy measurement instead of
// letting it zero out the particle outright. A likelihood of exactly zero
// still zeroes the particle at importance=1 (a particle can be ruled out
// by a single inconsistent measurement), which is what drives the
// ZeroWeightThreshold check in Step.
func (e *Engine) ApplyLikelihood(i int, likelihood float64) {
	importance := e.Config.Importance
	if importance == 0 {
		importance = 1.0
	}
	e.Particles[i].Confidence *= importance*likelihood + (1 - importance)
}

// CountZeroWeighted reports how many particles currently carry exactly zero
// weight, the trigger condition for §4.E.7's measurement_incomplete
// diagnostic.
func (e *Engine) CountZeroWeighted() int {
	n := 0
	for _, p := range e.Particles {
		if p.Confidence == 0 {
			n++
		}
	}
	return n
}

// Step finishes one perception tick (§4.E.3, §4.E.7): normalize weights,
// and if too many particles zeroed out, flag measurement_incomplete and
// skip resampling for this tick rather than collapsing the filter onto the
// few surviving particles. It returns the ESS computed after normalization
// (0 if the filter was degenerate).
func (e *Engine) Step() (ess float64, skippedResample bool) {
	zeroed := e.CountZeroWeighted()
	if e.Config.ZeroWeightThreshold > 0 && zeroed > e.Config.ZeroWeightThreshold {
		e.emit(DiagMeasurementIncomplete, "too many zero-weighted particles this tick; skipping resample")
		e.NormalizeWeights()
		return e.ESS(), true
	}

	if !e.NormalizeWeights() {
		return 0, true
	}

	return e.ESS(), false
}
