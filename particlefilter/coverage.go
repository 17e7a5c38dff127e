package particlefilter

import "github.com/deepfathom/dpslam/featuremap"

// ObserveBeamAngle feeds one beam's absolute heading into the
// angular-coverage tracker and, once the accumulated sweep exceeds
// Config.MaxAngularSum, prunes m's feature trees via ReduceFeatures(§4.E.4,
// §4.C.5). It reports whether a reduction ran this call.
func (e *Engine) ObserveBeamAngle(absoluteAngle float64, m *featuremap.Map, confThreshold float64, countThreshold int) bool {
	if !e.TrackAngularCoverage(absoluteAngle) {
		return false
	}
	m.ReduceFeatures(confThreshold, countThreshold)
	return true
}
