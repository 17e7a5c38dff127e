package observation

import (
	"math"

	"github.com/deepfathom/dpslam/nodemap"
	"github.com/deepfathom/dpslam/particlefilter"
	"github.com/deepfathom/dpslam/randm"
)

// ApplyLaser implements §4.D.3: a single-range beam checked against the
// static node map's "root.wall" tag. OutOfWorld yields likelihood 0;
// OutOfRange yields the uniform density 1/(rMax-rMin); otherwise the
// likelihood is a zero-mean Gaussian on the residual between the measured
// range and the nearest wall distance.
func ApplyLaser(e *particlefilter.Engine, nm nodemap.NodeMap, cfg Config, beamYawRad, rangeM float64) {
	var lastLikelihood float64
	var lastEndpoint nodemap.Point3

	for i := range e.Particles {
		p := &e.Particles[i]
		absYaw := beamYawRad + e.VehicleYaw()

		origin := nodemap.Point3{X: p.Position[0], Y: p.Position[1], Z: p.Position[2]}
		endpoint := nodemap.Point3{
			X: p.Position[0] + rangeM*math.Cos(absYaw),
			Y: p.Position[1] + rangeM*math.Sin(absYaw),
			Z: p.Position[2],
		}

		if !nm.BelongsToWorld(endpoint) {
			e.ApplyLikelihood(i, 0)
			continue
		}

		if rangeM < cfg.SonarMinimumDistance || rangeM > cfg.SonarMaximumDistance {
			span := cfg.SonarMaximumDistance - cfg.SonarMinimumDistance
			likelihood := 0.0
			if span > 0 {
				likelihood = 1.0 / span
			}
			e.ApplyLikelihood(i, likelihood)
			lastLikelihood, lastEndpoint = likelihood, endpoint
			continue
		}

		residual, _, ok := nm.NearestDistance("root.wall", endpoint, origin)
		if !ok {
			e.ApplyLikelihood(i, 0)
			continue
		}

		likelihood := randm.Gaussian1D(0, cfg.SonarCovariance, residual)
		e.ApplyLikelihood(i, likelihood)
		lastLikelihood, lastEndpoint = likelihood, endpoint
	}

	if len(e.Particles) > 0 {
		e.RecordMeasurement(rangeM, [3]float64{lastEndpoint.X, lastEndpoint.Y, lastEndpoint.Z}, lastLikelihood, "laser")
	}
}
