package observation

import (
	"github.com/deepfathom/dpslam/nodemap"
	"github.com/deepfathom/dpslam/particlefilter"
	"github.com/deepfathom/dpslam/randm"
)

// Perception is the common contract of §4.D.4: every non-mapping modality
// reduces to a pose-to-likelihood function given the static node map. Map
// features (GPS, depth) ignore nm; node-map features (pipeline, buoy)
// ignore nothing.
type Perception interface {
	Likelihood(pos [3]float64, nm nodemap.NodeMap) float64
	Name() string
}

// GPSObservation is a 2-D position fix with independent per-axis variance.
type GPSObservation struct {
	Position [2]float64
	Variance [2]float64
}

func (o GPSObservation) Likelihood(pos [3]float64, _ nodemap.NodeMap) float64 {
	return randm.Gaussian1D(o.Position[0], o.Variance[0], pos[0]) *
		randm.Gaussian1D(o.Position[1], o.Variance[1], pos[1])
}

func (o GPSObservation) Name() string { return "gps" }

// DepthObservation is a direct 1-D depth sample, independent of the
// echosounder's map-shaping role.
type DepthObservation struct {
	Depth    float64
	Variance float64
}

func (o DepthObservation) Likelihood(pos [3]float64, _ nodemap.NodeMap) float64 {
	return randm.Gaussian1D(o.Depth, o.Variance, pos[2])
}

func (o DepthObservation) Name() string { return "depth" }

// PipelineObservation rates a particle by its distance to the nearest
// segment tagged Tag (typically "root.pipeline").
type PipelineObservation struct {
	Tag      string
	Variance float64
}

func (o PipelineObservation) Likelihood(pos [3]float64, nm nodemap.NodeMap) float64 {
	return tagDistanceLikelihood(pos, nm, o.Tag, o.Variance)
}

func (o PipelineObservation) Name() string { return "pipeline" }

// BuoyObservation rates a particle by its distance to the nearest segment
// tagged Tag (typically "root.buoy").
type BuoyObservation struct {
	Tag      string
	Variance float64
}

func (o BuoyObservation) Likelihood(pos [3]float64, nm nodemap.NodeMap) float64 {
	return tagDistanceLikelihood(pos, nm, o.Tag, o.Variance)
}

func (o BuoyObservation) Name() string { return "buoy" }

func tagDistanceLikelihood(pos [3]float64, nm nodemap.NodeMap, tag string, variance float64) float64 {
	point := nodemap.Point3{X: pos[0], Y: pos[1], Z: pos[2]}
	dist, _, ok := nm.NearestDistance(tag, point, point)
	if !ok {
		return 0
	}
	return randm.Gaussian1D(0, variance, dist)
}

// ApplyPerception evaluates perception against every particle's pose and
// folds the result into its weight via Engine.ApplyLikelihood.
func ApplyPerception(e *particlefilter.Engine, perception Perception, nm nodemap.NodeMap) {
	var lastLikelihood float64
	var lastPos [3]float64

	for i := range e.Particles {
		pos := e.Particles[i].Position
		likelihood := perception.Likelihood(pos, nm)
		e.ApplyLikelihood(i, likelihood)
		lastLikelihood, lastPos = likelihood, pos
	}

	if len(e.Particles) > 0 {
		e.RecordMeasurement(0, lastPos, lastLikelihood, perception.Name())
	}
}
