package observation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGPSObservationLikelihood(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1)
	e.Particles[0].Position = [3]float64{1, 2, 3}

	obs := GPSObservation{Position: [2]float64{1, 2}, Variance: [2]float64{0.1, 0.1}}
	nm := stubNodeMap{}

	ApplyPerception(e, obs, nm)

	expected := 1.0 / (2 * math.Pi * 0.1)
	assert.InDelta(t, expected, e.Particles[0].Confidence, 1e-9)
}

func TestDepthObservationLikelihood(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1)
	e.Particles[0].Position = [3]float64{0, 0, 5}

	obs := DepthObservation{Depth: 5, Variance: 0.25}
	nm := stubNodeMap{}

	ApplyPerception(e, obs, nm)

	expected := 1.0 / math.Sqrt(2*math.Pi*0.25)
	assert.InDelta(t, expected, e.Particles[0].Confidence, 1e-9)
}

func TestPipelineObservationYieldsZeroWithoutSegment(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, 1)
	obs := PipelineObservation{Tag: "root.pipeline", Variance: 1}
	nm := stubNodeMap{hasSegment: false}

	ApplyPerception(e, obs, nm)

	assert.Equal(t, 0.0, e.Particles[0].Confidence)
}
