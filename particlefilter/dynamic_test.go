package particlefilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepfathom/dpslam/randm"
)

func TestDynamicAdvancesPoseAndOverwritesDepth(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ParticleNumber = 3
	cfg.StaticMotionCovariance = [9]float64{
		0.0001, 0, 0,
		0, 0.0001, 0,
		0, 0, 0.0001,
	}
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	e.SetOrientation(0, 9.5)

	start := time.Now()
	for i := range e.Particles {
		e.Particles[i].Position = [3]float64{0, 0, 0}
		e.Particles[i].Timestamp = start
		e.Particles[i].HasTimestamp = true
	}

	control := Control{Velocity: [3]float64{1.0, 0, 0}, Timestamp: start.Add(time.Second)}
	e.Dynamic(control, randm.NewSource(2))

	for _, p := range e.Particles {
		assert.Greater(t, p.Position[0], 0.0, "surge velocity should move the particle forward")
		assert.Equal(t, 9.5, p.Position[2], "z is overwritten by the depth sample, not integrated")
	}
}

func TestDynamicClampsNegativeDeltaT(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ParticleNumber = 2
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	start := time.Now()
	for i := range e.Particles {
		e.Particles[i].Position = [3]float64{3, 3, 0}
		e.Particles[i].Timestamp = start
		e.Particles[i].HasTimestamp = true
	}

	control := Control{Velocity: [3]float64{5, 0, 0}, Timestamp: start.Add(-time.Second)}
	e.Dynamic(control, randm.NewSource(2))

	for _, p := range e.Particles {
		assert.Equal(t, 3.0, p.Position[0], "a control older than the particle's timestamp must not move it")
	}
}

func TestDynamicFromActuatorRequiresTransitionFunc(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	err = e.DynamicFromActuator(ActuatorStatus{ThrustFraction: 0.5}, nil, randm.NewSource(2))
	assert.ErrorIs(t, err, ErrNoMotionModel)
}

func TestDynamicFromActuatorAppliesTransitionFunc(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	fn := func(s ActuatorStatus) Control {
		return Control{Velocity: [3]float64{s.ThrustFraction * 2, 0, 0}, Timestamp: s.Timestamp}
	}

	err = e.DynamicFromActuator(ActuatorStatus{ThrustFraction: 1.0, Timestamp: time.Now()}, fn, randm.NewSource(2))
	assert.NoError(t, err)
}
