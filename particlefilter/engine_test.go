package particlefilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepfathom/dpslam/randm"
)

func testConfig() Config {
	return Config{
		ParticleNumber: 50,
		InitPosition:   [3]float64{0, 0, 0},
		InitVariance:   [3]float64{2, 2, 0},
		EssThreshold:   0.5,
		MaxAngularSum:  3.14159265,
	}
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive particle number", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.ParticleNumber = 0
		_, err := NewEngine(cfg, randm.NewSource(1), nil)
		assert.ErrorIs(t, err, ErrInvalidParticleNumber)
	})

	t.Run("rejects out of range ess threshold", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.EssThreshold = 0
		_, err := NewEngine(cfg, randm.NewSource(1), nil)
		assert.ErrorIs(t, err, ErrInvalidEssThreshold)
	})

	t.Run("draws the configured number of particles with uniform weight", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		e, err := NewEngine(cfg, randm.NewSource(7), nil)
		require.NoError(t, err)
		require.Len(t, e.Particles, cfg.ParticleNumber)

		sum := 0.0
		for _, p := range e.Particles {
			sum += p.Confidence
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	})
}

func TestNormalizeWeightsAndESS(t *testing.T) {
	t.Parallel()

	t.Run("normalizes to sum 1 and reports ESS", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.ParticleNumber = 4
		e, err := NewEngine(cfg, randm.NewSource(1), nil)
		require.NoError(t, err)

		weights := []float64{1, 1, 1, 1}
		for i, w := range weights {
			e.Particles[i].Confidence = w
		}

		ok := e.NormalizeWeights()
		require.True(t, ok)

		sum := 0.0
		for _, p := range e.Particles {
			sum += p.Confidence
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
		assert.InDelta(t, 4.0, e.ESS(), 1e-9)
	})

	t.Run("flags degenerate filter when all weights are zero", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.ParticleNumber = 4
		e, err := NewEngine(cfg, randm.NewSource(1), nil)
		require.NoError(t, err)

		for i := range e.Particles {
			e.Particles[i].Confidence = 0
		}

		ok := e.NormalizeWeights()
		assert.False(t, ok)

		diags := e.DrainDiagnostics()
		require.Len(t, diags, 1)
		assert.Equal(t, DiagDegenerateFilter, diags[0].Kind)
	})
}

func TestTrackAngularCoverage(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxAngularSum = 1.0
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	assert.False(t, e.TrackAngularCoverage(0.0), "first observation only seeds the tracker")
	assert.False(t, e.TrackAngularCoverage(0.5))
	assert.True(t, e.TrackAngularCoverage(1.2), "accumulated sweep should exceed MaxAngularSum")
	assert.Equal(t, 0.0, e.sumAngle, "sum resets after firing")
}

func TestTeleport(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ParticleNumber = 10
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	pose := [3]float64{5, 6, 7}
	e.Teleport(pose)

	for _, p := range e.Particles {
		assert.Equal(t, pose, p.Position)
		assert.Empty(t, p.DepthCells)
		assert.Empty(t, p.ObstacleCells)
		assert.InDelta(t, 1.0/float64(len(e.Particles)), p.Confidence, 1e-9)
	}
}

func TestBestMeasurementTracking(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	e.ResetBestMeasurement()
	e.RecordMeasurement(1.0, [3]float64{1, 0, 0}, 0.2, "sonar")
	e.RecordMeasurement(2.0, [3]float64{2, 0, 0}, 0.8, "echosounder")
	e.RecordMeasurement(3.0, [3]float64{3, 0, 0}, 0.5, "laser")

	best, ok := e.LastBestMeasurement()
	require.True(t, ok)
	assert.Equal(t, "echosounder", best.Status)
	assert.InDelta(t, 0.8, best.Confidence, 1e-9)
}

func TestStep(t *testing.T) {
	t.Parallel()

	t.Run("skips resample and flags measurement_incomplete past zero weight threshold", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.ParticleNumber = 4
		cfg.ZeroWeightThreshold = 1
		e, err := NewEngine(cfg, randm.NewSource(1), nil)
		require.NoError(t, err)

		e.Particles[0].Confidence = 0
		e.Particles[1].Confidence = 0
		e.Particles[2].Confidence = 1
		e.Particles[3].Confidence = 1

		_, skipped := e.Step()
		assert.True(t, skipped)

		diags := e.DrainDiagnostics()
		require.Len(t, diags, 1)
		assert.Equal(t, DiagMeasurementIncomplete, diags[0].Kind)
	})
}

func TestSetOrientationAppliesYawOffset(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.YawOffset = 0.1
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	e.SetOrientation(1.0, 3.5)
	assert.InDelta(t, 1.1, e.VehicleYaw(), 1e-9)
}

func TestEngineNowFallsBackToRealTime(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	before := time.Now()
	got := e.now()
	assert.False(t, got.Before(before))
}
