package dpslam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepfathom/dpslam/featuremap"
	"github.com/deepfathom/dpslam/grid"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ParticleFilter.ParticleNumber = 4
	e, err := Init(cfg, time.Now())
	require.NoError(t, err)
	return e
}

func TestQAReportsUniformWeightsAsDriftFree(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	info := e.QA()

	assert.InDelta(t, 0, info.WeightSumDrift, 1e-9)
	assert.Equal(t, 4, info.ParticleCount)
	assert.Equal(t, 0, info.ZeroWeighted)
	assert.Greater(t, info.JulianDay, 0.0)
}

func TestQACountsZeroWeightedParticles(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	e.PF.Particles[0].Confidence = 0

	info := e.QA()
	assert.Equal(t, 1, info.ZeroWeighted)
}

func TestQAComputesESS(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	for i := range e.PF.Particles {
		e.PF.Particles[i].Confidence = 0.25
	}

	info := e.QA()
	assert.InDelta(t, 4.0, info.ESS, 1e-9)
}

func TestQAMinMaxCellReferences(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	now := time.Now()

	shared := e.Map.SetDepth(1, 1, 10.0, 1.0, featuremap.RootID, now)
	lone := e.Map.SetDepth(2, 2, 20.0, 1.0, featuremap.RootID, now)

	e.PF.Particles[0].DepthCells[grid.Cell{IX: 1, IY: 1}] = featuremap.Association{ID: shared}
	e.PF.Particles[1].DepthCells[grid.Cell{IX: 1, IY: 1}] = featuremap.Association{ID: shared}
	e.PF.Particles[2].DepthCells[grid.Cell{IX: 2, IY: 2}] = featuremap.Association{ID: lone}

	info := e.QA()
	assert.Equal(t, 1, info.MinMaxCellReferences[0])
	assert.Equal(t, 2, info.MinMaxCellReferences[1])
}
