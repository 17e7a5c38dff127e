package particlefilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepfathom/dpslam/featuremap"
	"github.com/deepfathom/dpslam/grid"
	"github.com/deepfathom/dpslam/randm"
)

func newTestMap(t *testing.T) *featuremap.Map {
	t.Helper()
	g, err := grid.New(grid.Point{X: 0, Y: 0}, 10, 10, 1)
	require.NoError(t, err)
	return featuremap.New(g, featuremap.DefaultConfig())
}

func TestResampleSkippedAboveThreshold(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ParticleNumber = 4
	cfg.EssThreshold = 0.1
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	m := newTestMap(t)
	resampled := e.Resample(m, randm.NewSource(2))
	assert.False(t, resampled, "uniform weights give full ESS, well above a low threshold")
}

func TestResampleRebalancesRefcounts(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ParticleNumber = 4
	cfg.EssThreshold = 0.99
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	m := newTestMap(t)
	id := m.SetDepth(1, 1, 5.0, 0.1, featuremap.RootID, time.Now())
	require.NotZero(t, id)

	assoc := featuremap.Association{Pos: grid.Point{X: 1, Y: 1}, ID: id}
	for i := range e.Particles {
		e.Particles[i].DepthCells[grid.Cell{IX: 1, IY: 1}] = assoc
		m.RetainDepth(1, 1, id)
	}
	e.Particles[0].Confidence = 1.0
	e.Particles[1].Confidence = 0
	e.Particles[2].Confidence = 0
	e.Particles[3].Confidence = 0

	resampled := e.Resample(m, randm.NewSource(3))
	require.True(t, resampled)

	node, ok := m.DepthNode(1, 1, id)
	require.True(t, ok)

	liveCount := 0
	for _, p := range e.Particles {
		if _, ok := p.DepthCells[grid.Cell{IX: 1, IY: 1}]; ok {
			liveCount++
		}
	}
	assert.Equal(t, liveCount, node.Refcount, "refcount must equal the number of surviving particles pointing at the node")
}

func TestSystematicIndicesCoverFullWeightRange(t *testing.T) {
	t.Parallel()

	weights := []float64{0.25, 0.25, 0.25, 0.25}
	indices := systematicIndices(weights, randm.NewSource(1))
	require.Len(t, indices, 4)
	for _, idx := range indices {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(weights))
	}
}
