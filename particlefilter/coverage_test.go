package particlefilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepfathom/dpslam/featuremap"
	"github.com/deepfathom/dpslam/randm"
)

func TestObserveBeamAnglePrunesOnCoverageTrigger(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxAngularSum = 1.0
	e, err := NewEngine(cfg, randm.NewSource(1), nil)
	require.NoError(t, err)

	m := newTestMap(t)
	id := m.SetDepth(1, 1, 5.0, 0.1, featuremap.RootID, time.Now())
	require.NotZero(t, id)

	fired1 := e.ObserveBeamAngle(0.0, m, 0.9, 5)
	assert.False(t, fired1)

	fired2 := e.ObserveBeamAngle(0.5, m, 0.9, 5)
	assert.False(t, fired2)

	fired3 := e.ObserveBeamAngle(1.2, m, 0.9, 5)
	assert.True(t, fired3)

	_, ok := m.DepthNode(1, 1, id)
	assert.False(t, ok, "under-confident, unreferenced node should have been pruned")
}
