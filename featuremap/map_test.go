package featuremap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepfathom/dpslam/grid"
)

func testGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(grid.Point{X: 0, Y: 0}, 10, 10, 1)
	require.NoError(t, err)
	return g
}

func TestSetStaticDepthFusesRepeatedObservations(t *testing.T) {
	t.Parallel()

	m := New(testGrid(t), DefaultConfig())

	m.SetStaticDepth(0.5, 0.5, 10.0, 1.0)
	m.SetStaticDepth(0.5, 0.5, 12.0, 1.0)

	cell, ok := m.cells[grid.Cell{IX: 5, IY: 5}]
	require.True(t, ok)
	assert.InDelta(t, 11.0, cell.staticMean, 1e-9)
	assert.InDelta(t, 0.5, cell.staticVar, 1e-9)
}

func TestSetDepthAllocatesRootNode(t *testing.T) {
	t.Parallel()

	m := New(testGrid(t), DefaultConfig())

	id := m.SetDepth(2, 2, 15.0, 1.0, RootID, time.Now())
	require.NotZero(t, id)

	node, ok := m.DepthNode(2, 2, id)
	require.True(t, ok)
	assert.Equal(t, 15.0, node.Mean)
	assert.Equal(t, 1, node.Count)
}

func TestSetDepthOutOfBoundsReturnsZero(t *testing.T) {
	t.Parallel()

	m := New(testGrid(t), DefaultConfig())
	id := m.SetDepth(100, 100, 15.0, 1.0, RootID, time.Now())
	assert.Zero(t, id)
}

func TestSetDepthExtendsWithinGate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DepthFuseK = 3.0
	m := New(testGrid(t), cfg)

	now := time.Now()
	first := m.SetDepth(1, 1, 10.0, 1.0, RootID, now)
	require.NotZero(t, first)

	second := m.SetDepth(1, 1, 10.5, 1.0, first, now)
	assert.Equal(t, first, second, "a close observation should fuse into the same node")

	node, _ := m.DepthNode(1, 1, first)
	assert.Equal(t, 2, node.Count)
}

func TestSetDepthBranchesOutsideGate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DepthFuseK = 3.0
	m := New(testGrid(t), cfg)

	now := time.Now()
	first := m.SetDepth(1, 1, 10.0, 0.01, RootID, now)
	require.NotZero(t, first)

	second := m.SetDepth(1, 1, 100.0, 0.01, first, now)
	require.NotZero(t, second)
	assert.NotEqual(t, first, second, "a far-off observation should branch a new node")

	node, ok := m.DepthNode(1, 1, second)
	require.True(t, ok)
	assert.Equal(t, first, node.Parent)
}

func TestSetDepthStaleParentReturnsZero(t *testing.T) {
	t.Parallel()

	m := New(testGrid(t), DefaultConfig())
	id := m.SetDepth(1, 1, 10.0, 1.0, 999, time.Now())
	assert.Zero(t, id)
}

func TestSetObstaclePresentAndEmpty(t *testing.T) {
	t.Parallel()

	m := New(testGrid(t), DefaultConfig())
	now := time.Now()

	id := m.SetObstacle(3, 3, true, 0.2, 5, 10, RootID, now)
	require.NotZero(t, id)

	node, ok := m.ObstacleNode(3, 3, id)
	require.True(t, ok)
	assert.True(t, node.Positive)
	assert.Equal(t, 5.0, node.ZMin)
	assert.Equal(t, 10.0, node.ZMax)

	same := m.SetObstacle(3, 3, false, 1.0, 0, 0, id, now)
	assert.Equal(t, id, same)

	node, _ = m.ObstacleNode(3, 3, id)
	assert.True(t, node.Dead, "confidence dropping to zero should mark the node dead")
}

func TestRetainReleaseDepthObstacle(t *testing.T) {
	t.Parallel()

	m := New(testGrid(t), DefaultConfig())
	now := time.Now()

	depthID := m.SetDepth(0, 0, 1.0, 1.0, RootID, now)
	obstacleID := m.SetObstacle(0, 0, true, 0.1, 0, 1, RootID, now)

	m.RetainDepth(0, 0, depthID)
	m.RetainDepth(0, 0, depthID)
	node, _ := m.DepthNode(0, 0, depthID)
	assert.Equal(t, 2, node.Refcount)

	m.ReleaseDepth(0, 0, depthID)
	assert.Equal(t, 1, node.Refcount)

	m.RetainObstacle(0, 0, obstacleID)
	onode, _ := m.ObstacleNode(0, 0, obstacleID)
	assert.Equal(t, 1, onode.Refcount)

	m.ReleaseObstacle(0, 0, obstacleID)
	assert.Equal(t, 0, onode.Refcount)

	// releasing below zero must not underflow
	m.ReleaseObstacle(0, 0, obstacleID)
	assert.Equal(t, 0, onode.Refcount)
}
