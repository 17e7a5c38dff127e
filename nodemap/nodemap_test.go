package nodemap

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(half float64) geom.Polygon {
	return geom.Polygon{[]geom.Point{
		{X: -half, Y: -half},
		{X: half, Y: -half},
		{X: half, Y: half},
		{X: -half, Y: half},
		{X: -half, Y: -half},
	}}
}

func TestBelongsToWorld(t *testing.T) {
	t.Parallel()

	w := NewPolyWorld(square(10), nil, 0.1)

	assert.True(t, w.BelongsToWorld(Point3{X: 0, Y: 0, Z: 0}))
	assert.False(t, w.BelongsToWorld(Point3{X: 100, Y: 100, Z: 0}))
}

func TestNearestDistanceFindsTaggedSegment(t *testing.T) {
	t.Parallel()

	walls := []WallSegment{
		{Tag: "root.wall", A: geom.Point{X: -5, Y: 0}, B: geom.Point{X: 5, Y: 0}, ZMin: -10, ZMax: 10},
		{Tag: "root.pipeline", A: geom.Point{X: -5, Y: 5}, B: geom.Point{X: 5, Y: 5}, ZMin: -10, ZMax: 10},
	}
	w := NewPolyWorld(square(10), walls, 0.1)

	dist, hit, ok := w.NearestDistance("root.wall", Point3{X: 0, Y: 3, Z: 0}, Point3{X: 0, Y: 3, Z: 0})
	require.True(t, ok)
	assert.InDelta(t, 3.0, dist, 1e-6)
	assert.InDelta(t, 0.0, hit.X, 1e-6)
	assert.InDelta(t, 0.0, hit.Y, 1e-6)
}

func TestNearestDistanceUnknownTag(t *testing.T) {
	t.Parallel()

	w := NewPolyWorld(square(10), nil, 0.1)

	_, _, ok := w.NearestDistance("root.wall", Point3{X: 0, Y: 0, Z: 0}, Point3{X: 0, Y: 0, Z: 0})
	assert.False(t, ok)
}
