// Package nodemap implements the static node map collaborator consumed by
// the observation models (§6): a polyhedral description of the known
// environment (walls, pipelines) used to test whether a point still
// belongs to the surveyed world, and to find the nearest distance from a
// query point to a named collection of walls.
//
// The world boundary and wall segments are indexed with
// github.com/ctessum/geom and github.com/ctessum/geom/index/rtree, the same
// combination the InMAP grid model uses for polygon/cell geometry queries.
package nodemap

import (
	"math"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// Point3 is a 3-D world-frame point.
type Point3 struct {
	X, Y, Z float64
}

// NodeMap is the external collaborator contract of §6: a predicate for
// whether a point lies within the surveyed world, and a nearest-distance
// query against a named tag of wall segments (e.g. "root.wall").
type NodeMap interface {
	BelongsToWorld(p Point3) bool
	NearestDistance(tag string, query, origin Point3) (distance float64, hit Point3, ok bool)
}

// WallSegment is one named, straight wall/pipeline segment, given as its
// 2-D endpoints and the vertical span it occupies.
type WallSegment struct {
	Tag        string
	A, B       geom.Point
	ZMin, ZMax float64
}

// wallItem is what gets inserted into the rtree: the segment plus a thin
// buffered polygon standing in for its footprint, so the index can be
// queried with SearchIntersect the way the InMAP grid model indexes cell
// polygons.
type wallItem struct {
	geom.Polygonal
	seg WallSegment
}

// PolyWorld is a concrete NodeMap backed by a polygonal world boundary and
// an rtree of wall segments.
type PolyWorld struct {
	boundary geom.Polygonal
	index    *rtree.Rtree

	// worldDiagonal bounds how far NearestDistance's expanding query box
	// ever needs to grow: once a box that size is centred on query, it
	// covers every wall segment the index could possibly hold.
	worldDiagonal float64
}

// NewPolyWorld builds a PolyWorld. boundary is the outer world polygon
// (typically a single ring); walls are buffered by bufferEps (half the grid
// resolution is a reasonable choice) so each gets a non-degenerate
// footprint polygon for the spatial index.
func NewPolyWorld(boundary geom.Polygon, walls []WallSegment, bufferEps float64) *PolyWorld {
	index := rtree.NewTree(25, 50)

	for _, w := range walls {
		index.Insert(&wallItem{
			Polygonal: bufferSegment(w.A, w.B, bufferEps),
			seg:       w,
		})
	}

	return &PolyWorld{
		boundary:      boundary,
		index:         index,
		worldDiagonal: polygonDiagonal(boundary),
	}
}

// polygonDiagonal returns the diagonal length of poly's axis-aligned
// bounding box, computed directly off its rings rather than through
// geom.Bounds so NearestDistance's search-radius cap doesn't depend on that
// type's internals.
func polygonDiagonal(poly geom.Polygon) float64 {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	for _, path := range poly {
		for _, p := range path {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return 0
	}
	return math.Hypot(maxX-minX, maxY-minY)
}

// bufferSegment builds a thin rectangle polygon around segment A-B, wide
// enough (2*eps) to have positive area and therefore a usable Bounds().
func bufferSegment(a, b geom.Point, eps float64) geom.Polygon {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		length = 1
	}
	nx := -dy / length * eps
	ny := dx / length * eps

	return geom.Polygon{[]geom.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
		{X: a.X + nx, Y: a.Y + ny},
	}}
}

// BelongsToWorld reports whether p's 2-D projection lies within the world
// boundary polygon. It tests containment by intersecting the boundary with
// a point-sized box at p and checking that the intersection has positive
// area, using only Polygonal.Intersection/Area rather than a bespoke
// point-in-polygon routine.
func (w *PolyWorld) BelongsToWorld(p Point3) bool {
	const eps = 1e-6
	probe := geom.Polygon{[]geom.Point{
		{X: p.X - eps, Y: p.Y - eps},
		{X: p.X + eps, Y: p.Y - eps},
		{X: p.X + eps, Y: p.Y + eps},
		{X: p.X - eps, Y: p.Y + eps},
		{X: p.X - eps, Y: p.Y - eps},
	}}

	isect := w.boundary.Intersection(probe)
	if isect == nil {
		return false
	}
	poly, ok := isect.(geom.Polygonal)
	if !ok {
		return false
	}
	return poly.Area() > 0
}

// initialSearchRadius is the starting half-width of NearestDistance's query
// box, doubled each retry the way an expanding-ring rtree nearest-neighbour
// search works (mkelp-inmap's grid queries a single cell's Bounds() rather
// than the whole index).
const initialSearchRadius = 10.0

// NearestDistance implements §6's nearestDistance query: the minimum
// distance from query to any wall segment tagged with tag (a simple prefix
// match, so "root.wall" selects every wall registered under that tag), and
// the closest point on that segment. ok is false when no wall with that tag
// exists, which callers treat as OutOfWorld (§7).
//
// Rather than search the whole index on every call, it queries a box
// centred on query and doubles the box until either a match at least as
// close as the box's half-width is found (so nothing closer could lie
// outside it) or the box has grown to cover the entire world.
func (w *PolyWorld) NearestDistance(tag string, query, origin Point3) (float64, Point3, bool) {
	radius := initialSearchRadius

	for {
		best := math.Inf(1)
		var bestHit Point3
		found := false

		for _, c := range w.index.SearchIntersect(queryBox(query, radius)) {
			item, ok := c.(*wallItem)
			if !ok || !strings.HasPrefix(item.seg.Tag, tag) {
				continue
			}

			d, hit := pointToSegmentDistance(query, item.seg)
			if d < best {
				best = d
				bestHit = hit
				found = true
			}
		}

		if found && best <= radius {
			return best, bestHit, true
		}
		if radius >= w.worldDiagonal {
			if !found {
				return 0, Point3{}, false
			}
			return best, bestHit, true
		}
		radius *= 2
	}
}

// queryBox builds an axis-aligned square polygon of half-width radius
// centred on p, the same box-around-a-point shape BelongsToWorld's probe
// uses, sized for SearchIntersect rather than for containment testing.
func queryBox(p Point3, radius float64) geom.Polygon {
	return geom.Polygon{[]geom.Point{
		{X: p.X - radius, Y: p.Y - radius},
		{X: p.X + radius, Y: p.Y - radius},
		{X: p.X + radius, Y: p.Y + radius},
		{X: p.X - radius, Y: p.Y + radius},
		{X: p.X - radius, Y: p.Y - radius},
	}}
}

func pointToSegmentDistance(p Point3, seg WallSegment) (float64, Point3) {
	ax, ay := seg.A.X, seg.A.Y
	bx, by := seg.B.X, seg.B.Y

	dx := bx - ax
	dy := by - ay
	lenSq := dx*dx + dy*dy

	var t float64
	if lenSq > 0 {
		t = ((p.X-ax)*dx + (p.Y-ay)*dy) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	hitX := ax + t*dx
	hitY := ay + t*dy
	z := math.Max(seg.ZMin, math.Min(seg.ZMax, p.Z))

	dist := math.Hypot(p.X-hitX, p.Y-hitY)
	return dist, Point3{X: hitX, Y: hitY, Z: z}
}
