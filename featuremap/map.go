package featuremap

import (
	"math"
	"time"

	"github.com/deepfathom/dpslam/grid"
)

// Map is the DP-SLAM grid: a shared physical map whose cells each carry a
// depth feature tree and an obstacle feature tree (§3 Grid cell). It is
// created once at Init and never resized. All mutation methods assume the
// single-threaded cooperative invariant of §5: callers must serialise
// access, the Map does not take any internal lock.
type Map struct {
	Grid   *grid.Grid
	config Config

	cells  map[grid.Cell]*cellState
	nextID int64
}

// New builds an empty Map over the given grid geometry.
func New(g *grid.Grid, config Config) *Map {
	return &Map{
		Grid:   g,
		config: config,
		cells:  make(map[grid.Cell]*cellState),
		nextID: 1, // 0 is the RootID sentinel
	}
}

func (m *Map) cellFor(ix, iy int) *cellState {
	key := grid.Cell{IX: ix, IY: iy}
	c, ok := m.cells[key]
	if !ok {
		c = newCellState()
		m.cells[key] = c
	}
	return c
}

func (m *Map) allocID() int64 {
	id := m.nextID
	m.nextID++
	return id
}

// SetStaticDepth records a ground-truth depth for the cell containing
// (x, y), fusing it with any previous static depth via inverse-variance
// fusion (§4.C.1).
func (m *Map) SetStaticDepth(x, y, depth, variance float64) {
	ix, iy, ok := m.Grid.ToGrid(x, y)
	if !ok {
		return
	}

	c := m.cellFor(ix, iy)
	if !c.hasStaticDepth {
		c.hasStaticDepth = true
		c.staticMean = depth
		c.staticVar = variance
		return
	}

	c.staticMean, c.staticVar = fuse(c.staticMean, c.staticVar, depth, variance)
}

// fuse combines two independent Gaussian estimates via inverse-variance
// weighting: new_mean = (m1/v1 + m2/v2) / (1/v1 + 1/v2); new_var = 1/(1/v1+1/v2).
func fuse(mean1, var1, mean2, var2 float64) (float64, float64) {
	invSum := 1.0/var1 + 1.0/var2
	newVar := 1.0 / invSum
	newMean := (mean1/var1 + mean2/var2) / invSum
	return newMean, newVar
}

// SetDepth implements §4.C.2. It returns 0 if the cell is out of range or if
// parentID no longer identifies a live node (StaleAssociation, §7).
func (m *Map) SetDepth(ix, iy int, depth, variance float64, parentID int64, now time.Time) int64 {
	if !m.Grid.InBounds(ix, iy) {
		return 0
	}

	c := m.cellFor(ix, iy)

	if parentID == RootID {
		node := &DepthNode{
			ID:          m.allocID(),
			Parent:      RootID,
			Mean:        depth,
			Variance:    variance,
			Confidence:  m.config.DepthConfidenceStep,
			Count:       1,
			LastTouched: now,
		}
		c.depthNodes[node.ID] = node
		return node.ID
	}

	parent, ok := c.depthNodes[parentID]
	if !ok {
		return 0
	}

	sigma := math.Sqrt(parent.Variance)
	if math.Abs(depth-parent.Mean) <= m.config.DepthFuseK*sigma {
		parent.Mean, parent.Variance = fuse(parent.Mean, parent.Variance, depth, variance)
		parent.Count++
		parent.Confidence = math.Min(1.0, parent.Confidence+m.config.DepthConfidenceStep)
		parent.LastTouched = now
		return parent.ID
	}

	child := &DepthNode{
		ID:          m.allocID(),
		Parent:      parentID,
		Mean:        depth,
		Variance:    variance,
		Confidence:  m.config.DepthConfidenceStep,
		Count:       1,
		LastTouched: now,
	}
	c.depthNodes[child.ID] = child
	parent.children = append(parent.children, child.ID)
	return child.ID
}

// SetObstacle implements §4.C.3.
func (m *Map) SetObstacle(ix, iy int, present bool, confidenceDelta, zmin, zmax float64, parentID int64, now time.Time) int64 {
	if !m.Grid.InBounds(ix, iy) {
		return 0
	}

	c := m.cellFor(ix, iy)

	if parentID == RootID {
		node := &ObstacleNode{
			ID:          m.allocID(),
			Parent:      RootID,
			Count:       1,
			LastTouched: now,
		}
		if present {
			node.Confidence = confidenceDelta
			node.Positive = true
			node.ZMin, node.ZMax = zmin, zmax
		} else {
			node.Confidence = 0
			node.Positive = false
		}
		c.obstacleNodes[node.ID] = node
		return node.ID
	}

	parent, ok := c.obstacleNodes[parentID]
	if !ok {
		return 0
	}

	parent.Count++
	parent.LastTouched = now
	if present {
		parent.Confidence = math.Min(1.0, parent.Confidence+confidenceDelta)
		parent.Positive = true
		parent.ZMin, parent.ZMax = unionSpan(parent.ZMin, parent.ZMax, zmin, zmax, parent.Count == 1)
	} else {
		parent.Confidence = math.Max(0, parent.Confidence-confidenceDelta)
		if parent.Confidence == 0 {
			parent.Dead = true
		}
	}

	return parent.ID
}

func unionSpan(curMin, curMax, newMin, newMax float64, first bool) (float64, float64) {
	if first {
		return newMin, newMax
	}
	return math.Min(curMin, newMin), math.Max(curMax, newMax)
}

// TouchObstacleFeature updates a node's last-touched timestamp without
// altering its confidence (§4.C.4). It is a no-op if the cell or node is
// missing.
func (m *Map) TouchObstacleFeature(ix, iy int, id int64, now time.Time) {
	c, ok := m.cells[grid.Cell{IX: ix, IY: iy}]
	if !ok {
		return
	}
	if node, ok := c.obstacleNodes[id]; ok {
		node.LastTouched = now
	}
}

// DepthNode looks up a live depth node by cell and id.
func (m *Map) DepthNode(ix, iy int, id int64) (*DepthNode, bool) {
	c, ok := m.cells[grid.Cell{IX: ix, IY: iy}]
	if !ok {
		return nil, false
	}
	n, ok := c.depthNodes[id]
	return n, ok
}

// ObstacleNode looks up a live obstacle node by cell and id.
func (m *Map) ObstacleNode(ix, iy int, id int64) (*ObstacleNode, bool) {
	c, ok := m.cells[grid.Cell{IX: ix, IY: iy}]
	if !ok {
		return nil, false
	}
	n, ok := c.obstacleNodes[id]
	return n, ok
}

// RetainDepth increments the refcount of a depth node a particle now points
// at, and RetainObstacle does the same for an obstacle node. ReleaseDepth
// and ReleaseObstacle undo that when a particle drops or moves off an
// association. Callers (the observation models and the resampling step)
// must pair every Retain with exactly one eventual Release, so that a
// node's refcount always equals the number of particles currently pointing
// at it (§3 Feature tree invariants; §8 invariant 2).
func (m *Map) RetainDepth(ix, iy int, id int64) {
	if n, ok := m.DepthNode(ix, iy, id); ok {
		n.Refcount++
	}
}

func (m *Map) ReleaseDepth(ix, iy int, id int64) {
	if n, ok := m.DepthNode(ix, iy, id); ok && n.Refcount > 0 {
		n.Refcount--
	}
}

func (m *Map) RetainObstacle(ix, iy int, id int64) {
	if n, ok := m.ObstacleNode(ix, iy, id); ok {
		n.Refcount++
	}
}

func (m *Map) ReleaseObstacle(ix, iy int, id int64) {
	if n, ok := m.ObstacleNode(ix, iy, id); ok && n.Refcount > 0 {
		n.Refcount--
	}
}
