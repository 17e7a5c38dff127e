// Package featuremap implements the DP-SLAM map: a grid of cells, each
// holding a linked history of feature observations (a "feature tree"), with
// per-particle identifier bookkeeping that lets particles cheaply fork their
// view of the map instead of deep-copying it (§3, §4.C, and design note
// "Per-particle map forks via identifier chains").
package featuremap

import (
	"time"

	"github.com/deepfathom/dpslam/grid"
)

// RootID is the sentinel parent/association identifier meaning "no
// observation yet" (§3 Feature tree invariants).
const RootID int64 = 0

// Association is what a particle stores per cell it has observed: the
// discretised position and the id of the feature-tree node representing its
// current view of that cell.
type Association struct {
	Pos grid.Point
	ID  int64
}

// DepthNode is one node in a cell's depth feature tree.
type DepthNode struct {
	ID       int64
	Parent   int64
	Mean     float64
	Variance float64

	Confidence  float64
	Count       int
	LastTouched time.Time
	Refcount    int

	children []int64
}

// ObstacleNode is one node in a cell's obstacle feature tree.
type ObstacleNode struct {
	ID     int64
	Parent int64

	Confidence  float64
	Count       int
	Positive    bool
	Dead        bool
	ZMin, ZMax  float64
	LastTouched time.Time
	Refcount    int

	children []int64
}

// cellState holds everything the map knows about one grid cell: the static
// ground-truth depth (if any) and the two feature trees.
type cellState struct {
	hasStaticDepth bool
	staticMean     float64
	staticVar      float64

	depthNodes    map[int64]*DepthNode
	obstacleNodes map[int64]*ObstacleNode
}

func newCellState() *cellState {
	return &cellState{
		depthNodes:    make(map[int64]*DepthNode),
		obstacleNodes: make(map[int64]*ObstacleNode),
	}
}
