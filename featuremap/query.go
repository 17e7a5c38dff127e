package featuremap

import "github.com/deepfathom/dpslam/grid"

// ObservedCell is one projected map cell: its world-frame center and the
// confidence of the feature observed there.
type ObservedCell struct {
	Pos        grid.Point
	Confidence float64
}

// GetObservedCells implements §4.C.6: for each input cell, if the
// particle's obstacle association points at a live, positive node, emit
// the cell center with that node's confidence.
func (m *Map) GetObservedCells(cells []grid.Cell, particleObstacleCells map[grid.Cell]Association) []ObservedCell {
	out := make([]ObservedCell, 0, len(cells))

	for _, cell := range cells {
		assoc, ok := particleObstacleCells[cell]
		if !ok {
			continue
		}
		node, ok := m.ObstacleNode(cell.IX, cell.IY, assoc.ID)
		if !ok || node.Dead || !node.Positive {
			continue
		}
		out = append(out, ObservedCell{
			Pos:        m.Grid.ToWorld(cell.IX, cell.IY),
			Confidence: node.Confidence,
		})
	}

	return out
}

// CloudPoint is one point in a Cloud output (§6 Persisted state layout).
type CloudPoint struct {
	X, Y       float64
	ZMean      float64
	Confidence float64
}

// GetCloud projects a particle's confident, sufficiently-observed depth and
// obstacle features into a point cloud (§4.C.6).
func (m *Map) GetCloud(depthCells, obstacleCells map[grid.Cell]Association, confThreshold float64, countThreshold int) []CloudPoint {
	var out []CloudPoint

	for cell, assoc := range depthCells {
		node, ok := m.DepthNode(cell.IX, cell.IY, assoc.ID)
		if !ok || node.Confidence < confThreshold || node.Count < countThreshold {
			continue
		}
		pos := m.Grid.ToWorld(cell.IX, cell.IY)
		out = append(out, CloudPoint{X: pos.X, Y: pos.Y, ZMean: node.Mean, Confidence: node.Confidence})
	}

	for cell, assoc := range obstacleCells {
		node, ok := m.ObstacleNode(cell.IX, cell.IY, assoc.ID)
		if !ok || node.Dead || !node.Positive {
			continue
		}
		if node.Confidence < confThreshold || node.Count < countThreshold {
			continue
		}
		pos := m.Grid.ToWorld(cell.IX, cell.IY)
		out = append(out, CloudPoint{X: pos.X, Y: pos.Y, ZMean: (node.ZMin + node.ZMax) / 2.0, Confidence: node.Confidence})
	}

	return out
}

// SimpleGridCell is one cell of a SimpleGrid output.
type SimpleGridCell struct {
	HasFeature bool
	Confidence float64
	ZMin, ZMax float64
}

// SimpleGrid is a dense row-major projection of a particle's obstacle view,
// Nx*Ny cells indexed as [iy*Nx+ix] (§6 Persisted state layout).
type SimpleGrid struct {
	Nx, Ny int
	Cells  []SimpleGridCell
}

// GetSimpleGrid fills out with the particle's confident, sufficiently
// observed obstacle features (§4.C.6). out is resized/reset as needed and
// the count of populated cells is returned.
func (m *Map) GetSimpleGrid(obstacleCells map[grid.Cell]Association, confThreshold float64, countThreshold int, out *SimpleGrid) int {
	nx, ny := m.Grid.Dims()
	if out.Nx != nx || out.Ny != ny || len(out.Cells) != nx*ny {
		out.Nx, out.Ny = nx, ny
		out.Cells = make([]SimpleGridCell, nx*ny)
	} else {
		for i := range out.Cells {
			out.Cells[i] = SimpleGridCell{}
		}
	}

	count := 0
	for cell, assoc := range obstacleCells {
		node, ok := m.ObstacleNode(cell.IX, cell.IY, assoc.ID)
		if !ok || node.Dead || !node.Positive {
			continue
		}
		if node.Confidence < confThreshold || node.Count < countThreshold {
			continue
		}
		idx := cell.IY*nx + cell.IX
		if idx < 0 || idx >= len(out.Cells) {
			continue
		}
		out.Cells[idx] = SimpleGridCell{
			HasFeature: true,
			Confidence: node.Confidence,
			ZMin:       node.ZMin,
			ZMax:       node.ZMax,
		}
		count++
	}

	return count
}
