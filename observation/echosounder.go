package observation

import (
	"time"

	"github.com/deepfathom/dpslam/featuremap"
	"github.com/deepfathom/dpslam/grid"
	"github.com/deepfathom/dpslam/particlefilter"
)

// ApplyEchosounder implements §4.D.1: for each particle, fuse depth into
// the association already held for its cell (or allocate a fresh one),
// dropping the association if the map reports the parent is no longer
// live (StaleAssociation, §7). It does not touch particle weight — this
// observation shapes the map, not the filter's confidence.
func ApplyEchosounder(e *particlefilter.Engine, m *featuremap.Map, g *grid.Grid, cfg Config, depth, variance float64, now time.Time) {
	for i := range e.Particles {
		p := &e.Particles[i]

		ix, iy, ok := g.ToGrid(p.Position[0], p.Position[1])
		if !ok {
			continue
		}
		cell := grid.Cell{IX: ix, IY: iy}

		assoc, hasAssoc := p.DepthCells[cell]
		parentID := featuremap.RootID
		if hasAssoc {
			parentID = assoc.ID
		}

		newID := m.SetDepth(ix, iy, depth, variance, parentID, now)
		if newID == 0 {
			if hasAssoc {
				m.ReleaseDepth(ix, iy, assoc.ID)
				delete(p.DepthCells, cell)
			}
			continue
		}

		if newID != parentID {
			if hasAssoc {
				m.ReleaseDepth(ix, iy, assoc.ID)
			}
			m.RetainDepth(ix, iy, newID)
			p.DepthCells[cell] = featuremap.Association{Pos: g.ToWorld(ix, iy), ID: newID}
		}
	}

	if len(e.Particles) > 0 {
		p := e.Particles[0]
		e.RecordMeasurement(depth, p.Position, 1.0, "echosounder")
	}
}
