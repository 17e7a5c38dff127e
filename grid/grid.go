// Package grid implements the world<->grid coordinate mapping and the
// DDA-style ray traversal used to enumerate the cells a sonar/echosounder
// beam passes through.
package grid

import "math"

// Point is a 2-D world-frame coordinate.
type Point struct {
	X, Y float64
}

// Cell is a discrete grid index.
type Cell struct {
	IX, IY int
}

// Grid maps a rectangular world region, centred at Center with spans
// (Lx, Ly), onto an Nx x Ny array of square cells of side Resolution.
// It is created once at Init and never resized (§3 Lifecycle).
type Grid struct {
	Center     Point
	SpanX      float64
	SpanY      float64
	Resolution float64

	origin Point
	nx, ny int
}

// New builds a Grid. Resolution must be positive and both spans must be
// positive; the caller (engine Init) is responsible for treating a failure
// here as ConfigInvalid (§7).
func New(center Point, spanX, spanY, resolution float64) (*Grid, error) {
	if resolution <= 0 {
		return nil, ErrInvalidResolution
	}
	if spanX <= 0 || spanY <= 0 {
		return nil, ErrInvalidSpan
	}

	g := &Grid{
		Center:     center,
		SpanX:      spanX,
		SpanY:      spanY,
		Resolution: resolution,
	}
	g.origin = Point{X: center.X - spanX/2.0, Y: center.Y - spanY/2.0}
	g.nx = int(math.Ceil(spanX / resolution))
	g.ny = int(math.Ceil(spanY / resolution))

	return g, nil
}

// Dims returns the grid's (Nx, Ny) cell counts.
func (g *Grid) Dims() (int, int) {
	return g.nx, g.ny
}

// ToGrid floor-quantises a world point into grid indices. ok is false (the
// NaN sentinel of §4.B) when the point lies outside [0,Nx) x [0,Ny).
func (g *Grid) ToGrid(x, y float64) (ix, iy int, ok bool) {
	fx := math.Floor((x - g.origin.X) / g.Resolution)
	fy := math.Floor((y - g.origin.Y) / g.Resolution)

	if fx < 0 || fy < 0 || fx >= float64(g.nx) || fy >= float64(g.ny) {
		return 0, 0, false
	}

	return int(fx), int(fy), true
}

// ToWorld returns the world-frame center of cell (ix, iy).
func (g *Grid) ToWorld(ix, iy int) Point {
	return Point{
		X: g.origin.X + (float64(ix)+0.5)*g.Resolution,
		Y: g.origin.Y + (float64(iy)+0.5)*g.Resolution,
	}
}

// InBounds reports whether (ix, iy) lies within the grid's extents.
func (g *Grid) InBounds(ix, iy int) bool {
	return ix >= 0 && iy >= 0 && ix < g.nx && iy < g.ny
}

// RayCells enumerates, in increasing distance from origin, the unique grid
// cells intersected by the segment from origin+rMin*heading to
// origin+rMax*heading, using an Amanatides-Woo style DDA traversal. Ties on
// simultaneous x/y crossings are broken in favour of advancing x, per §4.B.
// When excludeOrigin is true the cell containing origin itself is dropped
// from the result even if it would otherwise be the first entry.
func (g *Grid) RayCells(origin Point, headingRad, rMin, rMax float64, excludeOrigin bool) []Cell {
	if rMax <= rMin {
		return nil
	}

	dirX := math.Cos(headingRad)
	dirY := math.Sin(headingRad)

	startX := origin.X + rMin*dirX
	startY := origin.Y + rMin*dirY
	endX := origin.X + rMax*dirX
	endY := origin.Y + rMax*dirY

	ix, iy, ok := g.ToGrid(startX, startY)
	if !ok {
		// Start outside the grid: clip isn't attempted here (callers filter
		// with belongsToWorld upstream); tangent/out-of-grid beams simply
		// yield no cells rather than crashing.
		return nil
	}

	endIX, endIY, endOK := g.ToGrid(endX, endY)

	stepX := sign(dirX)
	stepY := sign(dirY)

	var tMaxX, tMaxY, tDeltaX, tDeltaY float64

	if dirX == 0 {
		tMaxX = math.Inf(1)
		tDeltaX = math.Inf(1)
	} else {
		nextBoundaryX := g.origin.X + float64(ix+boundaryOffset(stepX))*g.Resolution
		tMaxX = (nextBoundaryX - startX) / dirX
		tDeltaX = g.Resolution / math.Abs(dirX)
	}

	if dirY == 0 {
		tMaxY = math.Inf(1)
		tDeltaY = math.Inf(1)
	} else {
		nextBoundaryY := g.origin.Y + float64(iy+boundaryOffset(stepY))*g.Resolution
		tMaxY = (nextBoundaryY - startY) / dirY
		tDeltaY = g.Resolution / math.Abs(dirY)
	}

	maxT := rMax - rMin

	var cells []Cell
	cur := Cell{IX: ix, IY: iy}
	cells = append(cells, cur)

	for {
		if endOK && cur.IX == endIX && cur.IY == endIY {
			break
		}

		var t float64
		if tMaxX < tMaxY {
			t = tMaxX
			cur.IX += stepX
			tMaxX += tDeltaX
		} else if tMaxY < tMaxX {
			t = tMaxY
			cur.IY += stepY
			tMaxY += tDeltaY
		} else {
			// exact tie: advance x per the documented tie-break
			t = tMaxX
			cur.IX += stepX
			tMaxX += tDeltaX
		}

		if t > maxT {
			break
		}

		if !g.InBounds(cur.IX, cur.IY) {
			break
		}

		cells = append(cells, cur)
	}

	if excludeOrigin && len(cells) > 0 {
		if ox, oy, ok := g.ToGrid(origin.X, origin.Y); ok && cells[0].IX == ox && cells[0].IY == oy {
			cells = cells[1:]
		}
	}

	return cells
}

func sign(v float64) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

// boundaryOffset returns the offset (in cell units) from the current cell
// index to the next grid-line boundary in the direction of travel.
func boundaryOffset(step int) int {
	if step > 0 {
		return 1
	}
	return 0
}
