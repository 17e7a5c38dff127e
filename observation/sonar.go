package observation

import (
	"math"
	"time"

	"github.com/deepfathom/dpslam/featuremap"
	"github.com/deepfathom/dpslam/grid"
	"github.com/deepfathom/dpslam/nodemap"
	"github.com/deepfathom/dpslam/particlefilter"
	"github.com/deepfathom/dpslam/randm"
)

// SonarFeature is one detected return within a sweep: a measured range (in
// millimeters, per §6) and the extractor's confidence in it.
type SonarFeature struct {
	RangeMM    float64
	Confidence float64
}

// SonarSweep is one ping's worth of features at a single beam angle
// relative to the vehicle (§6: "Produces {beam_angle_rad, [{range_mm,
// confidence}]} per ping").
type SonarSweep struct {
	AngleRad float64
	Features []SonarFeature
}

type expectedReturn struct {
	distance   float64
	confidence float64
}

// ApplySonarSweep implements §4.D.2. For every particle it walks the ray
// cells the beam passes through, folds detected features into the
// obstacle tree, weakens or retains the cells along the ray with no
// matching feature, and rates the particle by greedily matching each
// feature's measured range against the nearest pre-existing expected-cell
// distance. It also drives the angular-coverage pruning trigger of §4.E.4
// once per call, using the beam's absolute heading.
func ApplySonarSweep(e *particlefilter.Engine, m *featuremap.Map, g *grid.Grid, nm nodemap.NodeMap, cfg Config, sweep SonarSweep, now time.Time) {
	absoluteAngle := sweep.AngleRad + e.VehicleYaw()
	e.ObserveBeamAngle(absoluteAngle, m, cfg.FeatureConfidenceThreshold, cfg.FeatureObservationCountThreshold)

	var bestConfidence float64
	var bestWorldPoint [3]float64
	var bestRange float64
	sawFeature := false

	for i := range e.Particles {
		p := &e.Particles[i]
		origin := grid.Point{X: p.Position[0], Y: p.Position[1]}

		rayCells := g.RayCells(origin, absoluteAngle, cfg.FeatureObservationMinimumRange, cfg.FeatureObservationRange, true)
		unobserved := make(map[grid.Cell]bool, len(rayCells))
		for _, c := range rayCells {
			unobserved[c] = true
		}

		expected := make([]expectedReturn, 0, len(rayCells))
		for _, c := range rayCells {
			assoc, ok := p.ObstacleCells[c]
			if !ok {
				continue
			}
			node, ok := m.ObstacleNode(c.IX, c.IY, assoc.ID)
			if !ok || node.Dead || !node.Positive {
				continue
			}
			center := g.ToWorld(c.IX, c.IY)
			dist := math.Hypot(center.X-p.Position[0], center.Y-p.Position[1])
			expected = append(expected, expectedReturn{distance: dist, confidence: node.Confidence})
		}

		var numerator, denominator float64

		for _, f := range sweep.Features {
			rangeM := f.RangeMM / 1000.0
			if rangeM < cfg.FeatureObservationMinimumRange || rangeM > cfg.FeatureObservationRange {
				continue
			}
			if rangeM < cfg.SonarMinimumDistance || rangeM > cfg.SonarMaximumDistance {
				continue
			}

			local := [3]float64{rangeM, 0, 0}
			afterSonarYaw := rotate2D(cfg.SonarYaw, local)
			vehicleFrame := cfg.SonarToVehicleTransform.Apply(afterSonarYaw)
			worldOffset := rotate2D(e.VehicleYaw(), vehicleFrame)
			worldPoint := [3]float64{
				p.Position[0] + worldOffset[0],
				p.Position[1] + worldOffset[1],
				p.Position[2] + worldOffset[2],
			}

			wp := nodemap.Point3{X: worldPoint[0], Y: worldPoint[1], Z: worldPoint[2]}
			if !nm.BelongsToWorld(wp) {
				continue
			}

			ix, iy, ok := g.ToGrid(worldPoint[0], worldPoint[1])
			if !ok {
				continue
			}
			cell := grid.Cell{IX: ix, IY: iy}
			delete(unobserved, cell)

			dist := math.Hypot(worldPoint[0]-p.Position[0], worldPoint[1]-p.Position[1])
			halfSpan := dist * math.Sin(cfg.SonarVerticalAngle/2)
			zmin := p.Position[2] - halfSpan
			zmax := p.Position[2] + halfSpan

			assoc, hasAssoc := p.ObstacleCells[cell]
			parentID := featuremap.RootID
			if hasAssoc {
				parentID = assoc.ID
			}

			newID := m.SetObstacle(ix, iy, true, cfg.FeatureConfidence, zmin, zmax, parentID, now)
			if newID == 0 {
				if hasAssoc {
					m.ReleaseObstacle(ix, iy, assoc.ID)
					delete(p.ObstacleCells, cell)
				}
			} else if newID != parentID {
				if hasAssoc {
					m.ReleaseObstacle(ix, iy, assoc.ID)
				}
				m.RetainObstacle(ix, iy, newID)
				p.ObstacleCells[cell] = featuremap.Association{Pos: g.ToWorld(ix, iy), ID: newID}
			}

			// Greedy nearest-distance association against the expected
			// returns computed before this sweep's updates (§4.D.2 step 5).
			bestIdx := -1
			bestDelta := math.Inf(1)
			for idx, exp := range expected {
				delta := math.Abs(exp.distance - dist)
				if delta < bestDelta {
					bestDelta = delta
					bestIdx = idx
				}
			}
			if bestIdx >= 0 {
				exp := expected[bestIdx]
				expected = append(expected[:bestIdx], expected[bestIdx+1:]...)
				residual := exp.distance - dist
				numerator += exp.confidence * randm.Gaussian1D(0, cfg.SonarCovariance, residual)
				denominator += exp.confidence
			}

			if f.Confidence > bestConfidence {
				bestConfidence = f.Confidence
				bestWorldPoint = worldPoint
				bestRange = rangeM
				sawFeature = true
			}
		}

		for cell := range unobserved {
			assoc, hasAssoc := p.ObstacleCells[cell]
			center := g.ToWorld(cell.IX, cell.IY)
			dist := math.Hypot(center.X-p.Position[0], center.Y-p.Position[1])

			if dist <= cfg.FeatureObservationRange {
				parentID := featuremap.RootID
				if hasAssoc {
					parentID = assoc.ID
				}
				newID := m.SetObstacle(cell.IX, cell.IY, false, cfg.FeatureEmptyCellConfidence, 0, 0, parentID, now)
				if newID != 0 && newID != parentID {
					if hasAssoc {
						m.ReleaseObstacle(cell.IX, cell.IY, assoc.ID)
					}
					m.RetainObstacle(cell.IX, cell.IY, newID)
					p.ObstacleCells[cell] = featuremap.Association{Pos: center, ID: newID}
				}
			} else if hasAssoc {
				m.TouchObstacleFeature(cell.IX, cell.IY, assoc.ID, now)
			}
		}

		score := 0.0
		if denominator > 0 {
			score = numerator / denominator
		}
		e.ApplyLikelihood(i, score)
	}

	if sawFeature {
		e.RecordMeasurement(bestRange, bestWorldPoint, bestConfidence, "sonar")
	}
}
