package nodemap

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/ctessum/geom"
)

var ErrLoadWorld = errors.New("nodemap: error loading world definition")

// worldFile is the on-disk JSON shape of a PolyWorld: the world boundary as
// a single ring of (x, y) points, and a flat list of tagged wall segments.
type worldFile struct {
	Boundary []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"boundary"`
	Walls []struct {
		Tag  string  `json:"tag"`
		AX   float64 `json:"ax"`
		AY   float64 `json:"ay"`
		BX   float64 `json:"bx"`
		BY   float64 `json:"by"`
		ZMin float64 `json:"z_min"`
		ZMax float64 `json:"z_max"`
	} `json:"walls"`
}

// LoadPolyWorld reads a world definition from a JSON file at path and
// builds the PolyWorld collaborator InitializeStatics needs, buffering wall
// segments by bufferEps (cmd/dpslamctl passes half the grid resolution).
func LoadPolyWorld(path string, bufferEps float64) (*PolyWorld, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrLoadWorld, err)
	}

	var wf worldFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, errors.Join(ErrLoadWorld, err)
	}
	if len(wf.Boundary) < 3 {
		return nil, errors.Join(ErrLoadWorld, errors.New("boundary must have at least 3 points"))
	}

	ring := make([]geom.Point, 0, len(wf.Boundary)+1)
	for _, p := range wf.Boundary {
		ring = append(ring, geom.Point{X: p.X, Y: p.Y})
	}
	ring = append(ring, ring[0])
	boundary := geom.Polygon{ring}

	walls := make([]WallSegment, 0, len(wf.Walls))
	for _, w := range wf.Walls {
		walls = append(walls, WallSegment{
			Tag:  w.Tag,
			A:    geom.Point{X: w.AX, Y: w.AY},
			B:    geom.Point{X: w.BX, Y: w.BY},
			ZMin: w.ZMin,
			ZMax: w.ZMax,
		})
	}

	return NewPolyWorld(boundary, walls, bufferEps), nil
}
