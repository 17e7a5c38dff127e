// Package dpslam is the engine facade (§4.F): it wires the grid, feature
// map, particle filter core and observation models behind a single Init/
// Observe/Rate/GetCloud surface, the way the teacher's root gsf package
// wires its decode/encode/search subpackages behind OpenGSF.
package dpslam

import "errors"

// ErrConfigInvalid is the one fatal condition of §7: a non-positive
// particle count, a non-positive grid resolution/span or an ess_threshold
// outside (0, 1], caught once at Init rather than propagated through
// step().
var ErrConfigInvalid = errors.New("dpslam: invalid configuration")

// ErrNoMap is returned by facade calls that require InitializeStatics or a
// live map to have run first.
var ErrNoMap = errors.New("dpslam: map not initialized")

// ErrParticleIndex is returned when a facade call is given a particle
// index outside the current particle set.
var ErrParticleIndex = errors.New("dpslam: particle index out of range")
