package particlefilter

import "errors"

var ErrInvalidParticleNumber = errors.New("particlefilter: particle number must be positive")
var ErrInvalidEssThreshold = errors.New("particlefilter: ess threshold must be in (0, 1]")
var ErrEmptyParticleSet = errors.New("particlefilter: particle set is empty")
var ErrNoMotionModel = errors.New("particlefilter: no transition function configured")
