package grid

import "errors"

var ErrInvalidResolution = errors.New("grid: resolution must be positive")
var ErrInvalidSpan = errors.New("grid: spans must be positive")
