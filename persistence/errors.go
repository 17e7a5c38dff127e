// Package persistence is the TileDB-backed Cloud/SimpleGrid snapshot
// writer of SPEC_FULL.md's domain stack, grounded on the teacher's
// tiledb.go/schema.go: the same attribute/filter-pipeline construction and
// struct-tag schema convention, specialised to the two output shapes §6
// names ("Persisted state layout") instead of GSF's ping/beam records.
package persistence

import "errors"

var ErrCreateAttribute = errors.New("persistence: error creating tiledb attribute")
var ErrCreateDimension = errors.New("persistence: error creating tiledb dimension")
var ErrCreateSchema = errors.New("persistence: error creating tiledb array schema")
var ErrCreateArray = errors.New("persistence: error creating tiledb array")
var ErrOpenArray = errors.New("persistence: error opening tiledb array")
var ErrWriteArray = errors.New("persistence: error writing tiledb array")
var ErrAddFilters = errors.New("persistence: error adding filter to filter list")
var ErrUnknownFilter = errors.New("persistence: unrecognised filter tag")
