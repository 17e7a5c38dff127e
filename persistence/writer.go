package persistence

import (
	"errors"

	tiledb "github.com/TileDB-Inc/TileDB-Go"

	"github.com/deepfathom/dpslam/featuremap"
)

// CreateCloudArray creates a new sparse Cloud array at uri, or returns
// ErrCreateArray if one already exists or TileDB rejects the schema
// (teacher's schema.go beam_sparse_array.Create call).
func CreateCloudArray(ctx *tiledb.Context, uri string) error {
	schema, err := cloudSchema(ctx)
	if err != nil {
		return err
	}
	defer schema.Free()

	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	defer array.Free()

	if err := array.Create(schema); err != nil {
		return errors.Join(ErrCreateArray, err)
	}

	return nil
}

// CreateGridArray creates a new dense SimpleGrid array at uri sized to
// nx*ny cells.
func CreateGridArray(ctx *tiledb.Context, uri string, nx, ny int) error {
	schema, err := gridSchema(ctx, nx, ny)
	if err != nil {
		return err
	}
	defer schema.Free()

	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return errors.Join(ErrCreateArray, err)
	}
	defer array.Free()

	if err := array.Create(schema); err != nil {
		return errors.Join(ErrCreateArray, err)
	}

	return nil
}

// WriteCloud writes one Engine.GetCloud snapshot into the sparse Cloud
// array at uri, using the X/Y dimensions as the write coordinates and an
// unordered layout, the same combination the teacher's writeBeamData uses
// for lon/lat-keyed sparse writes.
func WriteCloud(ctx *tiledb.Context, uri string, points []featuremap.CloudPoint) error {
	array, err := ArrayOpen(ctx, uri, tiledb.TILEDB_WRITE)
	if err != nil {
		return err
	}
	defer array.Free()
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	defer query.Free()

	if err := query.SetLayout(tiledb.TILEDB_UNORDERED); err != nil {
		return errors.Join(ErrWriteArray, err)
	}

	n := len(points)
	xs := make([]float64, n)
	ys := make([]float64, n)
	zmeans := make([]float64, n)
	confidences := make([]float64, n)
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
		zmeans[i] = p.ZMean
		confidences[i] = p.Confidence
	}

	if _, err := query.SetDataBuffer("X", xs); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if _, err := query.SetDataBuffer("Y", ys); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if _, err := query.SetDataBuffer("ZMean", zmeans); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if _, err := query.SetDataBuffer("Confidence", confidences); err != nil {
		return errors.Join(ErrWriteArray, err)
	}

	if err := query.Submit(); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if err := query.Finalize(); err != nil {
		return errors.Join(ErrWriteArray, err)
	}

	return nil
}

// WriteGrid writes one Engine.GetSimpleGrid snapshot into the dense
// SimpleGrid array at uri, sized exactly to grid.Nx*grid.Ny and addressed
// by a full-extent subarray (teacher's svp.go dense-write pattern).
func WriteGrid(ctx *tiledb.Context, uri string, grid *featuremap.SimpleGrid) error {
	array, err := ArrayOpen(ctx, uri, tiledb.TILEDB_WRITE)
	if err != nil {
		return err
	}
	defer array.Free()
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	defer query.Free()

	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrWriteArray, err)
	}

	n := len(grid.Cells)
	hasFeature := make([]uint8, n)
	confidence := make([]float64, n)
	zmin := make([]float64, n)
	zmax := make([]float64, n)
	for i, c := range grid.Cells {
		if c.HasFeature {
			hasFeature[i] = 1
		}
		confidence[i] = c.Confidence
		zmin[i] = c.ZMin
		zmax[i] = c.ZMax
	}

	if _, err := query.SetDataBuffer("HasFeature", hasFeature); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if _, err := query.SetDataBuffer("Confidence", confidence); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if _, err := query.SetDataBuffer("ZMin", zmin); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if _, err := query.SetDataBuffer("ZMax", zmax); err != nil {
		return errors.Join(ErrWriteArray, err)
	}

	subarr, err := array.NewSubarray()
	if err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	defer subarr.Free()

	if err := subarr.AddRangeByName("IX", tiledb.MakeRange(int32(0), int32(grid.Nx-1))); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if err := subarr.AddRangeByName("IY", tiledb.MakeRange(int32(0), int32(grid.Ny-1))); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if err := query.SetSubarray(subarr); err != nil {
		return errors.Join(ErrWriteArray, err)
	}

	if err := query.Submit(); err != nil {
		return errors.Join(ErrWriteArray, err)
	}
	if err := query.Finalize(); err != nil {
		return errors.Join(ErrWriteArray, err)
	}

	return nil
}
