package persistence

import (
	"errors"
	"reflect"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	stgpsr "github.com/yuin/stagparser"
)

// CreateAttr creates a TileDB attribute plus its compression filter
// pipeline from struct-tag definitions, mirroring the teacher's
// tiledb.go CreateAttr: a `tiledb:"dtype=...,ftype=..."` tag selects the
// datatype and whether the field is a dimension (schemaAttrs skips those
// before calling CreateAttr) or an attribute, and a `filters:"..."` tag
// lists the filter pipeline in order. Supported filters: zstd(level=N) and
// bysh (byteshuffle); any other filter name returns ErrUnknownFilter.
func CreateAttr(fieldName string, filterDefs []stgpsr.Definition, tiledbDefs map[string]stgpsr.Definition, schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	def, ok := tiledbDefs["dtype"]
	if !ok {
		return errors.Join(ErrCreateAttribute, errors.New("dtype tag not found for "+fieldName))
	}
	dtypeName, _ := def.Attribute("dtype")

	var dtype tiledb.Datatype
	switch dtypeName {
	case "uint8":
		dtype = tiledb.TILEDB_UINT8
	case "int32":
		dtype = tiledb.TILEDB_INT32
	case "uint32":
		dtype = tiledb.TILEDB_UINT32
	case "int64":
		dtype = tiledb.TILEDB_INT64
	case "float32":
		dtype = tiledb.TILEDB_FLOAT32
	case "float64":
		dtype = tiledb.TILEDB_FLOAT64
	default:
		return errors.Join(ErrCreateAttribute, errors.New("unsupported dtype: "+dtypeName.(string)))
	}

	filterList, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return errors.Join(ErrCreateAttribute, err)
	}
	defer filterList.Free()

	for _, filt := range filterDefs {
		switch filt.Name() {
		case "zstd":
			lvl, ok := filt.Attribute("level")
			if !ok {
				return errors.Join(ErrCreateAttribute, errors.New("zstd level not defined"))
			}
			f, err := ZstdFilter(ctx, int32(lvl.(int64)))
			if err != nil {
				return errors.Join(ErrCreateAttribute, err)
			}
			defer f.Free()
			if err := filterList.AddFilter(f); err != nil {
				return errors.Join(ErrCreateAttribute, err)
			}
		case "bysh":
			f, err := ByteshuffleFilter(ctx)
			if err != nil {
				return errors.Join(ErrCreateAttribute, err)
			}
			defer f.Free()
			if err := filterList.AddFilter(f); err != nil {
				return errors.Join(ErrCreateAttribute, err)
			}
		default:
			return errors.Join(ErrUnknownFilter, errors.New(filt.Name()))
		}
	}

	attr, err := tiledb.NewAttribute(ctx, fieldName, dtype)
	if err != nil {
		return errors.Join(ErrCreateAttribute, err)
	}
	defer attr.Free()

	if err := AttachFilters(filterList, attr); err != nil {
		return errors.Join(ErrCreateAttribute, err)
	}

	if err := schema.AddAttributes(attr); err != nil {
		return errors.Join(ErrCreateAttribute, err)
	}

	return nil
}

// schemaAttrs walks every exported field of t and adds it to schema as a
// TileDB attribute via CreateAttr, skipping fields tagged ftype=dim
// (those are added to the domain separately by the caller), mirroring the
// teacher's schema.go schemaAttrs.
func schemaAttrs(t any, schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	values := reflect.ValueOf(t).Elem()
	types := values.Type()

	filterDefs, _ := stgpsr.ParseStruct(t, "filters")
	tiledbDefs, _ := stgpsr.ParseStruct(t, "tiledb")

	for i := 0; i < values.NumField(); i++ {
		name := types.Field(i).Name

		fieldTiledbDefs := make(map[string]stgpsr.Definition)
		for _, d := range tiledbDefs[name] {
			fieldTiledbDefs[d.Name()] = d
		}

		def, ok := fieldTiledbDefs["ftype"]
		if !ok {
			return errors.Join(ErrCreateAttribute, errors.New("ftype tag not found for "+name))
		}
		ftype, _ := def.Attribute("ftype")
		if ftype == "dim" {
			continue
		}

		if err := CreateAttr(name, filterDefs[name], fieldTiledbDefs, schema, ctx); err != nil {
			return err
		}
	}

	return nil
}

// CloudRecord is one row of the Cloud output of §6 ("Persisted state
// layout": "sequence of (x, y, z_mean, confidence)"), tagged for TileDB
// schema construction the way the teacher tags its ping/beam structs.
type CloudRecord struct {
	X          float64 `tiledb:"dtype=float64,ftype=dim"`
	Y          float64 `tiledb:"dtype=float64,ftype=dim"`
	ZMean      float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	Confidence float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
}

// GridRecord is one cell of the SimpleGrid output of §6 ("dense row-major
// grid of {has_feature, confidence, zmin, zmax}"), with the dimensions
// being the grid indices rather than world coordinates.
type GridRecord struct {
	IX         int32   `tiledb:"dtype=int32,ftype=dim"`
	IY         int32   `tiledb:"dtype=int32,ftype=dim"`
	HasFeature uint8   `tiledb:"dtype=uint8,ftype=attr" filters:"bysh,zstd(level=9)"`
	Confidence float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	ZMin       float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	ZMax       float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
}

// cloudSchema builds the sparse array schema for a Cloud snapshot: X/Y
// float64 dimensions (a point cloud has no natural dense extent), Hilbert
// cell ordering and duplicate points allowed, the same combination the
// teacher's beamSparseSchema uses for lon/lat-keyed beam data.
func cloudSchema(ctx *tiledb.Context) (*tiledb.ArraySchema, error) {
	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	defer domain.Free()

	const tileSize = 1000.0
	xdim, err := tiledb.NewDimension(ctx, "X", tiledb.TILEDB_FLOAT64, []float64{-1e9, 1e9}, tileSize)
	if err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	defer xdim.Free()

	ydim, err := tiledb.NewDimension(ctx, "Y", tiledb.TILEDB_FLOAT64, []float64{-1e9, 1e9}, tileSize)
	if err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	defer ydim.Free()

	dimFilters, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	defer dimFilters.Free()

	zstd, err := ZstdFilter(ctx, 16)
	if err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	defer zstd.Free()

	if err := AddFilters(dimFilters, zstd); err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	if err := xdim.SetFilterList(dimFilters); err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	if err := ydim.SetFilterList(dimFilters); err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}

	if err := domain.AddDimensions(xdim, ydim); err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_SPARSE)
	if err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}

	if err := schema.SetDomain(domain); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}
	if err := schema.SetCapacity(100_000); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_HILBERT); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}
	if err := schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}
	if err := schema.SetAllowsDups(true); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}

	if err := schemaAttrs(&CloudRecord{}, schema, ctx); err != nil {
		return nil, err
	}

	if err := schema.Check(); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}

	return schema, nil
}

// gridSchema builds the dense array schema for a SimpleGrid snapshot,
// sized exactly to [0,nx)x[0,ny), row-major like the teacher's
// pingDenseSchema.
func gridSchema(ctx *tiledb.Context, nx, ny int) (*tiledb.ArraySchema, error) {
	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	defer domain.Free()

	ixdim, err := tiledb.NewDimension(ctx, "IX", tiledb.TILEDB_INT32, []int32{0, int32(nx - 1)}, int32(nx))
	if err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	defer ixdim.Free()

	iydim, err := tiledb.NewDimension(ctx, "IY", tiledb.TILEDB_INT32, []int32{0, int32(ny - 1)}, int32(ny))
	if err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	defer iydim.Free()

	// IX/IY walk every tile in strict row-major order, so the positive-delta
	// filter (successive values minus their predecessor) compresses them
	// far better than zstd alone would, the same filter the teacher's
	// pingDenseSchema applies to its own monotonic ping-index dimension.
	dimFilters, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	defer dimFilters.Free()

	posDelta, err := PositiveDeltaFilter(ctx)
	if err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	defer posDelta.Free()

	if err := AddFilters(dimFilters, posDelta); err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	if err := ixdim.SetFilterList(dimFilters); err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}
	if err := iydim.SetFilterList(dimFilters); err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}

	if err := domain.AddDimensions(ixdim, iydim); err != nil {
		return nil, errors.Join(ErrCreateDimension, err)
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_DENSE)
	if err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}

	if err := schema.SetDomain(domain); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}
	if err := schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}

	if err := schemaAttrs(&GridRecord{}, schema, ctx); err != nil {
		return nil, err
	}

	if err := schema.Check(); err != nil {
		return nil, errors.Join(ErrCreateSchema, err)
	}

	return schema, nil
}
