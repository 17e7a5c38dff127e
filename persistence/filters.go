package persistence

import (
	"errors"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// ArrayOpen is a helper for opening a TileDB array, freeing it again on a
// failed Open rather than leaking the handle (teacher's tiledb.go
// ArrayOpen).
func ArrayOpen(ctx *tiledb.Context, uri string, mode tiledb.QueryType) (*tiledb.Array, error) {
	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return nil, errors.Join(ErrOpenArray, err)
	}

	if err := array.Open(mode); err != nil {
		array.Free()
		return nil, errors.Join(ErrOpenArray, err)
	}

	return array, nil
}

// AddFilters sequentially appends compression filters to a filter list
// (teacher's tiledb.go AddFilters).
func AddFilters(filterList *tiledb.FilterList, filters ...*tiledb.Filter) error {
	for _, filt := range filters {
		if err := filterList.AddFilter(filt); err != nil {
			return errors.Join(ErrAddFilters, err)
		}
	}
	return nil
}

// ZstdFilter initialises the Zstandard compression filter at the given
// level (teacher's tiledb.go ZstdFilter).
func ZstdFilter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	filt, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_ZSTD)
	if err != nil {
		return nil, err
	}
	if err := filt.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		filt.Free()
		return nil, err
	}
	return filt, nil
}

// ByteshuffleFilter wraps TILEDB_FILTER_BYTESHUFFLE, used ahead of Zstd on
// the low-cardinality HasFeature/Dead-style flag attributes (teacher's
// tiledb.go "bysh" tag).
func ByteshuffleFilter(ctx *tiledb.Context) (*tiledb.Filter, error) {
	return tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_BYTESHUFFLE)
}

// PositiveDeltaFilter wraps TILEDB_FILTER_POSITIVE_DELTA, used on the
// monotonically-ordered dimension tiles (teacher's pingDenseSchema).
func PositiveDeltaFilter(ctx *tiledb.Context) (*tiledb.Filter, error) {
	return tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_POSITIVE_DELTA)
}

// AttachFilters sets the same filter list on every given attribute
// (teacher's tiledb.go AttachFilters).
func AttachFilters(filterList *tiledb.FilterList, attrs ...*tiledb.Attribute) error {
	for _, attr := range attrs {
		if err := attr.SetFilterList(filterList); err != nil {
			return err
		}
	}
	return nil
}
