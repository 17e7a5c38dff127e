// Package search locates mission log files under a URI (local path or
// object store) via TileDB's VFS abstraction, grounded on the teacher's
// search/search.go FindGsf/trawl, generalised from "*.gsf" to the
// replay tool's mission-log pattern and returning errors instead of
// panicking on a VFS failure.
package search

import (
	"errors"
	"path/filepath"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

var ErrTrawl = errors.New("search: error listing vfs path")

// trawl recursively matches pattern against every file basename under uri,
// the same directory-walk the teacher's trawl performs.
func trawl(vfs *tiledb.VFS, pattern, uri string, items []string) ([]string, error) {
	dirs, files, err := vfs.List(uri)
	if err != nil {
		return items, errors.Join(ErrTrawl, err)
	}

	for _, file := range files {
		match, err := filepath.Match(pattern, filepath.Base(file))
		if err != nil {
			return items, errors.Join(ErrTrawl, err)
		}
		if match {
			items = append(items, file)
		}
	}

	for _, dir := range dirs {
		items, err = trawl(vfs, pattern, dir, items)
		if err != nil {
			return items, err
		}
	}

	return items, nil
}

// FindMissionLogs recursively searches uri for mission log files (the
// newline-delimited-JSON perception/control records replayed by
// cmd/dpslamctl), matching "*.jsonl" basenames. configURI may be empty for
// a generic TileDB config; it is required to reach an access-constrained
// object store the same way the teacher's FindGsf uses it.
func FindMissionLogs(uri, configURI string) ([]string, error) {
	var (
		config *tiledb.Config
		err    error
	)

	if configURI == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(configURI)
	}
	if err != nil {
		return nil, errors.Join(ErrTrawl, err)
	}
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return nil, errors.Join(ErrTrawl, err)
	}
	defer ctx.Free()

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		return nil, errors.Join(ErrTrawl, err)
	}
	defer vfs.Free()

	return trawl(vfs, "*.jsonl", uri, make([]string, 0))
}
