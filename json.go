package dpslam

import (
	"encoding/json"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// WriteJSON serialises data to a JSON file at fileURI. The destination can
// be local or an object store such as S3, via TileDB's VFS abstraction
// (the same mechanism the teacher's json.go uses for metadata/index
// sidecar files). configURI may be empty for a generic TileDB config.
func WriteJSON(fileURI, configURI string, data any) (int, error) {
	var config *tiledb.Config
	var err error

	if configURI == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(configURI)
	}
	if err != nil {
		return 0, err
	}
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return 0, err
	}
	defer ctx.Free()

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		return 0, err
	}
	defer vfs.Free()

	stream, err := vfs.Open(fileURI, tiledb.TILEDB_VFS_WRITE)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	jsn, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return 0, err
	}

	return stream.Write(jsn)
}

// JSONDumps constructs a compact JSON string of data.
func JSONDumps(data any) (string, error) {
	jsn, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(jsn), nil
}

// JSONIndentDumps is JSONDumps with four-space indentation.
func JSONIndentDumps(data any) (string, error) {
	jsn, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return "", err
	}
	return string(jsn), nil
}
