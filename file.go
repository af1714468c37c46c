package nls

import (
	"bytes"
	"encoding/json"
	"path"
	"path/filepath"
	"strings"

	"github.com/pitabwire/nls/sourcemap"
)

const (
	// BundleExt names the raw bundle artifact derived from a source file.
	BundleExt = ".nls.json"
	// FlatExt names the flattened key value artifact emitted alongside the
	// bundle when flattened output is enabled.
	FlatExt = ".i18n.json"
)

// File is the unit flowing through the pipeline: a path, its content and,
// for rewritable sources, the debug metadata travelling with it.
type File struct {
	Path      string
	Contents  []byte
	SourceMap *sourcemap.SourceMap
}

// IsBundle reports whether the file is a raw bundle artifact.
func (f *File) IsBundle() bool {
	return strings.HasSuffix(f.Path, BundleExt)
}

// Module returns the module name of the file: its slash separated path
// without the artifact or source extension.
func (f *File) Module() string {
	p := filepath.ToSlash(f.Path)
	if strings.HasSuffix(p, BundleExt) {
		return strings.TrimSuffix(p, BundleExt)
	}
	return strings.TrimSuffix(p, path.Ext(p))
}

// replaceExt swaps the file's extension, treating the multi part artifact
// extensions as a unit.
func replaceExt(filePath, newExt string) string {
	return (&File{Path: filePath}).Module() + newExt
}

// marshalArtifact serialises a derived artifact the way language packs are
// shipped: tab indented with normalised newlines.
func marshalArtifact(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return nil, err
	}
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")), nil
}
