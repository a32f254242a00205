// Package scenes ships the example scenes and their scripts.
package scenes

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed *.yaml scripts/*.tengo
var FS embed.FS

// Read returns a scene or script, preferring a copy under ./scenes on disk so
// edits are picked up without rebuilding.
func Read(name string) ([]byte, error) {
	clean := Clean(name)
	if data, err := os.ReadFile(filepath.Join("scenes", filepath.FromSlash(clean))); err == nil {
		return data, nil
	}
	return FS.ReadFile(clean)
}

// Names lists the embedded scene files.
func Names() []string {
	matches, _ := fs.Glob(FS, "*.yaml")
	sort.Strings(matches)
	return matches
}

// Clean turns a user supplied name into a path inside the scenes tree.
func Clean(name string) string {
	s := path.Clean(filepath.ToSlash(name))
	s = strings.TrimPrefix(s, "./")
	s = strings.TrimPrefix(s, "scenes/")
	if path.Ext(s) == "" {
		s += ".yaml"
	}
	return s
}
