package scene

import (
	"fmt"
	"os"
	"path"

	"github.com/milk9111/simrig/scenes"
)

// Open loads name from disk when such a file exists, otherwise from the
// bundled scenes.
func Open(name string) (*Spec, error) {
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return Load(name)
	}
	clean := scenes.Clean(name)
	data, err := scenes.Read(clean)
	if err != nil {
		return nil, fmt.Errorf("scene: open %s: %w", name, err)
	}
	spec, err := Parse(data, "scenes/"+clean)
	if err != nil {
		return nil, err
	}
	dir := path.Dir(clean)
	spec.read = func(p string) ([]byte, error) {
		return scenes.Read(path.Join(dir, p))
	}
	return spec, nil
}
