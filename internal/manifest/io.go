package manifest

import (
	"fmt"

	"github.com/Sumatoshi-tech/preflight/pkg/persist"
)

var codec = persist.NewJSONCodec()

// Save atomically writes m to path (overwrite-by-rename), matching the
// atomic-construction guarantee bundle writers rely on.
func Save(path string, m *Manifest) error {
	if err := persist.SaveAtomic(path, codec, m); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	return nil
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	var m Manifest

	if err := persist.LoadFile(path, codec, &m); err != nil {
		return nil, err
	}

	return &m, nil
}
