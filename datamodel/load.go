package datamodel

import (
	"fmt"

	"github.com/spf13/afero"
)

// LoadFile reads and parses a data model file from fs.
func LoadFile(fs afero.Fs, path string) (*Datamodel, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data model: %w", err)
	}
	defer f.Close()
	return Parse(path, f)
}
