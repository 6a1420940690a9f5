//go:build !tinygo

package config

import "os"

// FileStore persists settings to a single file on host builds.
type FileStore struct {
	Path string
}

func (f *FileStore) Load() ([]byte, bool) {
	blob, err := os.ReadFile(f.Path)
	if err != nil || len(blob) == 0 {
		return nil, false
	}
	return blob, true
}

func (f *FileStore) Save(blob []byte) error {
	return os.WriteFile(f.Path, blob, 0o644)
}
