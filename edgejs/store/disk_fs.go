package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Read implements FS by reading path relative to Root, rejecting any
// specifier that would escape it.
func (f *DiskFS) Read(ctx context.Context, path string) (io.ReadCloser, bool, error) {
	clean := filepath.Clean("/" + path)
	full := filepath.Join(f.Root, clean)
	if !strings.HasPrefix(full, filepath.Clean(f.Root)) {
		return nil, false, nil
	}
	file, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return file, true, nil
}
