package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/filaform/filatag/mifare"
)

// ImageStore loads per-SKU tag image files.
type ImageStore interface {
	// LoadImage returns the raw bytes of the named image file.
	// Returns ErrNotFound when the file does not exist.
	LoadImage(ctx context.Context, name string) ([]byte, error)
}

// FSStore loads images from a local directory.
type FSStore struct {
	// Dir is the directory holding the per-SKU binary files.
	Dir string
}

// NewFSStore creates a local-directory image store.
func NewFSStore(dir string) *FSStore {
	return &FSStore{Dir: dir}
}

// LoadImage reads the named image file from the directory.
func (s *FSStore) LoadImage(_ context.Context, name string) ([]byte, error) {
	path := filepath.Join(s.Dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return data, nil
}

// SeedSampleImages creates sample 1024-byte tag images for the seeded
// SKUs when they do not exist yet. The fill pattern is i%256, the same
// development payload the mapping samples reference.
func SeedSampleImages(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, name := range []string{"pla001.bin", "abs002.bin", "petg003.bin"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		data := make([]byte, mifare.ImageSize)
		for i := range data {
			data[i] = byte(i % 256)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Verify FSStore implements the ImageStore interface.
var _ ImageStore = (*FSStore)(nil)
