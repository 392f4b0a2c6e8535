// Package catalog resolves filament SKUs to tag images.
//
// The SKU mapping is a JSON object keyed by SKU; images are per-SKU
// 1024-byte binary files held in an ImageStore (local directory or S3
// bucket). Missing mapping files are seeded with sample entries for
// development, matching the sample binaries SeedSampleImages creates.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrNotFound indicates an unknown SKU or a missing image file.
var ErrNotFound = errors.New("not found")

// Filament describes one SKU entry in the mapping file.
type Filament struct {
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	BinaryFile  string   `json:"binary_file"`
	Keys        []string `json:"keys,omitempty"`
}

// Catalog combines the SKU mapping with an image store.
type Catalog struct {
	mappingPath string
	store       ImageStore
}

// New creates a catalog backed by the mapping file and image store.
func New(mappingPath string, store ImageStore) *Catalog {
	return &Catalog{mappingPath: mappingPath, store: store}
}

// Store returns the backing image store.
func (c *Catalog) Store() ImageStore {
	return c.store
}

// Filaments returns all mapping entries sorted by SKU.
func (c *Catalog) Filaments() ([]Filament, error) {
	mapping, err := c.loadMapping()
	if err != nil {
		return nil, err
	}
	skus := make([]string, 0, len(mapping))
	for sku := range mapping {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	filaments := make([]Filament, 0, len(skus))
	for _, sku := range skus {
		filaments = append(filaments, mapping[sku])
	}
	return filaments, nil
}

// Lookup returns the mapping entry for a SKU.
// Returns ErrNotFound for unknown SKUs.
func (c *Catalog) Lookup(sku string) (*Filament, error) {
	mapping, err := c.loadMapping()
	if err != nil {
		return nil, err
	}
	f, ok := mapping[sku]
	if !ok {
		return nil, fmt.Errorf("sku %q: %w", sku, ErrNotFound)
	}
	return &f, nil
}

// ResolveImage looks up the SKU and loads its tag image bytes.
// Returns ErrNotFound when either the SKU or its image file is missing.
func (c *Catalog) ResolveImage(ctx context.Context, sku string) (*Filament, []byte, error) {
	f, err := c.Lookup(sku)
	if err != nil {
		return nil, nil, err
	}
	data, err := c.store.LoadImage(ctx, f.BinaryFile)
	if err != nil {
		return nil, nil, err
	}
	return f, data, nil
}

// loadMapping reads the mapping file, seeding sample entries when the
// file does not exist yet.
func (c *Catalog) loadMapping() (map[string]Filament, error) {
	if _, err := os.Stat(c.mappingPath); os.IsNotExist(err) {
		if err := c.seedMapping(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(c.mappingPath)
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", c.mappingPath, err)
	}

	var mapping map[string]Filament
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("invalid mapping %s: %w", c.mappingPath, err)
	}
	return mapping, nil
}

// seedMapping writes the sample mapping used for development.
func (c *Catalog) seedMapping() error {
	sample := map[string]Filament{
		"PLA001": {
			SKU:         "PLA001",
			Name:        "Premium PLA Red",
			Description: "High-quality PLA filament in vibrant red",
			BinaryFile:  "pla001.bin",
		},
		"ABS002": {
			SKU:         "ABS002",
			Name:        "Industrial ABS Black",
			Description: "Strong ABS filament for industrial applications",
			BinaryFile:  "abs002.bin",
		},
		"PETG003": {
			SKU:         "PETG003",
			Name:        "Clear PETG Natural",
			Description: "Crystal clear PETG for transparent prints",
			BinaryFile:  "petg003.bin",
		},
	}

	if err := os.MkdirAll(filepath.Dir(c.mappingPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.mappingPath, data, 0o644)
}
