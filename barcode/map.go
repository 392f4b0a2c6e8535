package barcode

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Map maps barcode values to filament SKUs, backed by a JSON file.
// A missing file is seeded with sample entries on first load.
type Map struct {
	mu   sync.Mutex
	path string
	m    map[string]string
}

// defaultMappings are the sample UPC-A and EAN-13 entries seeded for
// development.
var defaultMappings = map[string]string{
	"123456789012":  "PLA001",
	"123456789013":  "ABS002",
	"123456789014":  "PETG003",
	"1234567890128": "PLA001",
	"1234567890135": "ABS002",
	"1234567890142": "PETG003",
}

// LoadMap loads the barcode map from path, seeding defaults when the
// file does not exist.
func LoadMap(path string) (*Map, error) {
	m := &Map{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read barcode map %s: %w", path, err)
		}
		m.m = make(map[string]string, len(defaultMappings))
		for k, v := range defaultMappings {
			m.m[k] = v
		}
		if err := m.save(); err != nil {
			return nil, err
		}
		return m, nil
	}

	if err := json.Unmarshal(data, &m.m); err != nil {
		return nil, fmt.Errorf("invalid barcode map %s: %w", path, err)
	}
	return m, nil
}

// Resolve returns the SKU for a barcode value, or "" and false.
func (m *Map) Resolve(value string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sku, ok := m.m[value]
	return sku, ok
}

// Add records a barcode-to-SKU mapping and persists immediately.
func (m *Map) Add(value, sku string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[value] = sku
	return m.save()
}

// All returns a copy of every mapping.
func (m *Map) All() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}

// save writes the map under the held lock.
func (m *Map) save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("barcode map dir: %w", err)
	}
	data, err := json.MarshalIndent(m.m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write barcode map %s: %w", m.path, err)
	}
	return nil
}
