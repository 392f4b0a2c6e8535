package barcode

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMap_SeedsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barcode_mapping.json")

	m, err := LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("mapping file not seeded: %v", err)
	}

	sku, ok := m.Resolve("123456789012")
	if !ok || sku != "PLA001" {
		t.Errorf("Resolve(123456789012) = %q, %t, want PLA001, true", sku, ok)
	}
	sku, ok = m.Resolve("1234567890135")
	if !ok || sku != "ABS002" {
		t.Errorf("Resolve(1234567890135) = %q, %t, want ABS002, true", sku, ok)
	}
	if len(m.All()) != 6 {
		t.Errorf("len(All()) = %d, want 6", len(m.All()))
	}
}

func TestMap_ResolveUnknown(t *testing.T) {
	m, err := LoadMap(filepath.Join(t.TempDir(), "map.json"))
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	if sku, ok := m.Resolve("000000000000"); ok {
		t.Errorf("Resolve(unknown) = %q, true, want false", sku)
	}
}

func TestMap_AddPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")

	m, err := LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}
	if err := m.Add("555000111222", "PLA001"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// A fresh load sees the addition.
	reloaded, err := LoadMap(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	sku, ok := reloaded.Resolve("555000111222")
	if !ok || sku != "PLA001" {
		t.Errorf("Resolve after reload = %q, %t, want PLA001, true", sku, ok)
	}
}

func TestLoadMap_RejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadMap(path); err == nil {
		t.Error("LoadMap accepted a malformed file")
	}
}

func TestSimulated_ScriptExhaustion(t *testing.T) {
	sim := NewSimulated(scan("only", "EAN13"))
	sim.FrameDelay = 0
	if err := sim.Open(0); err != nil {
		t.Fatal(err)
	}

	frame, err := sim.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if got := sim.Decode(frame); len(got) != 1 {
		t.Fatalf("first frame decodes = %d, want 1", len(got))
	}

	frame, err = sim.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if got := sim.Decode(frame); len(got) != 0 {
		t.Errorf("exhausted script decodes = %d, want 0", len(got))
	}
}

func TestSimulated_ReadRequiresOpen(t *testing.T) {
	sim := NewSimulated()
	if _, err := sim.ReadFrame(); err == nil {
		t.Error("ReadFrame succeeded on an unopened device")
	}
}
