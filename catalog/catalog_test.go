package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/filaform/filatag/mifare"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	if err := SeedSampleImages(dir); err != nil {
		t.Fatalf("SeedSampleImages failed: %v", err)
	}
	return New(filepath.Join(dir, "mapping.json"), NewFSStore(dir))
}

func TestCatalog_SeedsSampleMapping(t *testing.T) {
	cat := newTestCatalog(t)

	filaments, err := cat.Filaments()
	if err != nil {
		t.Fatalf("Filaments failed: %v", err)
	}
	if len(filaments) != 3 {
		t.Fatalf("len(Filaments()) = %d, want 3", len(filaments))
	}

	// Sorted by SKU.
	wantOrder := []string{"ABS002", "PETG003", "PLA001"}
	for i, want := range wantOrder {
		if filaments[i].SKU != want {
			t.Errorf("filaments[%d].SKU = %q, want %q", i, filaments[i].SKU, want)
		}
	}
}

func TestCatalog_Lookup(t *testing.T) {
	cat := newTestCatalog(t)

	f, err := cat.Lookup("PLA001")
	if err != nil {
		t.Fatalf("Lookup(PLA001) failed: %v", err)
	}
	if f.BinaryFile != "pla001.bin" {
		t.Errorf("BinaryFile = %q, want pla001.bin", f.BinaryFile)
	}

	_, err = cat.Lookup("NOPE999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(NOPE999) = %v, want ErrNotFound", err)
	}
}

func TestCatalog_ResolveImage(t *testing.T) {
	cat := newTestCatalog(t)

	f, data, err := cat.ResolveImage(context.Background(), "ABS002")
	if err != nil {
		t.Fatalf("ResolveImage failed: %v", err)
	}
	if f.SKU != "ABS002" {
		t.Errorf("SKU = %q, want ABS002", f.SKU)
	}
	if len(data) != mifare.ImageSize {
		t.Errorf("len(data) = %d, want %d", len(data), mifare.ImageSize)
	}
	if data[5] != 5 || data[300] != byte(300%256) {
		t.Error("sample image payload does not follow the i%256 pattern")
	}
}

func TestCatalog_ResolveImage_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	// Mapping gets seeded but no binaries exist in this directory.
	cat := New(filepath.Join(dir, "mapping.json"), NewFSStore(dir))

	_, _, err := cat.ResolveImage(context.Background(), "PLA001")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ResolveImage with missing binary = %v, want ErrNotFound", err)
	}
}

func TestSeedSampleImages_Idempotent(t *testing.T) {
	dir := t.TempDir()
	if err := SeedSampleImages(dir); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	if err := SeedSampleImages(dir); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		prefix string
	}{
		{"my-bucket", "my-bucket", ""},
		{"my-bucket/images", "my-bucket", "images"},
		{"my-bucket/deep/prefix", "my-bucket", "deep/prefix"},
	}
	for _, tt := range tests {
		bucket, prefix := ParseS3Path(tt.in)
		if bucket != tt.bucket || prefix != tt.prefix {
			t.Errorf("ParseS3Path(%q) = %q, %q, want %q, %q", tt.in, bucket, prefix, tt.bucket, tt.prefix)
		}
	}
}

func TestS3Config_Validate(t *testing.T) {
	cfg := S3Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted empty bucket")
	}
	cfg.Bucket = "images"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}
