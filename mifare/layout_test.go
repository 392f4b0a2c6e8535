package mifare

import "testing"

func TestLayout_Geometry(t *testing.T) {
	if BlockCount != 64 {
		t.Errorf("BlockCount = %d, want 64", BlockCount)
	}
	if ImageSize != BlockCount*BlockSize {
		t.Errorf("ImageSize = %d, want %d", ImageSize, BlockCount*BlockSize)
	}
}

func TestLayout_SectorMath(t *testing.T) {
	tests := []struct {
		block         int
		sector        int
		blockInSector int
		offset        int
	}{
		{0, 0, 0, 0},
		{3, 0, 3, 48},
		{4, 1, 0, 64},
		{17, 4, 1, 272},
		{63, 15, 3, 1008},
	}

	for _, tt := range tests {
		if got := Sector(tt.block); got != tt.sector {
			t.Errorf("Sector(%d) = %d, want %d", tt.block, got, tt.sector)
		}
		if got := BlockInSector(tt.block); got != tt.blockInSector {
			t.Errorf("BlockInSector(%d) = %d, want %d", tt.block, got, tt.blockInSector)
		}
		if got := BlockOffset(tt.block); got != tt.offset {
			t.Errorf("BlockOffset(%d) = %d, want %d", tt.block, got, tt.offset)
		}
	}
}

func TestLayout_Trailers(t *testing.T) {
	count := 0
	for b := 0; b < BlockCount; b++ {
		if IsTrailer(b) {
			count++
			if b%BlocksPerSector != 3 {
				t.Errorf("IsTrailer(%d) = true for non-trailer block", b)
			}
		}
	}
	if count != SectorCount {
		t.Errorf("trailer count = %d, want %d", count, SectorCount)
	}
}

func TestLayout_WritableBlocks(t *testing.T) {
	blocks := WritableBlocks()
	if len(blocks) != WritableBlockCount {
		t.Fatalf("len(WritableBlocks()) = %d, want %d", len(blocks), WritableBlockCount)
	}

	for _, b := range blocks {
		if b == ManufacturerBlock {
			t.Error("manufacturer block listed as writable")
		}
		if IsTrailer(b) {
			t.Errorf("trailer block %d listed as writable", b)
		}
	}
}

func TestLayout_ReadableIncludesManufacturerBlock(t *testing.T) {
	if !IsReadable(ManufacturerBlock) {
		t.Error("IsReadable(0) = false, want true")
	}
	if IsWritable(ManufacturerBlock) {
		t.Error("IsWritable(0) = true, want false")
	}
	if IsReadable(3) {
		t.Error("IsReadable(3) = true for a trailer block")
	}
}
