package mifare

// MIFARE Classic 1K geometry: 16 sectors of 4 blocks of 16 bytes.
const (
	ImageSize       = 1024
	SectorCount     = 16
	BlocksPerSector = 4
	BlockSize       = 16
	BlockCount      = SectorCount * BlocksPerSector

	// ManufacturerBlock is block 0, factory-set identifier. Never written.
	ManufacturerBlock = 0

	// WritableBlockCount is the number of data blocks eligible for
	// writing: 64 minus the manufacturer block and the 16 sector trailers.
	WritableBlockCount = 47
)

// IsTrailer returns true if the absolute block number is a sector
// trailer (the 4th block of its sector, holding keys and access bits).
func IsTrailer(block int) bool {
	return block%BlocksPerSector == BlocksPerSector-1
}

// IsWritable returns true if the block may be written during
// programming. The manufacturer block and sector trailers are excluded.
func IsWritable(block int) bool {
	return block != ManufacturerBlock && !IsTrailer(block)
}

// IsReadable returns true if the block is read during verification.
// Unlike writing, the manufacturer block is included; trailers are not.
func IsReadable(block int) bool {
	return !IsTrailer(block)
}

// Sector returns the sector number for an absolute block number.
func Sector(block int) int {
	return block / BlocksPerSector
}

// BlockInSector returns the position of the block within its sector.
func BlockInSector(block int) int {
	return block % BlocksPerSector
}

// BlockOffset returns the byte offset of the block within a tag image.
func BlockOffset(block int) int {
	return block * BlockSize
}

// WritableBlocks returns the absolute block numbers eligible for
// writing, in ascending order.
func WritableBlocks() []int {
	blocks := make([]int, 0, WritableBlockCount)
	for b := 0; b < BlockCount; b++ {
		if IsWritable(b) {
			blocks = append(blocks, b)
		}
	}
	return blocks
}
