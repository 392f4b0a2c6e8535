package mifare

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Image is a full MIFARE Classic 1K memory image. Always exactly
// ImageSize bytes once validated.
type Image []byte

// ValidateImage checks that data is a well-formed tag image.
func ValidateImage(data []byte) error {
	if len(data) != ImageSize {
		return NewTagError(ErrImageSize, "validate", NoBlock,
			fmt.Errorf("got %d bytes, expected %d", len(data), ImageSize))
	}
	return nil
}

// NewImage validates data and returns it as an Image.
func NewImage(data []byte) (Image, error) {
	if err := ValidateImage(data); err != nil {
		return nil, err
	}
	return Image(data), nil
}

// Fingerprint returns the SHA-256 hex digest of the image. The
// fingerprint is the sole equality criterion for verification.
func (img Image) Fingerprint() string {
	sum := sha256.Sum256(img)
	return hex.EncodeToString(sum[:])
}

// Block returns the 16-byte slice for the given absolute block number.
func (img Image) Block(block int) []byte {
	off := BlockOffset(block)
	return img[off : off+BlockSize]
}

// BlockHex returns the block payload as an uppercase hex string, the
// form the hardware CLI write command expects.
func (img Image) BlockHex(block int) string {
	return fmt.Sprintf("%X", img.Block(block))
}
