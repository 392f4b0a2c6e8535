package types

import "time"

// Symbology identifies a retail barcode symbology.
type Symbology string

// Supported retail symbologies. Anything else a decoder reports is ignored.
const (
	SymbologyEAN13 Symbology = "EAN13"
	SymbologyEAN8  Symbology = "EAN8"
	SymbologyUPCA  Symbology = "UPCA"
	SymbologyUPCE  Symbology = "UPCE"
)

// Retail returns true if the symbology is one of the four retail
// symbologies the scanner accepts.
func (s Symbology) Retail() bool {
	switch s {
	case SymbologyEAN13, SymbologyEAN8, SymbologyUPCA, SymbologyUPCE:
		return true
	}
	return false
}

// BoundingBox is the pixel rectangle a barcode was decoded from.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScanResult is one decoded barcode hit from the capture loop.
type ScanResult struct {
	Value     string      `json:"value"`
	Symbology Symbology   `json:"symbology"`
	Box       BoundingBox `json:"box"`
	Timestamp time.Time   `json:"timestamp"`
}
