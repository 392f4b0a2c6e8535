// Package barcode implements the camera barcode capture subsystem:
// a background frame-capture loop, retail symbology decoding, and the
// barcode-to-SKU mapping.
//
// Frame capture and symbol decoding sit behind the FrameSource and
// Decoder ports so the scanner logic is independent of the camera
// stack. The Simulated implementation backs simulated mode and tests.
package barcode

import (
	"errors"
	"sync"
	"time"

	"github.com/filaform/filatag/types"
)

// Default capture parameters.
const (
	DefaultFrameWidth  = 640
	DefaultFrameHeight = 480
	DefaultFrameRate   = 30
)

// Frame is one captured camera frame (grayscale).
type Frame struct {
	Width  int
	Height int
	Pixels []byte

	// seq links simulated frames to their scripted decode result.
	seq int
}

// FrameSource provides camera frames. ReadFrame blocks until a frame
// is available, which is why the capture loop runs on its own
// goroutine.
type FrameSource interface {
	// Open opens the capture device at the given index and fixes
	// resolution and frame rate.
	Open(deviceIndex int) error
	// ReadFrame captures one frame. Blocks.
	ReadFrame() (*Frame, error)
	// Close releases the device.
	Close() error
}

// Decoder extracts barcodes from a frame. Implementations may report
// any symbology; the scanner keeps only the four retail ones.
type Decoder interface {
	Decode(frame *Frame) []types.ScanResult
}

// Simulated is a scripted frame source and decoder for simulated mode
// and tests. Each scripted ScanResult is surfaced through exactly one
// frame; once the script is exhausted, frames decode to nothing.
type Simulated struct {
	mu     sync.Mutex
	script []types.ScanResult
	next   int
	opened bool

	// FrameDelay is how long ReadFrame blocks per frame, emulating
	// camera I/O. Default 10ms.
	FrameDelay time.Duration
}

// NewSimulated creates a simulated device that will surface the given
// scans in order.
func NewSimulated(script ...types.ScanResult) *Simulated {
	return &Simulated{script: script, FrameDelay: 10 * time.Millisecond}
}

// Open marks the device opened. Always succeeds.
func (s *Simulated) Open(int) error {
	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
	return nil
}

// ReadFrame blocks for FrameDelay, then returns the next frame.
func (s *Simulated) ReadFrame() (*Frame, error) {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return nil, errors.New("device not open")
	}
	seq := s.next
	s.next++
	delay := s.FrameDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return &Frame{Width: DefaultFrameWidth, Height: DefaultFrameHeight, seq: seq}, nil
}

// Close marks the device closed.
func (s *Simulated) Close() error {
	s.mu.Lock()
	s.opened = false
	s.mu.Unlock()
	return nil
}

// Decode returns the scripted result for the frame, if any.
func (s *Simulated) Decode(frame *Frame) []types.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame == nil || frame.seq >= len(s.script) {
		return nil
	}
	result := s.script[frame.seq]
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	return []types.ScanResult{result}
}

// Verify Simulated implements both ports.
var (
	_ FrameSource = (*Simulated)(nil)
	_ Decoder     = (*Simulated)(nil)
)
