package barcode

import (
	"sync"
	"time"

	"github.com/filaform/filatag/log"
	"github.com/filaform/filatag/metrics"
	"github.com/filaform/filatag/types"
)

// DefaultScanCooldown is the minimum spacing between accepted scans.
const DefaultScanCooldown = 2 * time.Second

// closeWait bounds how long Close waits for the capture goroutine.
const closeWait = 2 * time.Second

// idleSleep is the loop pause when there is nothing to do.
const idleSleep = 100 * time.Millisecond

// Scanner runs the background capture loop on a dedicated goroutine.
// Decoded retail barcodes go through a single-slot handoff: if a scan
// is already waiting, the newer one is silently dropped (discard-newest,
// not a queue).
type Scanner struct {
	source  FrameSource
	decoder Decoder
	logger  *log.Logger

	collector *metrics.Collector
	cooldown  time.Duration

	slot chan types.ScanResult

	mu       sync.Mutex
	running  bool
	lastScan time.Time
	stop     chan struct{}
	done     chan struct{}
}

// NewScanner creates a scanner over the given source and decoder.
// collector may be nil.
func NewScanner(source FrameSource, decoder Decoder, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Scanner{
		source:   source,
		decoder:  decoder,
		logger:   logger,
		cooldown: DefaultScanCooldown,
		slot:     make(chan types.ScanResult, 1),
	}
}

// WithCooldown overrides the minimum inter-scan cooldown.
func (s *Scanner) WithCooldown(d time.Duration) *Scanner {
	s.cooldown = d
	return s
}

// WithCollector attaches a metrics collector.
func (s *Scanner) WithCollector(c *metrics.Collector) *Scanner {
	s.collector = c
	return s
}

// Initialize opens the capture device and performs a one-frame read
// test. Any failure returns false, never a fault.
func (s *Scanner) Initialize(deviceIndex int) bool {
	if err := s.source.Open(deviceIndex); err != nil {
		s.logger.Error("failed to open capture device", map[string]any{
			"device_index": deviceIndex,
			"error":        err.Error(),
		})
		return false
	}
	if _, err := s.source.ReadFrame(); err != nil {
		s.logger.Error("capture device opened but cannot read frames", map[string]any{
			"device_index": deviceIndex,
			"error":        err.Error(),
		})
		_ = s.source.Close()
		return false
	}
	s.logger.Info("capture device initialized", map[string]any{
		"device_index": deviceIndex,
		"width":        DefaultFrameWidth,
		"height":       DefaultFrameHeight,
		"fps":          DefaultFrameRate,
	})
	return true
}

// Start launches the background capture loop. No-op when running.
func (s *Scanner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.captureLoop(s.stop, s.done)
}

// captureLoop grabs frames and pushes decoded retail barcodes into the
// handoff slot. Runs until stopped; faults are contained per iteration.
func (s *Scanner) captureLoop(stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		s.mu.Lock()
		cooling := time.Since(s.lastScan) < s.cooldown
		s.mu.Unlock()
		if cooling {
			s.pause(stop, idleSleep)
			continue
		}

		frame, err := s.source.ReadFrame()
		if err != nil {
			s.pause(stop, idleSleep)
			continue
		}

		if hit, ok := s.decodeRetail(frame); ok {
			s.offer(hit)
			s.mu.Lock()
			s.lastScan = time.Now()
			s.mu.Unlock()
		}

		s.pause(stop, idleSleep)
	}
}

// decodeRetail decodes a frame and returns the first retail-symbology
// hit. Decoder faults are contained.
func (s *Scanner) decodeRetail(frame *Frame) (hit types.ScanResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("decoder fault", map[string]any{"panic": r})
			ok = false
		}
	}()

	for _, result := range s.decoder.Decode(frame) {
		if result.Symbology.Retail() {
			s.logger.Info("barcode detected", map[string]any{
				"value":     result.Value,
				"symbology": string(result.Symbology),
			})
			return result, true
		}
	}
	return types.ScanResult{}, false
}

// offer attempts a non-blocking push into the single-slot handoff.
func (s *Scanner) offer(result types.ScanResult) {
	select {
	case s.slot <- result:
		s.collector.IncScanDetected()
	default:
		// Slot occupied: discard the newest scan.
		s.collector.IncScanDropped()
	}
}

// pause sleeps for d or until stop, whichever comes first.
func (s *Scanner) pause(stop chan struct{}, d time.Duration) {
	select {
	case <-stop:
	case <-time.After(d):
	}
}

// GetLatestScan pops the waiting scan, non-blocking. Nil when none.
func (s *Scanner) GetLatestScan() *types.ScanResult {
	select {
	case result := <-s.slot:
		return &result
	default:
		return nil
	}
}

// Close stops the loop, joins the capture goroutine with a bounded
// wait, and releases the device.
func (s *Scanner) Close() error {
	s.mu.Lock()
	running := s.running
	stop := s.stop
	done := s.done
	s.running = false
	s.stop = nil
	s.done = nil
	s.mu.Unlock()

	if running {
		close(stop)
		select {
		case <-done:
		case <-time.After(closeWait):
			s.logger.Warn("capture loop did not stop in time", nil)
		}
	}
	return s.source.Close()
}
