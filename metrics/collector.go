// Package metrics provides process-wide counters for programming and
// detection activity.
//
// The Collector accumulates counters for the life of the process. It is
// a leaf package with no internal dependencies. All increment methods
// are nil-receiver safe so wiring is optional everywhere.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Command channel
	CommandsExecuted int64
	CommandTimeouts  int64

	// Tag lifecycle
	TagsProgrammed int64
	TagsPassed     int64
	TagsFailed     int64
	TagsErrored    int64

	// Engine
	BlocksWritten int64
	KeyFallbacks  int64
	WriteFailures int64

	// Verification
	VerifyPassed int64
	VerifyFailed int64

	// Auto-detection
	PresenceProbes  int64
	TagsDetected    int64
	DetectionErrors int64

	// Barcode capture
	ScansDetected int64
	ScansDropped  int64
	ScansResolved int64

	// Dimensions (informational, set at construction)
	Mode       string
	DevicePath string
}

// Collector accumulates counters for the process lifetime.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	commandsExecuted int64
	commandTimeouts  int64

	tagsProgrammed int64
	tagsPassed     int64
	tagsFailed     int64
	tagsErrored    int64

	blocksWritten int64
	keyFallbacks  int64
	writeFailures int64

	verifyPassed int64
	verifyFailed int64

	presenceProbes  int64
	tagsDetected    int64
	detectionErrors int64

	scansDetected int64
	scansDropped  int64
	scansResolved int64

	mode       string
	devicePath string
}

// NewCollector creates a Collector with dimension labels.
// mode is "simulated" or "real"; devicePath may be empty until discovery.
func NewCollector(mode, devicePath string) *Collector {
	return &Collector{mode: mode, devicePath: devicePath}
}

func (c *Collector) inc(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Command channel ---

// IncCommandExecuted records one hardware command invocation.
func (c *Collector) IncCommandExecuted() {
	if c == nil {
		return
	}
	c.inc(&c.commandsExecuted)
}

// IncCommandTimeout records a command that expired its timeout.
func (c *Collector) IncCommandTimeout() {
	if c == nil {
		return
	}
	c.inc(&c.commandTimeouts)
}

// --- Tag lifecycle ---

// IncTagProgrammed records a completed tag write pass.
func (c *Collector) IncTagProgrammed() {
	if c == nil {
		return
	}
	c.inc(&c.tagsProgrammed)
}

// IncTagPassed records a tag reaching PASS.
func (c *Collector) IncTagPassed() {
	if c == nil {
		return
	}
	c.inc(&c.tagsPassed)
}

// IncTagFailed records a tag reaching FAIL.
func (c *Collector) IncTagFailed() {
	if c == nil {
		return
	}
	c.inc(&c.tagsFailed)
}

// IncTagErrored records a tag reaching ERROR.
func (c *Collector) IncTagErrored() {
	if c == nil {
		return
	}
	c.inc(&c.tagsErrored)
}

// --- Engine ---

// IncBlockWritten records one successful block write.
func (c *Collector) IncBlockWritten() {
	if c == nil {
		return
	}
	c.inc(&c.blocksWritten)
}

// IncKeyFallback records one failed key attempt that fell through to
// the next candidate key.
func (c *Collector) IncKeyFallback() {
	if c == nil {
		return
	}
	c.inc(&c.keyFallbacks)
}

// IncWriteFailure records a block write abandoned after key exhaustion.
func (c *Collector) IncWriteFailure() {
	if c == nil {
		return
	}
	c.inc(&c.writeFailures)
}

// --- Verification ---

// IncVerifyPassed records a verification PASS.
func (c *Collector) IncVerifyPassed() {
	if c == nil {
		return
	}
	c.inc(&c.verifyPassed)
}

// IncVerifyFailed records a verification FAIL.
func (c *Collector) IncVerifyFailed() {
	if c == nil {
		return
	}
	c.inc(&c.verifyFailed)
}

// --- Auto-detection ---

// IncPresenceProbe records one presence probe issued by the polling loop.
func (c *Collector) IncPresenceProbe() {
	if c == nil {
		return
	}
	c.inc(&c.presenceProbes)
}

// IncTagDetected records a presence hit.
func (c *Collector) IncTagDetected() {
	if c == nil {
		return
	}
	c.inc(&c.tagsDetected)
}

// IncDetectionError records a fault caught by the polling loop.
func (c *Collector) IncDetectionError() {
	if c == nil {
		return
	}
	c.inc(&c.detectionErrors)
}

// --- Barcode capture ---

// IncScanDetected records a decoded retail barcode.
func (c *Collector) IncScanDetected() {
	if c == nil {
		return
	}
	c.inc(&c.scansDetected)
}

// IncScanDropped records a scan discarded because the handoff slot was occupied.
func (c *Collector) IncScanDropped() {
	if c == nil {
		return
	}
	c.inc(&c.scansDropped)
}

// IncScanResolved records a scan resolved to a SKU.
func (c *Collector) IncScanResolved() {
	if c == nil {
		return
	}
	c.inc(&c.scansResolved)
}

// Snapshot returns an immutable copy of all counters.
// Nil-safe: a nil collector returns a zero snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		CommandsExecuted: c.commandsExecuted,
		CommandTimeouts:  c.commandTimeouts,

		TagsProgrammed:  c.tagsProgrammed,
		TagsPassed:      c.tagsPassed,
		TagsFailed:      c.tagsFailed,
		TagsErrored:     c.tagsErrored,
		BlocksWritten:   c.blocksWritten,
		KeyFallbacks:    c.keyFallbacks,
		WriteFailures:   c.writeFailures,
		VerifyPassed:    c.verifyPassed,
		VerifyFailed:    c.verifyFailed,
		PresenceProbes:  c.presenceProbes,
		TagsDetected:    c.tagsDetected,
		DetectionErrors: c.detectionErrors,
		ScansDetected:   c.scansDetected,
		ScansDropped:    c.scansDropped,
		ScansResolved:   c.scansResolved,
		Mode:            c.mode,
		DevicePath:      c.devicePath,
	}
}
