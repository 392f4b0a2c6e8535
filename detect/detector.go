// Package detect implements the auto-detection engine: a presence
// polling state machine that programs both spool tags without operator
// button presses.
//
// State transitions:
//
//	IDLE --Start--> SCANNING --presence--> TAG_DETECTED --> PROGRAMMING --(strict)--> VERIFYING
//	  success, tag 1 --> SCANNING (ordinal 2)
//	  success, tag 2 --> COMPLETE
//	  failure        --> ERROR
//	any state --Stop--> IDLE
//
// Within one tick, presence-check, programming, and verification run
// strictly sequentially; no concurrent second detection can start. The
// minimum polling interval and post-action cooldown are the only
// backpressure, deliberately giving the operator time to swap tags.
package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/filaform/filatag/auditlog"
	"github.com/filaform/filatag/catalog"
	"github.com/filaform/filatag/log"
	"github.com/filaform/filatag/metrics"
	"github.com/filaform/filatag/mifare"
	"github.com/filaform/filatag/proxmark"
	"github.com/filaform/filatag/types"
)

// ErrAlreadyScanning indicates Start was called while a detection
// session is running.
var ErrAlreadyScanning = errors.New("auto-detection already running")

// Default loop timing.
const (
	// DefaultInterval is the minimum spacing between presence probes.
	DefaultInterval = time.Second
	// DefaultCooldown is the pause after a programming action before
	// the next probe.
	DefaultCooldown = 2 * time.Second
	// DefaultErrorBackoff is the extra pause after a tick fault.
	DefaultErrorBackoff = 2 * time.Second
	// DefaultProbeTimeout bounds the lightweight presence probe.
	DefaultProbeTimeout = 3 * time.Second

	// tickGranularity is how often the loop wakes to evaluate timing.
	tickGranularity = 500 * time.Millisecond
)

// Config holds detection loop tuning. Zero values take the defaults.
type Config struct {
	Interval     time.Duration
	Cooldown     time.Duration
	ErrorBackoff time.Duration
	ProbeTimeout time.Duration
	StrictVerify bool
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = DefaultErrorBackoff
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	return c
}

// Status is a pure snapshot of the detector.
type Status struct {
	State             types.DetectionState `json:"state"`
	Scanning          bool                 `json:"scanning"`
	SelectedSKU       string               `json:"selected_sku"`
	CurrentTagOrdinal int                  `json:"current_tag_ordinal"`
	SessionID         string               `json:"session_id"`
}

// Detector is the auto-detection engine. One instance drives one
// two-tag session at a time.
type Detector struct {
	mu sync.Mutex

	state       types.DetectionState
	scanning    bool
	selectedSKU string
	image       []byte
	keys        []string
	ordinal     int
	sessionID   string

	lastProbe  time.Time
	lastAction time.Time

	cancel context.CancelFunc
	done   chan struct{}

	runner     proxmark.Runner
	programmer *mifare.Programmer
	catalog    *catalog.Catalog
	events     *Broadcaster
	logger     *log.Logger
	audit      *auditlog.Store
	collector  *metrics.Collector

	cfg Config
}

// NewDetector creates an idle detector.
func NewDetector(runner proxmark.Runner, programmer *mifare.Programmer, cat *catalog.Catalog, events *Broadcaster, logger *log.Logger, cfg Config) *Detector {
	if logger == nil {
		logger = log.NewLogger()
	}
	if events == nil {
		events = NewBroadcaster(logger)
	}
	return &Detector{
		state:      types.StateIdle,
		ordinal:    1,
		runner:     runner,
		programmer: programmer,
		catalog:    cat,
		events:     events,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

// WithAudit attaches an audit log store.
func (d *Detector) WithAudit(audit *auditlog.Store) *Detector {
	d.audit = audit
	return d
}

// WithCollector attaches a metrics collector.
func (d *Detector) WithCollector(c *metrics.Collector) *Detector {
	d.collector = c
	return d
}

// Events returns the broadcaster for listener registration.
func (d *Detector) Events() *Broadcaster {
	return d.events
}

// Start begins auto-detection for the SKU. Rejects when already
// scanning or when the SKU's image is missing. An empty sessionID gets
// a generated one.
func (d *Detector) Start(ctx context.Context, sku, sessionID string) error {
	d.mu.Lock()
	if d.scanning {
		d.mu.Unlock()
		return ErrAlreadyScanning
	}
	d.mu.Unlock()

	filament, image, err := d.catalog.ResolveImage(ctx, sku)
	if err != nil {
		return err
	}
	if err := mifare.ValidateImage(image); err != nil {
		return err
	}
	if sessionID == "" {
		sessionID = fmt.Sprintf("auto-%d", time.Now().Unix())
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	d.mu.Lock()
	if d.scanning {
		d.mu.Unlock()
		cancel()
		return ErrAlreadyScanning
	}
	d.selectedSKU = sku
	d.image = image
	d.keys = filament.Keys
	d.sessionID = sessionID
	d.ordinal = 1
	d.scanning = true
	d.state = types.StateScanning
	d.lastProbe = time.Time{}
	d.lastAction = time.Time{}
	d.cancel = cancel
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	d.logger.Info("auto-detection started", map[string]any{
		"sku":        sku,
		"session_id": sessionID,
	})
	d.logAction("auto_session_started", sessionID, map[string]any{
		"sku":  sku,
		"mode": "auto_detection",
	})
	d.emit(types.EventDetectionStarted, 1, "", "")

	go d.loop(loopCtx, done)
	return nil
}

// Stop halts detection from any state and resets to IDLE. Idempotent;
// an in-flight hardware command completes before the stop takes effect.
// Stop blocks until the loop exits, so it must not be called from an
// event listener.
func (d *Detector) Stop() {
	d.mu.Lock()
	wasScanning := d.scanning || d.state != types.StateIdle
	cancel := d.cancel
	done := d.done
	d.scanning = false
	d.state = types.StateIdle
	d.cancel = nil
	d.done = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if wasScanning {
		d.logger.Info("auto-detection stopped", nil)
		d.emit(types.EventDetectionStopped, 0, "", "")
	}
}

// Status returns a pure snapshot read.
func (d *Detector) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		State:             d.state,
		Scanning:          d.scanning,
		SelectedSKU:       d.selectedSKU,
		CurrentTagOrdinal: d.ordinal,
		SessionID:         d.sessionID,
	}
}

// loop is the polling loop. Runs until the context is canceled or the
// second tag completes. Faults outside the programming sub-step are
// contained, set state=ERROR, and the loop continues after a longer
// backoff; faults inside it park the session in ERROR while the loop
// stays alive for manual intervention.
func (d *Detector) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(tickGranularity)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		finished, faulted := d.tick(ctx)
		if finished {
			return
		}
		if faulted {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.cfg.ErrorBackoff):
			}
		}
	}
}

// tick performs one loop iteration. Returns finished=true when the
// session completed and the loop should exit, faulted=true when an
// unexpected fault was contained.
func (d *Detector) tick(ctx context.Context) (finished, faulted bool) {
	defer func() {
		if r := recover(); r != nil {
			d.mu.Lock()
			d.state = types.StateError
			d.mu.Unlock()
			d.collector.IncDetectionError()
			d.logger.Error("detection tick fault", map[string]any{"panic": fmt.Sprint(r)})
			d.emit(types.EventDetectionError, 0, "", fmt.Sprint(r))
			faulted = true
		}
	}()

	d.mu.Lock()
	if !d.scanning || d.state != types.StateScanning {
		d.mu.Unlock()
		return false, false
	}
	now := time.Now()
	if now.Sub(d.lastProbe) < d.cfg.Interval || now.Sub(d.lastAction) < d.cfg.Cooldown {
		d.mu.Unlock()
		return false, false
	}
	d.lastProbe = now
	ordinal := d.ordinal
	d.mu.Unlock()

	if !d.probePresence(ctx) {
		return false, false
	}

	d.collector.IncTagDetected()
	d.logger.Info("tag detected", map[string]any{"tag_ordinal": ordinal})
	d.setState(types.StateTagDetected)
	d.emit(types.EventTagDetected, ordinal, "", "")

	// Programming and verification run synchronously within this tick;
	// no concurrent second detection can start.
	success := d.programDetectedTag(ctx, ordinal)

	d.mu.Lock()
	d.lastAction = time.Now()
	if success {
		if d.ordinal < 2 {
			d.ordinal = 2
			d.state = types.StateScanning
			d.mu.Unlock()
			d.emit(types.EventReadyForNextTag, 2, "", "")
			return false, false
		}
		d.state = types.StateComplete
		d.scanning = false
		sessionID := d.sessionID
		sku := d.selectedSKU
		d.mu.Unlock()
		d.logAction("auto_session_complete", sessionID, map[string]any{
			"sku": sku,
		})
		d.emit(types.EventSessionComplete, ordinal, "", "")
		return true, false
	}
	d.state = types.StateError
	d.mu.Unlock()
	d.emit(types.EventProgrammingError, ordinal, "", "programming failed")
	return false, false
}

// probePresence issues the lightweight presence probe, distinct from
// the full card-type check used mid-programming.
func (d *Detector) probePresence(ctx context.Context) bool {
	d.collector.IncPresenceProbe()
	result := d.runner.Execute(ctx, proxmark.CmdCardInfo, d.cfg.ProbeTimeout, "")
	return result.Success && proxmark.IndicatesPresence(result.Output)
}

// programDetectedTag drives PROGRAMMING and, in strict mode,
// VERIFYING for the tag on the antenna. Any fault is contained here;
// false parks the session.
func (d *Detector) programDetectedTag(ctx context.Context, ordinal int) (success bool) {
	defer func() {
		if r := recover(); r != nil {
			d.collector.IncDetectionError()
			d.logger.Error("programming fault", map[string]any{
				"tag_ordinal": ordinal,
				"panic":       fmt.Sprint(r),
			})
			success = false
		}
	}()

	d.setState(types.StateProgramming)
	d.emit(types.EventProgrammingStarted, ordinal, "", "")

	fingerprint, err := d.programmer.ProgramTag(ctx, d.image, d.keys)
	if err != nil {
		d.logger.Error("programming failed", map[string]any{
			"tag_ordinal": ordinal,
			"error":       err.Error(),
		})
		return false
	}

	d.emit(types.EventProgrammingCompleted, ordinal, fingerprint, "")

	if d.cfg.StrictVerify {
		d.setState(types.StateVerifying)
		d.emit(types.EventVerificationStarted, ordinal, fingerprint, "")

		verified, err := d.programmer.VerifyTag(ctx, fingerprint, d.keys)
		if err != nil || !verified {
			if err != nil {
				d.logger.Error("verification error", map[string]any{
					"tag_ordinal": ordinal,
					"error":       err.Error(),
				})
			} else {
				d.logger.Error("verification mismatch", map[string]any{
					"tag_ordinal": ordinal,
				})
			}
			return false
		}
		d.emit(types.EventVerificationCompleted, ordinal, fingerprint, "")
	}

	d.logAction("tag_auto_programmed", d.sessionID, map[string]any{
		"tag_ordinal": ordinal,
		"sku":         d.selectedSKU,
		"fingerprint": fingerprint,
	})
	return true
}

func (d *Detector) setState(state types.DetectionState) {
	d.mu.Lock()
	d.state = state
	d.mu.Unlock()
}

// emit publishes an event stamped with the current session context.
func (d *Detector) emit(event types.EventType, ordinal int, fingerprint, errText string) {
	d.mu.Lock()
	sessionID := d.sessionID
	sku := d.selectedSKU
	d.mu.Unlock()

	d.events.Emit(&types.EventEnvelope{
		Type:        event,
		SessionID:   sessionID,
		SKU:         sku,
		TagOrdinal:  ordinal,
		Fingerprint: fingerprint,
		ErrorText:   errText,
	})
}

// logAction appends to the audit log, best effort.
func (d *Detector) logAction(action, sessionID string, fields map[string]any) {
	if d.audit == nil {
		return
	}
	if err := d.audit.Append(action, sessionID, fields); err != nil {
		d.logger.Warn("audit append failed", map[string]any{"error": err.Error()})
	}
}
