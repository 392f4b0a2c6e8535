package types

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// EventType represents the type of a detection event.
type EventType string

// Event type constants. These are the named events emitted by the
// auto-detection engine over a session's lifetime.
const (
	EventDetectionStarted      EventType = "detection_started"
	EventDetectionStopped      EventType = "detection_stopped"
	EventTagDetected           EventType = "tag_detected"
	EventProgrammingStarted    EventType = "programming_started"
	EventProgrammingCompleted  EventType = "programming_completed"
	EventVerificationStarted   EventType = "verification_started"
	EventVerificationCompleted EventType = "verification_completed"
	EventReadyForNextTag       EventType = "ready_for_next_tag"
	EventSessionComplete       EventType = "session_complete"
	EventProgrammingError      EventType = "programming_error"
	EventDetectionError        EventType = "detection_error"
)

// IsTerminal returns true if this event type ends a detection session.
func (e EventType) IsTerminal() bool {
	return e == EventSessionComplete || e == EventDetectionStopped
}

// EventEnvelope is the envelope for all detection events.
// Fields carry both msgpack tags (redis wire format) and json tags
// (webhook wire format).
type EventEnvelope struct {
	// EventID is a unique identifier for this event, scoped to the session.
	EventID string `msgpack:"event_id" json:"event_id"`
	// Seq is the monotonic sequence number, starts at 1.
	Seq int64 `msgpack:"seq" json:"seq"`
	// Type is the event type discriminator.
	Type EventType `msgpack:"type" json:"type"`
	// Ts is the event timestamp in ISO 8601 UTC format.
	Ts string `msgpack:"ts" json:"ts"`
	// SessionID is the programming session identifier, when known.
	SessionID string `msgpack:"session_id,omitempty" json:"session_id,omitempty"`
	// SKU is the selected filament SKU, when known.
	SKU string `msgpack:"sku,omitempty" json:"sku,omitempty"`
	// TagOrdinal is which of the two spool tags the event concerns (1 or 2).
	TagOrdinal int `msgpack:"tag_ordinal,omitempty" json:"tag_ordinal,omitempty"`
	// Fingerprint is the SHA-256 hex digest of the programmed image, when known.
	Fingerprint string `msgpack:"fingerprint,omitempty" json:"fingerprint,omitempty"`
	// ErrorText is the error description for error events.
	ErrorText string `msgpack:"error_text,omitempty" json:"error_text,omitempty"`
}

// Timestamp formats t as the envelope timestamp string.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// EncodeEnvelope encodes the envelope in the msgpack wire format.
func EncodeEnvelope(e *EventEnvelope) ([]byte, error) {
	return msgpack.Marshal(e)
}

// DecodeEnvelope decodes a msgpack-encoded envelope.
func DecodeEnvelope(data []byte) (*EventEnvelope, error) {
	var e EventEnvelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
