package types

import "time"

// Session is a snapshot of a two-tag programming session.
// The session manager returns copies; callers never observe live mutation.
type Session struct {
	ID       string `json:"id"`
	SKU      string `json:"sku"`
	SpoolID  string `json:"spool_id"`
	Operator string `json:"operator,omitempty"`

	Tag1Status TagStatus `json:"tag1_status"`
	Tag2Status TagStatus `json:"tag2_status"`

	// Tag fingerprints are SHA-256 hex digests of the programmed image,
	// set once the corresponding tag has been written.
	Tag1Fingerprint string `json:"tag1_fingerprint,omitempty"`
	Tag2Fingerprint string `json:"tag2_fingerprint,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	RetriesUsed int `json:"retries_used"`
}

// TagStatusFor returns the status of the given tag ordinal (1 or 2).
// Unknown ordinals report TagError.
func (s *Session) TagStatusFor(ordinal int) TagStatus {
	switch ordinal {
	case 1:
		return s.Tag1Status
	case 2:
		return s.Tag2Status
	default:
		return TagError
	}
}

// Complete returns true once both tags have reached a terminal status.
func (s *Session) Complete() bool {
	return s.Tag1Status.IsTerminal() && s.Tag2Status.IsTerminal()
}
