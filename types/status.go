package types

// TagStatus represents the programming status of one tag in a session.
type TagStatus string

// Tag status constants. A tag starts PENDING and ends in one of
// PASS, FAIL, or ERROR.
const (
	TagPending   TagStatus = "pending"
	TagWriting   TagStatus = "writing"
	TagVerifying TagStatus = "verifying"
	TagPass      TagStatus = "pass"
	TagFail      TagStatus = "fail"
	TagError     TagStatus = "error"
)

// IsTerminal returns true if the status is a terminal state.
func (s TagStatus) IsTerminal() bool {
	return s == TagPass || s == TagFail || s == TagError
}

// DetectionState represents the auto-detection state machine state.
type DetectionState string

// Detection state constants.
const (
	StateIdle        DetectionState = "idle"
	StateScanning    DetectionState = "scanning"
	StateTagDetected DetectionState = "tag_detected"
	StateProgramming DetectionState = "programming"
	StateVerifying   DetectionState = "verifying"
	StateComplete    DetectionState = "complete"
	StateError       DetectionState = "error"
)
