// Package mifare implements MIFARE Classic 1K block programming and
// fingerprint verification on top of the proxmark command channel.
//
// This file defines sentinel errors and an error wrapper for classifying
// programming failures. These enable callers to use errors.Is/errors.As
// for typed assertions rather than string matching.
package mifare

import (
	"errors"
	"fmt"
)

// Sentinel errors for programming failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrHardware indicates a hardware communication failure
	// (command timeout, spawn fault, malformed response). Recoverable
	// via retry or key fallback.
	ErrHardware = errors.New("hardware communication error")

	// ErrCardType indicates the present transponder is not a
	// MIFARE Classic 1K. Fatal per attempt, not per process.
	ErrCardType = errors.New("card is not MIFARE Classic 1K")

	// ErrImageSize indicates the tag image is not exactly 1024 bytes.
	ErrImageSize = errors.New("invalid image size")

	// ErrKeyExhausted indicates every candidate key failed for a block.
	// Fatal per tag; blocks already written are not rolled back.
	ErrKeyExhausted = errors.New("all keys exhausted")

	// ErrVerifyMismatch indicates the read-back fingerprint did not
	// match the expected fingerprint. Reported as FAIL, distinct from
	// an unexpected fault.
	ErrVerifyMismatch = errors.New("fingerprint mismatch")
)

// NoBlock marks a TagError that is not tied to a specific block.
const NoBlock = -1

// TagError wraps an underlying error with programming classification.
// It preserves the original error in the chain for inspection via errors.As.
type TagError struct {
	// Kind is the sentinel error for classification (e.g., ErrKeyExhausted).
	Kind error
	// Op is the operation that failed (e.g., "write", "read", "probe").
	Op string
	// Block is the absolute block number involved, or NoBlock.
	Block int
	// Err is the underlying error, if any.
	Err error
}

func (e *TagError) Error() string {
	if e.Block != NoBlock {
		if e.Err != nil {
			return fmt.Sprintf("%s block %d: %v: %v", e.Op, e.Block, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s block %d: %v", e.Op, e.Block, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *TagError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *TagError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewTagError creates a classified programming error.
func NewTagError(kind error, op string, block int, err error) *TagError {
	return &TagError{Kind: kind, Op: op, Block: block, Err: err}
}

// FailedBlock extracts the failing block number from an error chain.
// Returns NoBlock, false when the error carries no block context.
func FailedBlock(err error) (int, bool) {
	var tagErr *TagError
	if errors.As(err, &tagErr) && tagErr.Block != NoBlock {
		return tagErr.Block, true
	}
	return NoBlock, false
}
