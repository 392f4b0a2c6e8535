package mifare

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/filaform/filatag/log"
	"github.com/filaform/filatag/metrics"
	"github.com/filaform/filatag/proxmark"
)

// DefaultKeys is the default ordered candidate key list. The first key
// that authenticates wins per block.
var DefaultKeys = []string{"FFFFFFFFFFFF", "000000000000"}

// simulatedVerifyDelay approximates real verification time in
// simulated mode.
const simulatedVerifyDelay = time.Second

// Programmer writes tag images block by block and verifies them by
// fingerprint. All hardware access goes through a single Runner; the
// caller is responsible for single-flight discipline on the channel.
type Programmer struct {
	runner    proxmark.Runner
	logger    *log.Logger
	collector *metrics.Collector

	cmdTimeout  time.Duration
	verifyDelay time.Duration
}

// NewProgrammer creates a programmer on the given command channel.
// collector may be nil.
func NewProgrammer(runner proxmark.Runner, logger *log.Logger, collector *metrics.Collector) *Programmer {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Programmer{
		runner:      runner,
		logger:      logger,
		collector:   collector,
		cmdTimeout:  proxmark.DefaultTimeout,
		verifyDelay: simulatedVerifyDelay,
	}
}

// WithCommandTimeout overrides the per-command timeout.
func (p *Programmer) WithCommandTimeout(d time.Duration) *Programmer {
	p.cmdTimeout = d
	return p
}

// WithSimulatedVerifyDelay overrides the artificial delay simulated
// verification sleeps before returning.
func (p *Programmer) WithSimulatedVerifyDelay(d time.Duration) *Programmer {
	p.verifyDelay = d
	return p
}

// ProbeCardType checks that the present transponder is a MIFARE
// Classic 1K. Returns ErrHardware when the probe itself fails and
// ErrCardType when a different card answers.
func (p *Programmer) ProbeCardType(ctx context.Context) error {
	result := p.runner.Execute(ctx, proxmark.CmdCardInfo, p.cmdTimeout, "")
	if !result.Success {
		return NewTagError(ErrHardware, "probe", NoBlock, errors.New(result.ErrorText))
	}
	if !proxmark.IsMifareClassic1K(result.Output) {
		return NewTagError(ErrCardType, "probe", NoBlock, nil)
	}
	return nil
}

// ProgramTag writes the image to the present tag and returns its
// fingerprint. The manufacturer block and sector trailers are never
// written; each of the remaining 47 blocks is tried with every
// candidate key in order until one write succeeds. Exhausting all keys
// for a block aborts the whole operation with ErrKeyExhausted naming
// that block. Blocks already written are not rolled back.
func (p *Programmer) ProgramTag(ctx context.Context, data []byte, keys []string) (string, error) {
	if err := p.ProbeCardType(ctx); err != nil {
		return "", err
	}

	img, err := NewImage(data)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		keys = DefaultKeys
	}

	fingerprint := img.Fingerprint()
	p.logger.Info("programming tag", map[string]any{
		"fingerprint": fingerprint,
		"keys":        len(keys),
	})

	for block := 0; block < BlockCount; block++ {
		if !IsWritable(block) {
			continue
		}
		if err := p.writeBlock(ctx, img, block, keys); err != nil {
			p.collector.IncWriteFailure()
			p.logger.Error("block write failed", map[string]any{
				"block": block,
				"error": err.Error(),
			})
			return "", err
		}
		p.collector.IncBlockWritten()
	}

	p.collector.IncTagProgrammed()
	return fingerprint, nil
}

// writeBlock tries each candidate key in declared order until one
// write succeeds. First success wins; no partial credit for a block.
func (p *Programmer) writeBlock(ctx context.Context, img Image, block int, keys []string) error {
	hexData := img.BlockHex(block)
	for i, key := range keys {
		cmd := proxmark.WriteBlockCommand(block, key, hexData)
		result := p.runner.Execute(ctx, cmd, p.cmdTimeout, "")
		if result.Success {
			return nil
		}
		if i < len(keys)-1 {
			p.collector.IncKeyFallback()
		}
	}
	return NewTagError(ErrKeyExhausted, "write", block,
		fmt.Errorf("%d keys tried", len(keys)))
}

// VerifyTag reads the tag back and compares its fingerprint against
// expected. Returns (true, nil) on PASS, (false, nil) on a fingerprint
// mismatch, and (false, err) on a read failure.
//
// In simulated mode verification always passes after an artificial
// delay; corruption detection is a real-mode-only guarantee.
func (p *Programmer) VerifyTag(ctx context.Context, expected string, keys []string) (bool, error) {
	if p.runner.Simulated() {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(p.verifyDelay):
		}
		p.collector.IncVerifyPassed()
		return true, nil
	}

	if len(keys) == 0 {
		keys = DefaultKeys
	}

	// Read every non-trailer block. Unlike writing, the manufacturer
	// block is included here.
	buf := make([]byte, ImageSize)
	for block := 0; block < BlockCount; block++ {
		if !IsReadable(block) {
			continue
		}
		payload, err := p.readBlock(ctx, block, keys)
		if err != nil {
			p.collector.IncVerifyFailed()
			return false, err
		}
		copy(buf[BlockOffset(block):], payload)
	}

	sum := sha256.Sum256(buf)
	if hex.EncodeToString(sum[:]) != expected {
		p.collector.IncVerifyFailed()
		return false, nil
	}
	p.collector.IncVerifyPassed()
	return true, nil
}

// readBlock tries each candidate key until a read returns a
// well-formed payload. A malformed response (not exactly 32 hex chars)
// counts as a failed key attempt.
func (p *Programmer) readBlock(ctx context.Context, block int, keys []string) ([]byte, error) {
	for i, key := range keys {
		cmd := proxmark.ReadBlockCommand(block, key)
		result := p.runner.Execute(ctx, cmd, p.cmdTimeout, "")
		if result.Success {
			if compact, valid := proxmark.ParseBlockData(result.Output); valid {
				payload, err := hex.DecodeString(compact)
				if err == nil {
					return payload, nil
				}
			}
		}
		if i < len(keys)-1 {
			p.collector.IncKeyFallback()
		}
	}
	return nil, NewTagError(ErrKeyExhausted, "read", block,
		fmt.Errorf("%d keys tried", len(keys)))
}
