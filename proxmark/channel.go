// Package proxmark implements the hardware command channel for the
// Proxmark3 RFID instrument.
//
// Commands are free text passed to the pm3 CLI. In simulated mode the
// channel is backed by an in-process mock store instead of a spawned
// process; both paths return a CommandResult and never fail with an
// unhandled fault.
package proxmark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/filaform/filatag/metrics"
)

// DefaultTimeout is the default per-command timeout.
const DefaultTimeout = 30 * time.Second

// CommandResult is the outcome of one hardware command invocation.
type CommandResult struct {
	// Success is true when the command completed with exit code 0.
	Success bool
	// Output is the captured stdout text.
	Output string
	// ErrorText is the captured stderr text, or a channel-level failure
	// description (timeout, spawn fault).
	ErrorText string
	// ReturnCode is the process exit code, or -1 for channel-level failures.
	ReturnCode int
}

// Runner executes hardware commands. Implementations must convert every
// failure mode into a CommandResult; Execute never returns an error.
type Runner interface {
	// Execute runs a command with the given timeout. devicePath
	// overrides the configured device when non-empty.
	Execute(ctx context.Context, command string, timeout time.Duration, devicePath string) *CommandResult

	// Simulated reports whether this runner is backed by the mock store.
	Simulated() bool
}

// CLIRunner spawns the pm3 binary for each command.
type CLIRunner struct {
	// Binary is the pm3 executable name or path (default "pm3").
	Binary string
	// DevicePath is the default device, used when Execute receives none.
	DevicePath string

	collector *metrics.Collector
}

// NewCLIRunner creates a runner spawning the pm3 CLI against the given device.
func NewCLIRunner(devicePath string) *CLIRunner {
	return &CLIRunner{Binary: "pm3", DevicePath: devicePath}
}

// WithCollector attaches a metrics collector.
func (r *CLIRunner) WithCollector(c *metrics.Collector) *CLIRunner {
	r.collector = c
	return r
}

// Execute spawns the pm3 CLI with the command, captures stdout/stderr,
// and enforces the timeout. Timeouts and spawn faults are converted to
// failure results with ReturnCode -1.
func (r *CLIRunner) Execute(ctx context.Context, command string, timeout time.Duration, devicePath string) *CommandResult {
	r.collector.IncCommandExecuted()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	device := devicePath
	if device == "" {
		device = r.DevicePath
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-c", command}
	if device != "" {
		args = append(args, "-p", device)
	}

	binary := r.Binary
	if binary == "" {
		binary = "pm3"
	}
	cmd := exec.CommandContext(cmdCtx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if cmdCtx.Err() == context.DeadlineExceeded {
		r.collector.IncCommandTimeout()
		return &CommandResult{
			Success:    false,
			ErrorText:  fmt.Sprintf("command timed out after %s", timeout),
			ReturnCode: -1,
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CommandResult{
				Success:    false,
				Output:     stdout.String(),
				ErrorText:  stderr.String(),
				ReturnCode: exitErr.ExitCode(),
			}
		}
		// Spawn fault (binary missing, permission denied, ...)
		return &CommandResult{
			Success:    false,
			ErrorText:  err.Error(),
			ReturnCode: -1,
		}
	}

	return &CommandResult{
		Success:    true,
		Output:     stdout.String(),
		ErrorText:  stderr.String(),
		ReturnCode: 0,
	}
}

// Simulated reports false: this runner talks to real hardware.
func (r *CLIRunner) Simulated() bool { return false }

// Verify CLIRunner implements the Runner interface.
var _ Runner = (*CLIRunner)(nil)
