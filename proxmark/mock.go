package proxmark

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/filaform/filatag/metrics"
)

// DefaultMockDelay is the artificial per-command delay in simulated
// mode, so callers exercise the same timeout and scheduling paths as
// real hardware.
const DefaultMockDelay = 200 * time.Millisecond

// MockStore holds last-written block payloads for process lifetime.
// Reads of unwritten blocks return a deterministic filler pattern
// derived from the block number, so they are stable rather than zero.
type MockStore struct {
	mu     sync.Mutex
	blocks map[int]string
}

// NewMockStore creates an empty mock hardware store.
func NewMockStore() *MockStore {
	return &MockStore{blocks: make(map[int]string)}
}

// Write records the hex payload for a block.
func (s *MockStore) Write(block int, hexData string) {
	s.mu.Lock()
	s.blocks[block] = strings.ToUpper(hexData)
	s.mu.Unlock()
}

// Read returns the stored payload for a block, or the filler pattern
// if the block was never written.
func (s *MockStore) Read(block int) string {
	s.mu.Lock()
	data, ok := s.blocks[block]
	s.mu.Unlock()
	if ok {
		return data
	}
	return FillerPattern(block)
}

// Reset clears all stored blocks.
func (s *MockStore) Reset() {
	s.mu.Lock()
	s.blocks = make(map[int]string)
	s.mu.Unlock()
}

// FillerPattern is the deterministic payload reads return for blocks
// that were never written: the block number byte repeated 16 times.
func FillerPattern(block int) string {
	return strings.Repeat(fmt.Sprintf("%02X", block), 16)
}

// MockRunner emulates the hardware CLI against a MockStore, giving
// consistent read-after-write behavior in simulated mode.
type MockRunner struct {
	store     *MockStore
	delay     time.Duration
	collector *metrics.Collector
}

// NewMockRunner creates a mock runner with the default command delay.
func NewMockRunner(store *MockStore) *MockRunner {
	return &MockRunner{store: store, delay: DefaultMockDelay}
}

// WithDelay overrides the artificial per-command delay. Zero disables it.
func (r *MockRunner) WithDelay(d time.Duration) *MockRunner {
	r.delay = d
	return r
}

// WithCollector attaches a metrics collector.
func (r *MockRunner) WithCollector(c *metrics.Collector) *MockRunner {
	r.collector = c
	return r
}

// Store returns the backing mock store.
func (r *MockRunner) Store() *MockStore {
	return r.store
}

// Execute recognizes the four command shapes (status query, presence
// query, block write, block read) by text pattern and answers from the
// store. Unrecognized commands get a generic success response.
func (r *MockRunner) Execute(ctx context.Context, command string, timeout time.Duration, devicePath string) *CommandResult {
	r.collector.IncCommandExecuted()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if r.delay > timeout {
		r.collector.IncCommandTimeout()
		return &CommandResult{
			Success:    false,
			ErrorText:  fmt.Sprintf("command timed out after %s", timeout),
			ReturnCode: -1,
		}
	}
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return &CommandResult{
				Success:    false,
				ErrorText:  ctx.Err().Error(),
				ReturnCode: -1,
			}
		case <-time.After(r.delay):
		}
	}

	switch {
	case strings.Contains(command, CmdStatus):
		return ok("Proxmark3 RFID instrument\nFirmware............ Iceman/master/v4.18994")

	case strings.Contains(command, CmdCardInfo):
		return ok("UID: 12 34 56 78\nATQA: 00 04\nSAK: 08\nType: MIFARE Classic 1K")

	case strings.Contains(command, "hf mf wrbl"):
		block, hexData, err := parseWriteCommand(command)
		if err != nil {
			return &CommandResult{Success: false, ErrorText: err.Error(), ReturnCode: 1}
		}
		r.store.Write(block, hexData)
		return ok("Block written successfully")

	case strings.Contains(command, "hf mf rdbl"):
		block, err := parseReadCommand(command)
		if err != nil {
			return &CommandResult{Success: false, ErrorText: err.Error(), ReturnCode: 1}
		}
		return ok("Block data: " + spacedHex(r.store.Read(block)))

	default:
		return ok("Mock response for: " + command)
	}
}

// Simulated reports true.
func (r *MockRunner) Simulated() bool { return true }

func ok(output string) *CommandResult {
	return &CommandResult{Success: true, Output: output, ReturnCode: 0}
}

// parseWriteCommand parses "hf mf wrbl <block> A <key> <data>".
func parseWriteCommand(command string) (int, string, error) {
	parts := strings.Fields(command)
	if len(parts) < 7 {
		return 0, "", fmt.Errorf("malformed write command: %q", command)
	}
	block, err := strconv.Atoi(parts[3])
	if err != nil {
		return 0, "", fmt.Errorf("malformed block number: %q", parts[3])
	}
	return block, parts[6], nil
}

// parseReadCommand parses "hf mf rdbl <block> A <key>".
func parseReadCommand(command string) (int, error) {
	parts := strings.Fields(command)
	if len(parts) < 4 {
		return 0, fmt.Errorf("malformed read command: %q", command)
	}
	block, err := strconv.Atoi(parts[3])
	if err != nil {
		return 0, fmt.Errorf("malformed block number: %q", parts[3])
	}
	return block, nil
}

// spacedHex formats compact hex as space-separated byte pairs, the way
// the real CLI prints block data.
func spacedHex(compact string) string {
	var b strings.Builder
	for i := 0; i < len(compact); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 2
		if end > len(compact) {
			end = len(compact)
		}
		b.WriteString(compact[i:end])
	}
	return strings.ToUpper(b.String())
}

// Verify MockRunner implements the Runner interface.
var _ Runner = (*MockRunner)(nil)
