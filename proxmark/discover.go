package proxmark

import (
	"context"
	"os"
	"time"
)

// DefaultCandidatePaths is the ordered device path probe list.
var DefaultCandidatePaths = []string{
	"/dev/ttyACM0",
	"/dev/ttyACM1",
	"/dev/ttyUSB0",
	"/dev/ttyUSB1",
}

// probeTimeout bounds each per-path status query during discovery.
const probeTimeout = 5 * time.Second

// Discover probes the candidate paths in order, issuing a status query
// against each until a response contains the product banner. Returns
// the first matching path, or "" and false when no device answers.
//
// In simulated mode the first candidate is returned without probing.
func Discover(ctx context.Context, r Runner, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		candidates = DefaultCandidatePaths
	}
	if r.Simulated() {
		return candidates[0], true
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		result := r.Execute(ctx, CmdStatus, probeTimeout, path)
		if result.Success && HasBanner(result.Output) {
			return path, true
		}
	}
	return "", false
}
