package proxmark

import (
	"fmt"
	"strings"
)

// ProductBanner is the substring that identifies a Proxmark3 status
// response during device discovery.
const ProductBanner = "Proxmark3"

// Command text for the recognized protocol operations.
const (
	CmdStatus   = "hw status"
	CmdCardInfo = "hf 14a info"
)

// WriteBlockCommand builds the block write command for the given
// absolute block, key, and 32-char hex payload.
func WriteBlockCommand(block int, key, hexData string) string {
	return fmt.Sprintf("hf mf wrbl %d A %s %s", block, key, hexData)
}

// ReadBlockCommand builds the block read command for the given
// absolute block and key.
func ReadBlockCommand(block int, key string) string {
	return fmt.Sprintf("hf mf rdbl %d A %s", block, key)
}

// HasBanner returns true if the status output contains the product banner.
func HasBanner(output string) bool {
	return strings.Contains(output, ProductBanner)
}

// IsMifareClassic1K returns true if the card-info output identifies a
// MIFARE Classic 1K transponder.
func IsMifareClassic1K(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "mifare classic") &&
		(strings.Contains(lower, "1k") || strings.Contains(lower, "1024"))
}

// IndicatesPresence returns true if the card-info output indicates a
// MIFARE tag with a UID is on the antenna. This is the lightweight
// presence probe used by the auto-detection loop, distinct from the
// full card-type check.
func IndicatesPresence(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "mifare") &&
		(strings.Contains(lower, "classic") || strings.Contains(lower, "1k")) &&
		strings.Contains(lower, "uid:")
}

// ParseBlockData extracts the block payload from a read response.
// The response form is a line containing "Block data:" followed by
// space-separated hex byte pairs. Returns the compact uppercase hex
// string and true, or "" and false when the response is malformed
// (including payloads that are not exactly 32 hex chars).
func ParseBlockData(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "Block data:") {
			continue
		}
		hexPart := line[strings.LastIndex(line, ":")+1:]
		compact := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(hexPart), " ", ""))
		if len(compact) != 2*16 || !isHex(compact) {
			return "", false
		}
		return compact, true
	}
	return "", false
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'F':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
