package config

import (
	"fmt"
	"time"

	"github.com/filaform/filatag/mifare"
	"github.com/filaform/filatag/proxmark"
)

// Config represents a filatag.yaml configuration file.
// All values are optional and act as defaults for CLI flags.
// CLI flags always override config values.
type Config struct {
	// SimulatedMode routes all hardware commands to the mock store.
	SimulatedMode bool `yaml:"simulated_mode"`
	// StrictVerification enables read-back verification after writing.
	StrictVerification bool `yaml:"strict_verification"`
	// DefaultKeys is the ordered candidate authentication key list.
	DefaultKeys []string `yaml:"default_keys"`
	// DevicePath is the Proxmark3 device path; empty triggers discovery.
	DevicePath string `yaml:"device_path"`
	// Retries is the retry budget adapters use when publishing.
	Retries int `yaml:"retries"`

	Detection DetectionConfig `yaml:"detection"`
	Camera    CameraConfig    `yaml:"camera"`
	Storage   StorageConfig   `yaml:"storage"`
	Adapter   AdapterConfig   `yaml:"adapter"`
}

// DetectionConfig holds auto-detection loop tuning.
type DetectionConfig struct {
	// Interval is the minimum spacing between presence probes.
	Interval Duration `yaml:"interval"`
	// Cooldown is the pause after programming before the next probe.
	Cooldown Duration `yaml:"cooldown"`
	// ProbeTimeout bounds the lightweight presence probe.
	ProbeTimeout Duration `yaml:"probe_timeout"`
}

// CameraConfig holds barcode capture settings.
type CameraConfig struct {
	// DeviceIndex is the capture device index.
	DeviceIndex int `yaml:"device_index"`
	// ScanCooldown is the minimum spacing between accepted scans.
	ScanCooldown Duration `yaml:"scan_cooldown"`
}

// StorageConfig holds catalog file locations.
type StorageConfig struct {
	// Backend is "fs" (default) or "s3".
	Backend string `yaml:"backend"`
	// BinariesDir is the local tag image directory (fs backend).
	BinariesDir string `yaml:"binaries_dir"`
	// MappingFile is the SKU mapping JSON file.
	MappingFile string `yaml:"mapping_file"`
	// BarcodeMapFile is the barcode-to-SKU JSON file.
	BarcodeMapFile string `yaml:"barcode_map_file"`
	// AuditLogFile is the JSONL action log path.
	AuditLogFile string `yaml:"audit_log_file"`

	// S3 backend settings.
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds event publication defaults.
type AdapterConfig struct {
	// Type is "webhook", "redis", or empty for none.
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns a config with the factory defaults.
func Default() *Config {
	return &Config{
		SimulatedMode:      false,
		StrictVerification: true,
		DefaultKeys:        append([]string(nil), mifare.DefaultKeys...),
		DevicePath:         proxmark.DefaultCandidatePaths[0],
		Retries:            3,
		Storage: StorageConfig{
			Backend:        "fs",
			BinariesDir:    "/opt/filatag/binaries",
			MappingFile:    "/etc/filatag/mapping.json",
			BarcodeMapFile: "/etc/filatag/barcode_mapping.json",
			AuditLogFile:   "/var/log/filatag/actions.log",
		},
	}
}

// Keys returns the configured key list, falling back to the engine
// defaults when empty.
func (c *Config) Keys() []string {
	if len(c.DefaultKeys) > 0 {
		return c.DefaultKeys
	}
	return mifare.DefaultKeys
}
