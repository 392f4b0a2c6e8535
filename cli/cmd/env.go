// Package cmd provides CLI commands for the filatag binary.
package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/filaform/filatag/adapter"
	adapterredis "github.com/filaform/filatag/adapter/redis"
	adapterwebhook "github.com/filaform/filatag/adapter/webhook"
	"github.com/filaform/filatag/auditlog"
	"github.com/filaform/filatag/catalog"
	"github.com/filaform/filatag/cli/config"
	"github.com/filaform/filatag/log"
	"github.com/filaform/filatag/metrics"
	"github.com/filaform/filatag/mifare"
	"github.com/filaform/filatag/proxmark"
)

// DefaultConfigPath is where the CLI looks for its config file.
const DefaultConfigPath = "/etc/filatag/config.yaml"

// Shared flags.
var (
	// ConfigFlag selects the config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
		Value:   DefaultConfigPath,
	}

	// SimulatedFlag forces simulated mode regardless of config.
	SimulatedFlag = &cli.BoolFlag{
		Name:  "simulated",
		Usage: "Run against the mock hardware store instead of a Proxmark3",
	}

	// DeviceFlag overrides the configured device path.
	DeviceFlag = &cli.StringFlag{
		Name:  "device",
		Usage: "Proxmark3 device path (empty triggers discovery)",
	}
)

// CommonFlags returns the flags every hardware-touching command takes.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		SimulatedFlag,
		DeviceFlag,
	}
}

// Env holds the wired runtime pieces a command needs.
type Env struct {
	Cfg        *config.Config
	Logger     *log.Logger
	Runner     proxmark.Runner
	Programmer *mifare.Programmer
	Catalog    *catalog.Catalog
	Audit      *auditlog.Store
	Collector  *metrics.Collector
}

// BuildEnv loads configuration, applies flag overrides, and wires the
// command channel, engine, and catalog.
func BuildEnv(c *cli.Context) (*Env, error) {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.Bool("simulated") {
		cfg.SimulatedMode = true
	}
	if device := c.String("device"); device != "" {
		cfg.DevicePath = device
	}

	logger := log.NewLogger()

	mode := "real"
	if cfg.SimulatedMode {
		mode = "simulated"
	}
	collector := metrics.NewCollector(mode, cfg.DevicePath)

	var runner proxmark.Runner
	if cfg.SimulatedMode {
		runner = proxmark.NewMockRunner(proxmark.NewMockStore()).WithCollector(collector)
	} else {
		runner = proxmark.NewCLIRunner(cfg.DevicePath).WithCollector(collector)
	}

	store, err := buildStore(c.Context, cfg)
	if err != nil {
		return nil, err
	}

	return &Env{
		Cfg:        cfg,
		Logger:     logger,
		Runner:     runner,
		Programmer: mifare.NewProgrammer(runner, logger, collector),
		Catalog:    catalog.New(cfg.Storage.MappingFile, store),
		Audit:      auditlog.NewStore(cfg.Storage.AuditLogFile),
		Collector:  collector,
	}, nil
}

// buildStore creates the configured image store backend.
func buildStore(ctx context.Context, cfg *config.Config) (catalog.ImageStore, error) {
	switch cfg.Storage.Backend {
	case "", "fs":
		if err := catalog.SeedSampleImages(cfg.Storage.BinariesDir); err != nil {
			return nil, fmt.Errorf("seed sample images: %w", err)
		}
		return catalog.NewFSStore(cfg.Storage.BinariesDir), nil
	case "s3":
		return catalog.NewS3Store(ctx, catalog.S3Config{
			Bucket:       cfg.Storage.Bucket,
			Prefix:       cfg.Storage.Prefix,
			Region:       cfg.Storage.Region,
			Endpoint:     cfg.Storage.Endpoint,
			UsePathStyle: cfg.Storage.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// BuildAdapter creates the configured event adapter, or nil when none
// is configured.
func BuildAdapter(cfg *config.Config) (adapter.Adapter, error) {
	ac := cfg.Adapter
	retries := cfg.Retries
	if ac.Retries != nil {
		retries = *ac.Retries
	}

	switch ac.Type {
	case "":
		return nil, nil
	case "webhook":
		return adapterwebhook.New(adapterwebhook.Config{
			URL:     ac.URL,
			Headers: ac.Headers,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return adapterredis.New(adapterredis.Config{
			URL:     ac.URL,
			Channel: ac.Channel,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", ac.Type)
	}
}
