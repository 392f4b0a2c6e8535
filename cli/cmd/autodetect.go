package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/filaform/filatag/barcode"
	"github.com/filaform/filatag/cli/tui"
	"github.com/filaform/filatag/detect"
	"github.com/filaform/filatag/types"
)

// skuScanTimeout bounds how long autodetect waits for a barcode scan
// to select the SKU before giving up.
const skuScanTimeout = 60 * time.Second

// AutodetectCommand runs the hands-free detection loop until both tags
// of a spool are programmed.
func AutodetectCommand() *cli.Command {
	return &cli.Command{
		Name:  "autodetect",
		Usage: "Poll for tags and program them as they appear",
		Flags: append(CommonFlags(),
			&cli.StringFlag{
				Name:  "sku",
				Usage: "Filament SKU to program (scanned from a barcode when omitted)",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Session identifier (generated when omitted)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Show the live terminal dashboard instead of event lines",
			},
		),
		Action: runAutodetect,
	}
}

func runAutodetect(c *cli.Context) error {
	env, err := BuildEnv(c)
	if err != nil {
		return err
	}

	sku := c.String("sku")
	if sku == "" {
		sku, err = scanSKU(c, env)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "selected SKU %s from barcode\n", sku)
	}

	events := detect.NewBroadcaster(env.Logger)
	detector := detect.NewDetector(env.Runner, env.Programmer, env.Catalog, events, env.Logger, detect.Config{
		Interval:     env.Cfg.Detection.Interval.Duration,
		Cooldown:     env.Cfg.Detection.Cooldown.Duration,
		ProbeTimeout: env.Cfg.Detection.ProbeTimeout.Duration,
		StrictVerify: env.Cfg.StrictVerification,
	}).WithAudit(env.Audit).WithCollector(env.Collector)

	pub, err := BuildAdapter(env.Cfg)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
		events.SubscribeAll(func(e *types.EventEnvelope) {
			if err := pub.Publish(context.Background(), e); err != nil {
				env.Logger.Warn("adapter publish failed", map[string]any{
					"event": string(e.Type),
					"error": err.Error(),
				})
			}
		})
	}

	if c.Bool("watch") {
		return tui.RunWatch(c.Context, detector, sku, c.String("session"))
	}

	finished := make(chan struct{})
	events.SubscribeAll(func(e *types.EventEnvelope) {
		printEvent(e)
		if e.Type == types.EventSessionComplete {
			close(finished)
		}
	})

	if err := detector.Start(c.Context, sku, c.String("session")); err != nil {
		return fmt.Errorf("start detection: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-finished:
	case sig := <-sigCh:
		fmt.Fprintf(os.Stderr, "received %s, stopping\n", sig)
	case <-c.Context.Done():
	}

	// Stop is idempotent and safe after the loop has already finished.
	detector.Stop()

	status := detector.Status()
	if status.State == types.StateError {
		return cli.Exit("detection ended in error", 1)
	}
	return nil
}

// scanSKU selects the SKU by reading a retail barcode from the camera
// and resolving it through the barcode map.
func scanSKU(c *cli.Context, env *Env) (string, error) {
	if !env.Cfg.SimulatedMode {
		return "", fmt.Errorf("no camera backend available, pass --sku")
	}

	bcMap, err := barcode.LoadMap(env.Cfg.Storage.BarcodeMapFile)
	if err != nil {
		return "", fmt.Errorf("load barcode map: %w", err)
	}

	sim := barcode.NewSimulated(demoScanScript(bcMap)...)
	scanner := barcode.NewScanner(sim, sim, env.Logger).
		WithCooldown(env.Cfg.Camera.ScanCooldown.Duration).
		WithCollector(env.Collector)
	if !scanner.Initialize(env.Cfg.Camera.DeviceIndex) {
		return "", fmt.Errorf("camera initialization failed")
	}
	scanner.Start()
	defer scanner.Close()

	fmt.Fprintln(os.Stderr, "scan a spool barcode to select the SKU...")

	deadline := time.Now().Add(skuScanTimeout)
	for time.Now().Before(deadline) {
		if scan := scanner.GetLatestScan(); scan != nil {
			if sku, ok := bcMap.Resolve(scan.Value); ok {
				env.Collector.IncScanResolved()
				return sku, nil
			}
			fmt.Fprintf(os.Stderr, "unmapped barcode %s, keep scanning\n", scan.Value)
		}
		select {
		case <-c.Context.Done():
			return "", c.Context.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return "", fmt.Errorf("no barcode scanned within %s", skuScanTimeout)
}

func printEvent(e *types.EventEnvelope) {
	line := fmt.Sprintf("[%s] #%d %s", e.Ts, e.Seq, e.Type)
	if e.TagOrdinal != 0 {
		line += fmt.Sprintf(" tag=%d", e.TagOrdinal)
	}
	if e.Fingerprint != "" {
		line += fmt.Sprintf(" fingerprint=%s", e.Fingerprint)
	}
	if e.ErrorText != "" {
		line += fmt.Sprintf(" error=%q", e.ErrorText)
	}
	fmt.Println(line)
}
