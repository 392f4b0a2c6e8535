package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/filaform/filatag/barcode"
	"github.com/filaform/filatag/types"
)

// ScanCommand exercises the barcode capture loop and prints scans as
// they resolve.
func ScanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Run the barcode scanner and print detected codes",
		Flags: append(CommonFlags(),
			&cli.DurationFlag{
				Name:  "for",
				Usage: "How long to keep scanning",
				Value: 30 * time.Second,
			},
		),
		Action: runScan,
	}
}

func runScan(c *cli.Context) error {
	env, err := BuildEnv(c)
	if err != nil {
		return err
	}
	if !env.Cfg.SimulatedMode {
		return cli.Exit("no camera backend available, run with --simulated", 1)
	}

	bcMap, err := barcode.LoadMap(env.Cfg.Storage.BarcodeMapFile)
	if err != nil {
		return fmt.Errorf("load barcode map: %w", err)
	}

	sim := barcode.NewSimulated(demoScanScript(bcMap)...)
	scanner := barcode.NewScanner(sim, sim, env.Logger).
		WithCooldown(env.Cfg.Camera.ScanCooldown.Duration).
		WithCollector(env.Collector)
	if !scanner.Initialize(env.Cfg.Camera.DeviceIndex) {
		return cli.Exit("camera initialization failed", 1)
	}
	scanner.Start()
	defer scanner.Close()

	fmt.Fprintln(os.Stderr, "scanning, present a barcode...")

	deadline := time.Now().Add(c.Duration("for"))
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		if scan := scanner.GetLatestScan(); scan != nil {
			sku, mapped := bcMap.Resolve(scan.Value)
			if mapped {
				fmt.Printf("%s  %s  -> %s\n", scan.Symbology, scan.Value, sku)
			} else {
				fmt.Printf("%s  %s  (unmapped)\n", scan.Symbology, scan.Value)
			}
		}
		select {
		case <-c.Context.Done():
			return c.Context.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// demoScanScript builds the scans the simulated camera plays back: the
// mapped barcodes in order plus one unmapped code. The leading empty
// entry pads for the test frame Initialize consumes without decoding.
func demoScanScript(bcMap *barcode.Map) []types.ScanResult {
	values := make([]string, 0, len(bcMap.All()))
	for v := range bcMap.All() {
		values = append(values, v)
	}
	sort.Strings(values)

	script := make([]types.ScanResult, 0, len(values)+2)
	script = append(script, types.ScanResult{})
	for _, v := range values {
		script = append(script, types.ScanResult{Value: v, Symbology: symbologyFor(v)})
	}
	return append(script, types.ScanResult{Value: "40170725", Symbology: types.SymbologyEAN8})
}

// symbologyFor guesses the retail symbology from the digit count.
func symbologyFor(value string) types.Symbology {
	switch len(value) {
	case 8:
		return types.SymbologyEAN8
	case 12:
		return types.SymbologyUPCA
	default:
		return types.SymbologyEAN13
	}
}
