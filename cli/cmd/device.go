package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/filaform/filatag/proxmark"
)

// statusTimeout bounds the hardware status probe.
const statusTimeout = 10 * time.Second

// DeviceCommand reports on the connected Proxmark3.
func DeviceCommand() *cli.Command {
	return &cli.Command{
		Name:  "device",
		Usage: "Inspect the Proxmark3 device",
		Subcommands: []*cli.Command{
			{
				Name:   "discover",
				Usage:  "Probe candidate serial ports for a Proxmark3",
				Flags:  CommonFlags(),
				Action: runDeviceDiscover,
			},
			{
				Name:   "status",
				Usage:  "Run a hardware status check against the device",
				Flags:  append(CommonFlags(), &cli.BoolFlag{Name: "json", Usage: "Emit status as JSON"}),
				Action: runDeviceStatus,
			},
		},
	}
}

func runDeviceDiscover(c *cli.Context) error {
	env, err := BuildEnv(c)
	if err != nil {
		return err
	}

	candidates := proxmark.DefaultCandidatePaths
	if env.Cfg.DevicePath != "" {
		candidates = append([]string{env.Cfg.DevicePath}, candidates...)
	}

	path, ok := proxmark.Discover(c.Context, env.Runner, candidates)
	if !ok {
		return cli.Exit("no Proxmark3 found on any candidate port", 1)
	}
	fmt.Println(path)
	return nil
}

type deviceStatus struct {
	Device    string `json:"device"`
	Simulated bool   `json:"simulated"`
	Reachable bool   `json:"reachable"`
	Output    string `json:"output,omitempty"`
}

func runDeviceStatus(c *cli.Context) error {
	env, err := BuildEnv(c)
	if err != nil {
		return err
	}

	result := env.Runner.Execute(c.Context, proxmark.CmdStatus, statusTimeout, env.Cfg.DevicePath)
	status := deviceStatus{
		Device:    env.Cfg.DevicePath,
		Simulated: env.Runner.Simulated(),
		Reachable: result.Success && proxmark.HasBanner(result.Output),
		Output:    result.Output,
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			return err
		}
	} else {
		fmt.Printf("Device:    %s\n", status.Device)
		fmt.Printf("Simulated: %t\n", status.Simulated)
		fmt.Printf("Reachable: %t\n", status.Reachable)
	}

	if !status.Reachable {
		return cli.Exit("device not reachable", 1)
	}
	return nil
}
