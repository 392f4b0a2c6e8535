package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/filaform/filatag/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// VersionCommand returns the version command. It never touches the
// device or the config file.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Emit version as JSON"},
		},
		Action: func(c *cli.Context) error {
			resp := VersionResponse{Version: types.Version, Commit: commit}
			if c.Bool("json") {
				return json.NewEncoder(os.Stdout).Encode(resp)
			}
			fmt.Printf("filatag %s", resp.Version)
			if resp.Commit != "" {
				fmt.Printf(" (%s)", resp.Commit)
			}
			fmt.Println()
			return nil
		},
	}
}
