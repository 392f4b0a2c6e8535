package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/filaform/filatag/session"
	"github.com/filaform/filatag/types"
)

// sessionPollInterval is how often the program command re-reads the
// session while waiting for a tag to reach a terminal status.
const sessionPollInterval = 200 * time.Millisecond

// sessionWaitTimeout bounds how long the program command waits for a
// single tag to finish.
const sessionWaitTimeout = 2 * time.Minute

// ProgramCommand programs both tags of a spool interactively.
func ProgramCommand() *cli.Command {
	return &cli.Command{
		Name:      "program",
		Usage:     "Program a pair of spool tags for a filament SKU",
		ArgsUsage: "<sku>",
		Flags: append(CommonFlags(),
			&cli.StringFlag{
				Name:  "spool",
				Usage: "Spool identifier recorded on the session",
			},
			&cli.StringFlag{
				Name:  "operator",
				Usage: "Operator name recorded on the session",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the final session as JSON",
			},
			&cli.IntFlag{
				Name:  "tag",
				Usage: "Program only the given tag (1 or 2)",
			},
		),
		Action: runProgram,
	}
}

func runProgram(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: filatag program <sku>", 1)
	}
	sku := c.Args().First()

	env, err := BuildEnv(c)
	if err != nil {
		return err
	}

	mgr := session.NewManager(env.Catalog, env.Programmer, env.Logger, env.Cfg.StrictVerification).
		WithAudit(env.Audit).
		WithCollector(env.Collector)

	sess, err := mgr.StartSession(c.Context, sku, c.String("spool"), c.String("operator"))
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	ordinals := []int{1, 2}
	if only := c.Int("tag"); only != 0 {
		ordinals = []int{only}
	}

	for _, ordinal := range ordinals {
		if !c.Bool("json") {
			fmt.Printf("Place tag %d on the reader and press Enter...", ordinal)
			fmt.Scanln()
		}
		if err := mgr.ProgramTag(c.Context, sess.ID, ordinal); err != nil {
			return fmt.Errorf("program tag %d: %w", ordinal, err)
		}
		status, err := waitForTag(c, mgr, sess.ID, ordinal)
		if err != nil {
			return err
		}
		if !c.Bool("json") {
			fmt.Printf("Tag %d: %s\n", ordinal, status)
		}
		if status != types.TagPass {
			break
		}
	}

	final, err := mgr.GetSession(sess.ID)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(final); err != nil {
			return err
		}
	} else {
		printSession(final)
	}

	if final.Tag1Status != types.TagPass || final.Tag2Status != types.TagPass {
		if len(ordinals) == 2 {
			return cli.Exit("session did not pass", 1)
		}
	}
	return nil
}

// waitForTag polls the session until the tag reaches a terminal status.
func waitForTag(c *cli.Context, mgr *session.Manager, sessionID string, ordinal int) (types.TagStatus, error) {
	deadline := time.Now().Add(sessionWaitTimeout)
	ticker := time.NewTicker(sessionPollInterval)
	defer ticker.Stop()

	for {
		sess, err := mgr.GetSession(sessionID)
		if err != nil {
			return types.TagError, err
		}
		status := sess.TagStatusFor(ordinal)
		if status.IsTerminal() {
			return status, nil
		}
		if time.Now().After(deadline) {
			return types.TagError, fmt.Errorf("timed out waiting for tag %d", ordinal)
		}
		select {
		case <-c.Context.Done():
			return types.TagError, c.Context.Err()
		case <-ticker.C:
		}
	}
}

func printSession(sess *types.Session) {
	fmt.Printf("Session:  %s\n", sess.ID)
	fmt.Printf("SKU:      %s\n", sess.SKU)
	if sess.SpoolID != "" {
		fmt.Printf("Spool:    %s\n", sess.SpoolID)
	}
	fmt.Printf("Tag 1:    %s", sess.Tag1Status)
	if sess.Tag1Fingerprint != "" {
		fmt.Printf("  %s", sess.Tag1Fingerprint)
	}
	fmt.Println()
	fmt.Printf("Tag 2:    %s", sess.Tag2Status)
	if sess.Tag2Fingerprint != "" {
		fmt.Printf("  %s", sess.Tag2Fingerprint)
	}
	fmt.Println()
	if sess.CompletedAt != nil {
		fmt.Printf("Duration: %s\n", sess.CompletedAt.Sub(sess.StartedAt).Round(time.Millisecond))
	}
}
