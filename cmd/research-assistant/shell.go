// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Research topics interactively",
	Long: `Shell validates the API key, then repeatedly asks for a topic, runs the
research pipeline, displays the report, and offers to save it. Type quit,
exit, or q to leave.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, pipelineFlags)
	},
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	// The first Ctrl-C cancels the current run or prompt; a second one
	// falls through to the default handler and exits.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	context.AfterFunc(ctx, stop)

	fmt.Println("Research Assistant")
	fmt.Printf("Strategy: %s\n", cfg.Research.Strategy)

	p, err := buildPipeline(cfg.Research, os.Stdout)
	if err != nil {
		return err
	}
	if err := p.initialize(ctx, os.Stdout); err != nil {
		return err
	}

	opts := []shell.Option{
		shell.WithReportConfig(cfg.Report),
		shell.WithLogger(logging.New("shell")),
	}
	if store := openHistory(cfg.History); store != nil {
		defer store.Close()
		opts = append(opts, shell.WithRecorder(store))
	}

	err = shell.New(p.orch, os.Stdin, os.Stdout, opts...).Loop(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func init() {
	addPipelineFlags(shellCmd)
	rootCmd.AddCommand(shellCmd)
}
