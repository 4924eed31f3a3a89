// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/report"
	"github.com/pdiddy/research-assistant/internal/shell"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research <topic>",
	Short: "Research a single topic and print the report",
	Long: `Research plans the topic into focused questions, answers each one in order,
and synthesizes a Markdown report. Progress is written to stderr and the
report to stdout.

With --strategy search (the default) answers are grounded in live web
search; when the web-search tool is unavailable the researcher falls back
to model knowledge. With --strategy knowledge the web is never consulted.`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, pipelineFlags)
	},
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	topic := strings.Join(args, " ")
	save, _ := cmd.Flags().GetBool("save")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	p, err := buildPipeline(cfg.Research, os.Stderr)
	if err != nil {
		return err
	}
	if err := p.initialize(ctx, os.Stderr); err != nil {
		return err
	}

	run, runErr := p.orch.Run(ctx, topic)
	if run.Outcome != "" {
		recordRun(ctx, cfg.History, run)
	}
	if runErr != nil {
		return runErr
	}

	usage := p.client.Usage()
	logging.New("cli").Info("run finished",
		"run", run.ID,
		"outcome", run.Outcome,
		"calls", p.client.Calls(),
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return err
		}
	} else if run.Failed() {
		fmt.Fprintf(os.Stderr, "\n%s %s\n", color.RedString("✗"), run.Report)
	} else {
		shell.Display(os.Stdout, topic, run.Report)
	}

	if run.Failed() {
		return fmt.Errorf("research %s: %s", run.Outcome, run.Report)
	}

	if save {
		path, err := report.Save(cfg.Report.OutputDir, topic, run.Report, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s Report saved as: %s\n", color.GreenString("✓"), path)
		if cfg.Report.WriteRecord {
			recordPath, err := report.SaveRecord(path, run)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%s Run record saved as: %s\n", color.GreenString("✓"), recordPath)
		}
	}
	return nil
}

// recordRun stores run in the history database unless recording is
// disabled. Failures are logged; they never fail the command.
func recordRun(ctx context.Context, cfg types.HistoryConfig, run types.Run) {
	store := openHistory(cfg)
	if store == nil {
		return
	}
	defer store.Close()
	if err := store.Record(context.WithoutCancel(ctx), run); err != nil {
		logging.New("history").Warn("recording run failed", "run", run.ID, "error", err)
	}
}

func init() {
	addPipelineFlags(researchCmd)
	researchCmd.Flags().Bool("save", false, "save the report to a text file")
	researchCmd.Flags().Bool("json", false, "print the full run as JSON instead of the report")

	rootCmd.AddCommand(researchCmd)
}

