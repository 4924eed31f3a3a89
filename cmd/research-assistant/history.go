// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/history"
	"github.com/pdiddy/research-assistant/internal/report"
	"github.com/pdiddy/research-assistant/internal/shell"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse, search, and export earlier research runs",
	Long: `History reads the SQLite database of finished runs. Every research or
shell run is recorded there unless history.disabled is set or --no-history
is passed.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return bindFlags(cmd, map[string]string{"history-dir": "history.dir"})
	},
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistoryList(cmd, "")
	},
}

// --- search subcommand ---

var historySearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find runs whose topic or report contains text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistoryList(cmd, strings.Join(args, " "))
	},
}

func runHistoryList(cmd *cobra.Command, text string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.List(cmd.Context(), queryOptsFromFlags(cmd, text))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatListOutput(os.Stdout, results, jsonOutput)
}

func formatListOutput(w io.Writer, results []history.Summary, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-19s  %-16s  %-8s  %s\n", "ID", "Started", "Outcome", "Findings", "Topic")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range results {
		topic := truncate(r.Topic, 40)
		fmt.Fprintf(w, "%-36s  %-19s  %-16s  %-8d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Outcome, r.Findings, topic)
	}
	fmt.Fprintf(w, "\n%d run(s)\n", len(results))
	return nil
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n-3]), " ") + "..."
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the plan, findings, and report of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}
		formatRun(os.Stdout, run)
		return nil
	},
}

func formatRun(w io.Writer, run *types.Run) {
	fmt.Fprintf(w, "Run:       %s\n", run.ID)
	fmt.Fprintf(w, "Topic:     %s\n", run.Topic)
	fmt.Fprintf(w, "Strategy:  %s\n", run.Strategy)
	fmt.Fprintf(w, "Outcome:   %s\n", run.Outcome)
	fmt.Fprintf(w, "Started:   %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration:  %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))

	if len(run.Questions) > 0 {
		fmt.Fprintln(w, "\nPlan:")
		for _, q := range run.Questions {
			mark := " "
			if q.Found {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %d. %s\n", mark, q.Index, q.Question)
		}
	}

	if run.Failed() {
		fmt.Fprintf(w, "\n%s\n", run.Report)
		return
	}
	shell.Display(w, run.Topic, run.Report)
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs with their findings as YAML or JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("output")

		var w io.Writer = os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			defer f.Close()
			w = f
		}

		query, _ := cmd.Flags().GetString("query")
		if err := store.Export(cmd.Context(), w, format, queryOptsFromFlags(cmd, query)); err != nil {
			return err
		}
		if outPath != "" {
			fmt.Fprintf(os.Stderr, "Exported to %s\n", outPath)
		}
		return nil
	},
}

// --- import subcommand ---

var historyImportCmd = &cobra.Command{
	Use:   "import <record.yaml>...",
	Short: "Add saved run records to the history database",
	Long: `Import reads run records written next to saved reports (--write-record)
and stores them in the history database. A record whose run ID is already
present replaces the earlier entry.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := importRecords(cmd.Context(), store, args, os.Stdout)
		fmt.Fprintf(os.Stdout, "Imported %d of %d record(s)\n", n, len(args))
		return err
	},
}

// importRecords loads each record file and stores it. It continues past
// bad files and returns the count imported plus the first error.
func importRecords(ctx context.Context, store *history.Store, paths []string, w io.Writer) (int, error) {
	var firstErr error
	imported := 0
	for _, path := range paths {
		run, err := report.LoadRecord(path)
		if err == nil {
			err = store.Record(ctx, *run)
		}
		if err != nil {
			fmt.Fprintf(w, "  %s: %v\n", path, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("importing %s: %w", path, err)
			}
			continue
		}
		fmt.Fprintf(w, "  %s -> %s\n", path, run.ID)
		imported++
	}
	return imported, firstErr
}

// --- helpers ---

func openHistoryStore() (*history.Store, error) {
	cfg := loadConfig().History
	return history.NewStore(cfg)
}

func queryOptsFromFlags(cmd *cobra.Command, text string) history.QueryOptions {
	outcome, _ := cmd.Flags().GetString("outcome")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = viper.GetInt("history.max_results")
	}
	return history.QueryOptions{
		Text:       text,
		Outcome:    types.Outcome(outcome),
		MaxResults: limit,
	}
}

func init() {
	historyCmd.PersistentFlags().String("history-dir", "", "directory containing history.db")

	for _, c := range []*cobra.Command{historyListCmd, historySearchCmd} {
		c.Flags().Int("limit", 0, "maximum number of runs to show (default history.max_results)")
		c.Flags().String("outcome", "", "filter by outcome: completed, init_failed, empty_plan, no_findings, synthesis_failed")
		c.Flags().Bool("json", false, "output results as JSON")
	}
	historyShowCmd.Flags().Bool("json", false, "output the run as JSON")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	historyExportCmd.Flags().String("query", "", "only export runs whose topic or report contains this text")
	historyExportCmd.Flags().String("outcome", "", "only export runs with this outcome")

	historyCmd.AddCommand(historyListCmd, historySearchCmd, historyShowCmd, historyExportCmd, historyImportCmd)
	rootCmd.AddCommand(historyCmd)
}
