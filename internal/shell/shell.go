// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package shell runs the interactive research loop: read a topic, run the
// pipeline, show the report, and offer to save it.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/pdiddy/research-assistant/internal/report"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Runner executes one research run.
type Runner interface {
	Run(ctx context.Context, topic types.Topic) (types.Run, error)
}

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, run types.Run) error
}

var (
	banner = strings.Repeat("=", 80)
	rule   = strings.Repeat("=", 50)
)

// Shell is a line-oriented research session over in and out.
type Shell struct {
	runner   Runner
	recorder Recorder
	in       *bufio.Scanner
	lines    chan string
	readOnce sync.Once
	out      io.Writer
	cfg      types.ReportConfig
	now      func() time.Time
	log      *slog.Logger
}

// Option configures a Shell.
type Option func(*Shell)

// WithRecorder records every finished run.
func WithRecorder(r Recorder) Option {
	return func(s *Shell) { s.recorder = r }
}

// WithReportConfig sets where saved reports go.
func WithReportConfig(cfg types.ReportConfig) Option {
	return func(s *Shell) { s.cfg = cfg }
}

// WithClock overrides the time source used for report file names.
func WithClock(fn func() time.Time) Option {
	return func(s *Shell) { s.now = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Shell reading topics from in and writing to out.
func New(runner Runner, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		runner: runner,
		in:     bufio.NewScanner(in),
		lines:  make(chan string),
		out:    out,
		cfg:    types.ReportConfig{OutputDir: "."},
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loop prompts for topics until the user quits or input ends. It returns
// an error only when ctx is cancelled or input cannot be read.
func (s *Shell) Loop(ctx context.Context) error {
	for {
		fmt.Fprintf(s.out, "\n%s\n", rule)
		fmt.Fprintln(s.out, "What would you like to research today?")
		fmt.Fprintln(s.out, "(Type 'quit' or 'exit' to stop)")

		topic, ok := s.prompt(ctx, "\nEnter your research topic: ")
		if !ok {
			return s.endOfInput(ctx)
		}
		if isQuit(topic) {
			fmt.Fprintln(s.out, "\nThank you for using the research assistant!")
			return nil
		}
		if topic == "" {
			status(s.out, "⚠", "Please enter a valid topic to research.", color.FgYellow)
			continue
		}

		if err := s.research(ctx, topic); err != nil {
			return err
		}
	}
}

// research runs one topic and handles display and saving. Only
// cancellation is returned; other errors are reported and the loop goes on.
func (s *Shell) research(ctx context.Context, topic string) error {
	run, err := s.runner.Run(ctx, topic)
	if s.recorder != nil && run.Outcome != "" {
		if rerr := s.recorder.Record(context.WithoutCancel(ctx), run); rerr != nil {
			s.log.Warn("recording run failed", "run", run.ID, "error", rerr)
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status(s.out, "⏹", "Research interrupted.", color.FgYellow)
			return err
		}
		status(s.out, "✗", fmt.Sprintf("An error occurred during research: %v", err), color.FgRed)
		fmt.Fprintln(s.out, "Please try again with a different topic.")
		return nil
	}

	if types.IsFailureReport(run.Report) {
		fmt.Fprintln(s.out)
		status(s.out, "✗", run.Report, color.FgRed)
		return nil
	}

	Display(s.out, topic, run.Report)

	answer, ok := s.prompt(ctx, "\nWould you like to save this report to a file? (y/n): ")
	if !ok {
		if ctx.Err() != nil {
			status(s.out, "⏹", "Research interrupted.", color.FgYellow)
			return ctx.Err()
		}
		return nil
	}
	if isYes(answer) {
		s.save(run)
	}
	return nil
}

func (s *Shell) save(run types.Run) {
	path, err := report.Save(s.cfg.OutputDir, run.Topic, run.Report, s.now())
	if err != nil {
		status(s.out, "✗", fmt.Sprintf("Failed to save report: %v", err), color.FgRed)
		return
	}
	status(s.out, "✓", "Report saved as: "+path, color.FgGreen)

	if !s.cfg.WriteRecord {
		return
	}
	recordPath, err := report.SaveRecord(path, run)
	if err != nil {
		status(s.out, "✗", fmt.Sprintf("Failed to save run record: %v", err), color.FgRed)
		return
	}
	status(s.out, "✓", "Run record saved as: "+recordPath, color.FgGreen)
}

// prompt writes msg and waits for one trimmed line. ok is false at end of
// input or when ctx is cancelled while waiting.
func (s *Shell) prompt(ctx context.Context, msg string) (string, bool) {
	s.readOnce.Do(func() { go s.readLines() })
	fmt.Fprint(s.out, msg)
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-s.lines:
		if !ok {
			return "", false
		}
		return strings.TrimSpace(line), true
	}
}

// readLines feeds input lines to prompt so a blocked read never holds up
// cancellation. The channel is closed at end of input.
func (s *Shell) readLines() {
	defer close(s.lines)
	for s.in.Scan() {
		s.lines <- s.in.Text()
	}
}

// endOfInput reports why prompting stopped: cancellation or a read error.
// A clean end of input is not an error.
func (s *Shell) endOfInput(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(s.out)
		status(s.out, "⏹", "Interrupted.", color.FgYellow)
		return err
	}
	return s.in.Err()
}

// Display writes the report between banners.
func Display(w io.Writer, topic string, r types.Report) {
	fmt.Fprintf(w, "\n%s\n", banner)
	color.New(color.Bold).Fprintln(w, "FINAL RESEARCH REPORT")
	fmt.Fprintln(w, banner)
	fmt.Fprintf(w, "Topic: %s\n", topic)
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, r)
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, "End of Report")
	fmt.Fprintln(w, banner)
}

func isQuit(s string) bool {
	switch strings.ToLower(s) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

func isYes(s string) bool {
	switch strings.ToLower(s) {
	case "y", "yes":
		return true
	}
	return false
}

// status prints a status line with a colored symbol.
func status(w io.Writer, symbol, message string, attr color.Attribute) {
	fmt.Fprintf(w, "%s %s\n", color.New(attr).Sprint(symbol), message)
}
