// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator drives one research run: plan the topic, research
// each question in order, then synthesize the collected results. Component
// faults arrive as empty values, so the orchestrator only branches on data
// shape (empty plan, no results, failure report).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/planner"
	"github.com/pdiddy/research-assistant/internal/researcher"
	"github.com/pdiddy/research-assistant/internal/synthesizer"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// DefaultPacingDelay is the pause after each researched question.
const DefaultPacingDelay = time.Second

// State is the orchestrator's position in a run.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StatePlanning      State = "planning"
	StateResearching   State = "researching"
	StateSynthesizing  State = "synthesizing"
	StateDone          State = "done"
	StateAborted       State = "aborted"
)

var (
	// ErrInitFailed is returned by Initialize when the validation probe fails.
	ErrInitFailed = errors.New("initialization failed: API key validation failed")

	// ErrEmptyTopic is returned by Run for a blank topic.
	ErrEmptyTopic = errors.New("topic must not be empty")
)

// Planner creates the research plan for a topic.
type Planner interface {
	CreatePlan(ctx context.Context, topic types.Topic) types.Plan
}

// Synthesizer writes the final report from collected results.
type Synthesizer interface {
	Synthesize(ctx context.Context, topic types.Topic, results []types.Result) types.Report
}

// Orchestrator coordinates the planner, researcher, and synthesizer. Runs
// are strictly sequential; an Orchestrator must not be used by more than
// one goroutine at a time.
type Orchestrator struct {
	gen         llm.Generator
	planner     Planner
	researcher  researcher.Researcher
	synthesizer Synthesizer

	validate func(ctx context.Context) bool
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	newID    func() string

	pacing   time.Duration
	progress io.Writer
	log      *slog.Logger

	initialized bool
	state       State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPacingDelay sets the pause after each researched question. Zero
// disables it.
func WithPacingDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.pacing = d
		}
	}
}

// WithProgress sets the writer that receives human-readable progress lines.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w != nil {
			o.progress = w
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithPlanner replaces the default model-backed planner.
func WithPlanner(p Planner) Option {
	return func(o *Orchestrator) { o.planner = p }
}

// WithSynthesizer replaces the default model-backed synthesizer.
func WithSynthesizer(s Synthesizer) Option {
	return func(o *Orchestrator) { o.synthesizer = s }
}

// WithValidator replaces the connectivity probe run by Initialize.
func WithValidator(fn func(ctx context.Context) bool) Option {
	return func(o *Orchestrator) { o.validate = fn }
}

// WithSleep replaces the pacing sleep; tests pass a no-op.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// WithClock replaces the time source used for run timestamps.
func WithClock(fn func() time.Time) Option {
	return func(o *Orchestrator) { o.now = fn }
}

// New returns an Orchestrator using gen for every role and r as the
// research strategy.
func New(gen llm.Generator, r researcher.Researcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:        gen,
		researcher: r,
		sleep:      sleepContext,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
		pacing:     DefaultPacingDelay,
		progress:   io.Discard,
		log:        slog.Default(),
		state:      StateUninitialized,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.planner == nil {
		o.planner = planner.New(gen, o.log.With("component", "planner"))
	}
	if o.synthesizer == nil {
		o.synthesizer = synthesizer.New(gen, o.log.With("component", "synthesizer"))
	}
	if o.validate == nil {
		o.validate = func(ctx context.Context) bool { return llm.Validate(ctx, gen, o.log) }
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(s State) {
	o.log.Debug("state transition", "from", o.state, "to", s)
	o.state = s
}

// Initialize validates connectivity with the model API. On failure the
// orchestrator is Aborted and every later Run reports
// types.ReportNotInitialized.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.printf("Initializing research assistant...\n")
	if !o.validate(ctx) {
		o.transition(StateAborted)
		o.printf("   API key validation failed\n")
		return ErrInitFailed
	}
	o.initialized = true
	o.transition(StateReady)
	o.printf("   API key validated\n   System ready for research\n")
	return nil
}

// Run performs one synchronous research pass over topic. The returned
// Run always carries a report: a synthesized document or a failure
// sentinel. The error is non-nil only for a blank topic or when ctx is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context, topic types.Topic) (types.Run, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return types.Run{}, ErrEmptyTopic
	}

	run := types.Run{
		ID:        o.newID(),
		Topic:     topic,
		Strategy:  string(o.researcher.Strategy()),
		StartedAt: o.now(),
	}
	log := o.log.With("run_id", run.ID)

	if !o.initialized {
		return o.finish(run, types.OutcomeInitFailed, types.ReportNotInitialized), nil
	}

	o.transition(StateReady)
	o.printf("\nStarting research process for: %q\n%s\n", topic, strings.Repeat("=", 60))

	// Planning.
	o.transition(StatePlanning)
	o.printf("\nSTEP 1: Creating Research Plan\n%s\n", strings.Repeat("-", 40))
	plan := o.planner.CreatePlan(ctx, topic)
	if err := ctx.Err(); err != nil {
		return o.abort(run, err)
	}
	run.Plan = plan
	if len(plan) == 0 {
		log.Warn("empty research plan", "topic", topic)
		return o.finish(run, types.OutcomeEmptyPlan, types.ReportEmptyPlan), nil
	}
	for i, q := range plan {
		o.printf("   %d. %s\n", i+1, q)
	}

	// Researching.
	o.transition(StateResearching)
	o.printf("\nSTEP 2: Conducting Research (%d questions)\n%s\n", len(plan), strings.Repeat("-", 40))
	for i, q := range plan {
		o.printf("\n[%d/%d] Processing question...\n", i+1, len(plan))

		finding := o.researcher.Research(ctx, q)
		if err := ctx.Err(); err != nil {
			return o.abort(run, err)
		}

		status := types.QuestionStatus{Index: i + 1, Question: q, Found: finding != ""}
		run.Questions = append(run.Questions, status)
		if status.Found {
			run.Results = append(run.Results, types.Result{Question: q, Finding: finding})
			o.printf("   Question %d completed\n", i+1)
		} else {
			o.printf("   Question %d - no data found\n", i+1)
		}
		log.Info("question researched", "index", i+1, "found", status.Found)

		if o.pacing > 0 {
			if err := o.sleep(ctx, o.pacing); err != nil {
				return o.abort(run, err)
			}
		}
	}

	if len(run.Results) == 0 {
		log.Warn("no findings for any question", "questions", len(plan))
		return o.finish(run, types.OutcomeNoFindings, types.ReportNoFindings), nil
	}

	// Synthesizing.
	o.transition(StateSynthesizing)
	o.printf("\nSTEP 3: Creating Final Report\n%s\n", strings.Repeat("-", 40))
	report := o.synthesizer.Synthesize(ctx, topic, run.Results)
	if err := ctx.Err(); err != nil {
		return o.abort(run, err)
	}

	outcome := types.OutcomeCompleted
	if types.IsFailureReport(report) {
		outcome = types.OutcomeSynthesisFailed
	}
	return o.finish(run, outcome, report), nil
}

// finish records the terminal outcome. Completed runs end in Done, every
// other outcome in Aborted.
func (o *Orchestrator) finish(run types.Run, outcome types.Outcome, report types.Report) types.Run {
	run.Outcome = outcome
	run.Report = report
	run.FinishedAt = o.now()
	if outcome == types.OutcomeCompleted {
		o.transition(StateDone)
	} else {
		o.transition(StateAborted)
	}
	o.log.Info("research run finished",
		"run_id", run.ID,
		"outcome", outcome,
		"results", len(run.Results),
		"duration", run.FinishedAt.Sub(run.StartedAt))
	return run
}

func (o *Orchestrator) abort(run types.Run, err error) (types.Run, error) {
	run.FinishedAt = o.now()
	o.transition(StateAborted)
	o.log.Warn("research run cancelled", "run_id", run.ID, "error", err)
	return run, fmt.Errorf("research run cancelled: %w", err)
}

func (o *Orchestrator) printf(format string, args ...any) {
	fmt.Fprintf(o.progress, format, args...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
