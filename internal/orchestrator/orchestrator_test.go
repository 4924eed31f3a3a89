// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/internal/llm/llmtest"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/researcher"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// --- fakes ---

type fixedPlanner struct {
	plan  types.Plan
	calls int
}

func (p *fixedPlanner) CreatePlan(context.Context, types.Topic) types.Plan {
	p.calls++
	return p.plan
}

type mapResearcher struct {
	findings map[types.Question]types.Finding
	asked    []types.Question
	cancel   context.CancelFunc // cancels after the first question when set
}

func (r *mapResearcher) Research(_ context.Context, q types.Question) types.Finding {
	r.asked = append(r.asked, q)
	if r.cancel != nil {
		r.cancel()
	}
	return r.findings[q]
}

func (r *mapResearcher) Strategy() types.ResearchStrategy { return types.StrategyKnowledge }

type recordingSynth struct {
	report types.Report
	calls  int
	got    []types.Result
}

func (s *recordingSynth) Synthesize(_ context.Context, _ types.Topic, results []types.Result) types.Report {
	s.calls++
	s.got = results
	return s.report
}

type sleepRecorder struct{ durations []time.Duration }

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return nil
}

func newTestOrchestrator(t *testing.T, p Planner, r researcher.Researcher, s Synthesizer, extra ...Option) (*Orchestrator, *sleepRecorder) {
	t.Helper()
	sr := &sleepRecorder{}
	opts := []Option{
		WithPlanner(p),
		WithSynthesizer(s),
		WithValidator(func(context.Context) bool { return true }),
		WithSleep(sr.sleep),
		WithLogger(logging.Discard()),
	}
	o := New(llmtest.NewScripted(), r, append(opts, extra...)...)
	require.NoError(t, o.Initialize(context.Background()))
	return o, sr
}

// --- tests ---

func TestRun_PartialFindings(t *testing.T) {
	p := &fixedPlanner{plan: types.Plan{"Q1", "Q2"}}
	r := &mapResearcher{findings: map[string]string{"Q1": "A1", "Q2": ""}}
	s := &recordingSynth{report: "Final report"}
	o, sr := newTestOrchestrator(t, p, r, s)

	run, err := o.Run(context.Background(), "topic")
	require.NoError(t, err)

	assert.Equal(t, 1, s.calls)
	assert.Equal(t, []types.Result{{Question: "Q1", Finding: "A1"}}, s.got)
	assert.Equal(t, "Final report", run.Report)
	assert.Equal(t, types.OutcomeCompleted, run.Outcome)
	assert.Equal(t, StateDone, o.State())
	assert.Equal(t, []types.QuestionStatus{
		{Index: 1, Question: "Q1", Found: true},
		{Index: 2, Question: "Q2", Found: false},
	}, run.Questions)
	assert.Equal(t, []time.Duration{DefaultPacingDelay, DefaultPacingDelay}, sr.durations)
}

func TestRun_NoFindings(t *testing.T) {
	p := &fixedPlanner{plan: types.Plan{"Q1"}}
	r := &mapResearcher{findings: map[string]string{"Q1": ""}}
	s := &recordingSynth{report: "unused"}
	o, _ := newTestOrchestrator(t, p, r, s)

	run, err := o.Run(context.Background(), "topic")
	require.NoError(t, err)

	assert.Equal(t, 0, s.calls, "synthesizer must not be invoked")
	assert.Equal(t, types.ReportNoFindings, run.Report)
	assert.Equal(t, types.OutcomeNoFindings, run.Outcome)
	assert.Equal(t, StateAborted, o.State())
}

func TestRun_EmptyPlan(t *testing.T) {
	p := &fixedPlanner{}
	r := &mapResearcher{}
	s := &recordingSynth{}
	o, _ := newTestOrchestrator(t, p, r, s)

	run, err := o.Run(context.Background(), "topic")
	require.NoError(t, err)

	assert.Equal(t, types.ReportEmptyPlan, run.Report)
	assert.Equal(t, types.OutcomeEmptyPlan, run.Outcome)
	assert.Empty(t, r.asked)
	assert.Equal(t, 0, s.calls)
	assert.Equal(t, StateAborted, o.State())
}

func TestRun_SynthesisFailureNotRetried(t *testing.T) {
	p := &fixedPlanner{plan: types.Plan{"Q1"}}
	r := &mapResearcher{findings: map[string]string{"Q1": "A1"}}
	s := &recordingSynth{report: types.ReportSynthesisFailed}
	o, _ := newTestOrchestrator(t, p, r, s)

	run, err := o.Run(context.Background(), "topic")
	require.NoError(t, err)

	assert.Equal(t, 1, s.calls)
	assert.Equal(t, types.ReportSynthesisFailed, run.Report)
	assert.Equal(t, types.OutcomeSynthesisFailed, run.Outcome)
}

func TestRun_ReportStartingWithErrorIsCompleted(t *testing.T) {
	doc := "Error: Handling in Go\n\n## Introduction\n\nGo returns errors as values."
	p := &fixedPlanner{plan: types.Plan{"Q1"}}
	r := &mapResearcher{findings: map[string]string{"Q1": "A1"}}
	s := &recordingSynth{report: doc}
	o, _ := newTestOrchestrator(t, p, r, s)

	run, err := o.Run(context.Background(), "Error handling in Go")
	require.NoError(t, err)

	assert.Equal(t, doc, run.Report)
	assert.Equal(t, types.OutcomeCompleted, run.Outcome)
	assert.False(t, run.Failed())
	assert.Equal(t, StateDone, o.State())
}

func TestRun_ResearchFollowsPlanOrder(t *testing.T) {
	p := &fixedPlanner{plan: types.Plan{"Q3", "Q1", "Q2", "Q1"}}
	r := &mapResearcher{findings: map[string]string{"Q1": "A1", "Q2": "A2", "Q3": "A3"}}
	s := &recordingSynth{report: "ok"}
	o, _ := newTestOrchestrator(t, p, r, s)

	_, err := o.Run(context.Background(), "topic")
	require.NoError(t, err)

	assert.Equal(t, []types.Question{"Q3", "Q1", "Q2", "Q1"}, r.asked)
	assert.Equal(t, []types.Result{
		{Question: "Q3", Finding: "A3"},
		{Question: "Q1", Finding: "A1"},
		{Question: "Q2", Finding: "A2"},
		{Question: "Q1", Finding: "A1"},
	}, s.got)
}

func TestRun_NotInitialized(t *testing.T) {
	p := &fixedPlanner{plan: types.Plan{"Q1"}}
	o := New(llmtest.NewScripted(), &mapResearcher{}, WithPlanner(p), WithLogger(logging.Discard()))

	run, err := o.Run(context.Background(), "topic")
	require.NoError(t, err)
	assert.Equal(t, types.ReportNotInitialized, run.Report)
	assert.Equal(t, types.OutcomeInitFailed, run.Outcome)
	assert.Equal(t, 0, p.calls)
}

func TestInitialize_ValidationFails(t *testing.T) {
	var progress bytes.Buffer
	o := New(llmtest.NewScripted(), &mapResearcher{},
		WithValidator(func(context.Context) bool { return false }),
		WithProgress(&progress),
		WithLogger(logging.Discard()))

	err := o.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrInitFailed)
	assert.Equal(t, StateAborted, o.State())
	assert.Contains(t, progress.String(), "validation failed")
}

func TestInitialize_DefaultValidatorUsesGenerator(t *testing.T) {
	gen := llmtest.NewScripted(llmtest.Reply("Hello!"))
	o := New(gen, &mapResearcher{}, WithLogger(logging.Discard()))

	require.NoError(t, o.Initialize(context.Background()))
	assert.Equal(t, StateReady, o.State())
	assert.Equal(t, 1, gen.Calls())
}

func TestRun_EmptyTopic(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fixedPlanner{}, &mapResearcher{}, &recordingSynth{})
	_, err := o.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &fixedPlanner{plan: types.Plan{"Q1", "Q2"}}
	r := &mapResearcher{findings: map[string]string{"Q1": "A1", "Q2": "A2"}, cancel: cancel}
	s := &recordingSynth{report: "unused"}
	o, _ := newTestOrchestrator(t, p, r, s)

	run, err := o.Run(ctx, "topic")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []types.Question{"Q1"}, r.asked)
	assert.Equal(t, 0, s.calls)
	assert.Equal(t, StateAborted, o.State())
	assert.Equal(t, "topic", run.Topic)
}

func TestRun_PacingDisabled(t *testing.T) {
	p := &fixedPlanner{plan: types.Plan{"Q1", "Q2"}}
	r := &mapResearcher{findings: map[string]string{"Q1": "A1"}}
	o, sr := newTestOrchestrator(t, p, r, &recordingSynth{report: "ok"}, WithPacingDelay(0))

	_, err := o.Run(context.Background(), "topic")
	require.NoError(t, err)
	assert.Empty(t, sr.durations)
}

func TestRun_RecordMetadata(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &fixedPlanner{plan: types.Plan{"Q1"}}
	r := &mapResearcher{findings: map[string]string{"Q1": "A1"}}
	o, _ := newTestOrchestrator(t, p, r, &recordingSynth{report: "ok"},
		WithClock(func() time.Time { return clock }))

	run, err := o.Run(context.Background(), "  Solar power  ")
	require.NoError(t, err)

	assert.Equal(t, "Solar power", run.Topic)
	assert.Equal(t, string(types.StrategyKnowledge), run.Strategy)
	assert.Equal(t, types.Plan{"Q1"}, run.Plan)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, clock, run.StartedAt)
	assert.Equal(t, clock, run.FinishedAt)
}

func TestRun_RerunReplans(t *testing.T) {
	p := &fixedPlanner{plan: types.Plan{"Q1"}}
	r := &mapResearcher{findings: map[string]string{"Q1": "A1"}}
	o, _ := newTestOrchestrator(t, p, r, &recordingSynth{report: "ok"})

	first, err := o.Run(context.Background(), "topic")
	require.NoError(t, err)
	second, err := o.Run(context.Background(), "topic")
	require.NoError(t, err)

	assert.Equal(t, 2, p.calls)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Report, second.Report)
}

func TestRun_EndToEndWithScriptedModel(t *testing.T) {
	gen := llmtest.NewScripted(
		llmtest.Reply(`["What is the first question?", "What is the second question?"]`),
		llmtest.Reply("First answer."),
		llmtest.Fail(llmtest.ServiceFault(500)),
		llmtest.Reply("# Synthesized"),
	)
	var progress bytes.Buffer
	o := New(gen, researcher.NewGrounded(gen, logging.Discard()),
		WithValidator(func(context.Context) bool { return true }),
		WithSleep(func(context.Context, time.Duration) error { return nil }),
		WithProgress(&progress),
		WithLogger(logging.Discard()))
	require.NoError(t, o.Initialize(context.Background()))

	run, err := o.Run(context.Background(), "Two questions")
	require.NoError(t, err)

	want := types.Run{
		Topic:    "Two questions",
		Strategy: string(types.StrategySearch),
		Plan:     types.Plan{"What is the first question?", "What is the second question?"},
		Questions: []types.QuestionStatus{
			{Index: 1, Question: "What is the first question?", Found: true},
			{Index: 2, Question: "What is the second question?", Found: false},
		},
		Results: []types.Result{{Question: "What is the first question?", Finding: "First answer."}},
		Report:  "# Synthesized",
		Outcome: types.OutcomeCompleted,
	}
	ignore := cmpopts.IgnoreFields(types.Run{}, "ID", "StartedAt", "FinishedAt")
	if diff := cmp.Diff(want, run, ignore); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, gen.Calls())
	assert.Contains(t, progress.String(), "Question 2 - no data found")
}
