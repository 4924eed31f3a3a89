// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/pkg/types"
)

func init() {
	color.NoColor = true
}

// --- fakes ---

type fakeRunner struct {
	topics []string
	run    func(topic string) (types.Run, error)
}

func (f *fakeRunner) Run(_ context.Context, topic types.Topic) (types.Run, error) {
	f.topics = append(f.topics, topic)
	return f.run(topic)
}

type fakeRecorder struct {
	runs []types.Run
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, run types.Run) error {
	f.runs = append(f.runs, run)
	return f.err
}

func completed(topic string) (types.Run, error) {
	return types.Run{
		ID:      "run-" + topic,
		Topic:   topic,
		Report:  "# " + topic + "\n\nBody.",
		Outcome: types.OutcomeCompleted,
	}, nil
}

var fixedNow = time.Unix(1777887015, 0)

func newShell(t *testing.T, r Runner, input string, opts ...Option) (*Shell, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithLogger(logging.Discard())}, opts...)
	return New(r, strings.NewReader(input), &out, opts...), &out
}

// --- tests ---

func TestLoop_QuitWords(t *testing.T) {
	for _, word := range []string{"quit", "EXIT", "q", "  Quit  "} {
		t.Run(word, func(t *testing.T) {
			runner := &fakeRunner{run: completed}
			s, out := newShell(t, runner, word+"\n")

			require.NoError(t, s.Loop(context.Background()))
			assert.Empty(t, runner.topics)
			assert.Contains(t, out.String(), "Thank you")
		})
	}
}

func TestLoop_BlankInputWarns(t *testing.T) {
	runner := &fakeRunner{run: completed}
	s, out := newShell(t, runner, "\n   \nquit\n")

	require.NoError(t, s.Loop(context.Background()))
	assert.Empty(t, runner.topics)
	assert.Equal(t, 2, strings.Count(out.String(), "Please enter a valid topic"))
}

func TestLoop_EndOfInput(t *testing.T) {
	runner := &fakeRunner{run: completed}
	s, _ := newShell(t, runner, "Solar power\n")

	require.NoError(t, s.Loop(context.Background()))
	assert.Equal(t, []string{"Solar power"}, runner.topics)
}

func TestLoop_DisplaysAndSaves(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{run: completed}
	s, out := newShell(t, runner, "Solar power\nyes\nquit\n",
		WithReportConfig(types.ReportConfig{OutputDir: dir, WriteRecord: true}))

	require.NoError(t, s.Loop(context.Background()))

	text := out.String()
	assert.Contains(t, text, "FINAL RESEARCH REPORT")
	assert.Contains(t, text, "Topic: Solar power")
	assert.Contains(t, text, "# Solar power")
	assert.Contains(t, text, "End of Report")
	assert.Contains(t, text, "Report saved as:")

	saved := filepath.Join(dir, "research_report_Solar_power_1777887015.txt")
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Research Report: Solar power\n"))

	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestLoop_DeclineSave(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{run: completed}
	s, out := newShell(t, runner, "Solar power\nn\nWind\nno\nq\n",
		WithReportConfig(types.ReportConfig{OutputDir: dir}))

	require.NoError(t, s.Loop(context.Background()))
	assert.Equal(t, []string{"Solar power", "Wind"}, runner.topics)
	assert.NotContains(t, out.String(), "Report saved as:")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoop_FailureReportNotDisplayedOrOffered(t *testing.T) {
	runner := &fakeRunner{run: func(topic string) (types.Run, error) {
		return types.Run{ID: "r1", Topic: topic, Report: types.ReportEmptyPlan, Outcome: types.OutcomeEmptyPlan}, nil
	}}
	// "quit" must be read as the next topic, not as a save answer.
	s, out := newShell(t, runner, "Obscure\nquit\n")

	require.NoError(t, s.Loop(context.Background()))
	text := out.String()
	assert.Contains(t, text, types.ReportEmptyPlan)
	assert.NotContains(t, text, "FINAL RESEARCH REPORT")
	assert.NotContains(t, text, "save this report")
	assert.Contains(t, text, "Thank you")
}

func TestLoop_RunErrorContinues(t *testing.T) {
	calls := 0
	runner := &fakeRunner{run: func(topic string) (types.Run, error) {
		calls++
		if calls == 1 {
			return types.Run{}, errors.New("boom")
		}
		return completed(topic)
	}}
	s, out := newShell(t, runner, "First\nSecond\nn\nquit\n")

	require.NoError(t, s.Loop(context.Background()))
	assert.Equal(t, []string{"First", "Second"}, runner.topics)
	assert.Contains(t, out.String(), "An error occurred during research: boom")
}

func TestLoop_CancellationStops(t *testing.T) {
	runner := &fakeRunner{run: func(topic string) (types.Run, error) {
		return types.Run{ID: "r1", Topic: topic}, context.Canceled
	}}
	rec := &fakeRecorder{}
	s, out := newShell(t, runner, "First\nSecond\n", WithRecorder(rec))

	err := s.Loop(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"First"}, runner.topics)
	assert.Empty(t, rec.runs, "cancelled runs have no outcome and are not recorded")
	assert.Contains(t, out.String(), "interrupted")
}

func TestLoop_CancelWhileWaitingForTopic(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	runner := &fakeRunner{run: completed}
	var out bytes.Buffer
	s := New(runner, pr, &out, WithLogger(logging.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Loop(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Loop did not return after cancellation")
	}
	assert.Empty(t, runner.topics)
	assert.Contains(t, out.String(), "Interrupted.")
}

func TestLoop_CancelWhileWaitingForSaveAnswer(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{run: func(topic string) (types.Run, error) {
		// The save prompt is next and no answer ever arrives.
		defer cancel()
		return completed(topic)
	}}
	dir := t.TempDir()
	var out bytes.Buffer
	s := New(runner, pr, &out, WithLogger(logging.Discard()),
		WithReportConfig(types.ReportConfig{OutputDir: dir}))

	done := make(chan error, 1)
	go func() { done <- s.Loop(ctx) }()
	_, err := io.WriteString(pw, "Solar power\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Loop did not return after cancellation")
	}
	assert.Equal(t, []string{"Solar power"}, runner.topics)
	assert.Contains(t, out.String(), "Research interrupted.")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoop_RecordsRuns(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	runner := &fakeRunner{run: completed}
	s, _ := newShell(t, runner, "Solar power\nn\nquit\n", WithRecorder(rec))

	require.NoError(t, s.Loop(context.Background()))
	require.Len(t, rec.runs, 1)
	assert.Equal(t, "run-Solar power", rec.runs[0].ID)
}

func TestDisplay(t *testing.T) {
	var buf bytes.Buffer
	Display(&buf, "Go", "Body")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, strings.Repeat("=", 80), lines[0])
	assert.Equal(t, "FINAL RESEARCH REPORT", lines[1])
	assert.Equal(t, "Topic: Go", lines[3])
	assert.Equal(t, "Body", lines[5])
	assert.Equal(t, "End of Report", lines[7])
}
