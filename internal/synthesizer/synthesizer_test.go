// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/internal/llm/llmtest"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var sampleResults = []types.Result{
	{Question: "What is X?", Finding: "X is a thing."},
	{Question: "How does Y work?", Finding: "Y works well."},
}

func TestCompileNotes(t *testing.T) {
	want := "\n### Research Question 1: What is X?\n\n**Research Findings:**\nX is a thing.\n\n---\n" +
		"\n### Research Question 2: How does Y work?\n\n**Research Findings:**\nY works well.\n\n---\n"
	assert.Equal(t, want, CompileNotes(sampleResults))
}

func TestCompileNotes_PreservesOrder(t *testing.T) {
	reversed := []types.Result{sampleResults[1], sampleResults[0]}
	notes := CompileNotes(reversed)
	assert.Less(t, strings.Index(notes, "How does Y work?"), strings.Index(notes, "What is X?"))
	assert.Contains(t, notes, "Research Question 1: How does Y work?")
}

func TestCompileNotes_Empty(t *testing.T) {
	assert.Equal(t, "", CompileNotes(nil))
}

func TestSynthesize_NoResults(t *testing.T) {
	gen := llmtest.NewScripted(llmtest.Reply("should not be used"))
	got := New(gen, logging.Discard()).Synthesize(context.Background(), "topic", nil)

	assert.Equal(t, types.ReportNoData, got)
	assert.Equal(t, 0, gen.Calls())
}

func TestSynthesize(t *testing.T) {
	gen := llmtest.NewScripted(llmtest.Reply("# Report\n\nIntro."))
	got := New(gen, logging.Discard()).Synthesize(context.Background(), "Topic T", sampleResults)

	assert.Equal(t, "# Report\n\nIntro.", got)
	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, `on the topic: "Topic T"`)
	assert.Contains(t, reqs[0].Prompt, CompileNotes(sampleResults))
	assert.Empty(t, reqs[0].Tools)
}

func TestSynthesize_Failures(t *testing.T) {
	tests := []struct {
		name string
		step llmtest.Step
	}{
		{"fault", llmtest.Fail(errors.New("boom"))},
		{"empty text", llmtest.Reply("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := llmtest.NewScripted(tt.step)
			got := New(gen, logging.Discard()).Synthesize(context.Background(), "topic", sampleResults)
			assert.Equal(t, types.ReportSynthesisFailed, got)
			assert.True(t, types.IsFailureReport(got))
			assert.Equal(t, 1, gen.Calls())
		})
	}
}

func TestSentinelsDistinct(t *testing.T) {
	assert.NotEqual(t, types.ReportNoData, types.ReportSynthesisFailed)
	assert.True(t, types.IsFailureReport(types.ReportNoData))
}
