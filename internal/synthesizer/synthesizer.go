// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesizer compiles research results into a final report.
package synthesizer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var reportPromptTmpl = template.Must(template.New("report").Parse(`You are an expert research analyst and technical writer. Your task is to synthesize
the provided research notes into a comprehensive, well-structured report on the topic: "{{.Topic}}".

Report Requirements:
1. Create a professional, informative report
2. Include an introduction that sets the context
3. Organize findings into logical sections with clear headings
4. Synthesize information from multiple sources into coherent insights rather than repeating each note
5. Include a conclusion that summarizes key findings
6. Use only the information provided in the research notes
7. Write in a clear, professional tone
8. Ensure the report flows logically from section to section

## Research Notes ##
{{.Notes}}

Please create a comprehensive report that effectively communicates the research findings.
`))

// Synthesizer writes the final report with one model call.
type Synthesizer struct {
	gen llm.Generator
	log *slog.Logger
}

// New returns a Synthesizer that calls gen.
func New(gen llm.Generator, log *slog.Logger) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{gen: gen, log: log}
}

// Synthesize returns the report for topic built from results. With no
// results it returns types.ReportNoData without calling the model. A
// failed call or empty text yields types.ReportSynthesisFailed.
func (s *Synthesizer) Synthesize(ctx context.Context, topic types.Topic, results []types.Result) types.Report {
	if len(results) == 0 {
		return types.ReportNoData
	}

	s.log.Info("writing final report", "topic", topic, "results", len(results))

	var buf bytes.Buffer
	err := reportPromptTmpl.Execute(&buf, struct{ Topic, Notes string }{
		Topic: topic,
		Notes: CompileNotes(results),
	})
	if err != nil {
		s.log.Error("rendering report prompt", "error", err)
		return types.ReportSynthesisFailed
	}

	resp, err := s.gen.Generate(ctx, llm.Request{Prompt: buf.String()})
	if err != nil {
		s.log.Error("report generation failed", "error", err)
		return types.ReportSynthesisFailed
	}
	if resp.Empty() {
		s.log.Error("report generation returned no text")
		return types.ReportSynthesisFailed
	}

	s.log.Info("final report generated", "chars", len(resp.Text))
	return resp.Text
}

// CompileNotes formats results as numbered sections in input order.
func CompileNotes(results []types.Result) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "\n### Research Question %d: %s\n\n**Research Findings:**\n%s\n\n---\n", i+1, r.Question, r.Finding)
	}
	return b.String()
}
