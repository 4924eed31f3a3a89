// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package planner decomposes a research topic into an ordered list of
// sub-questions.
package planner

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	// MaxFallbackQuestions caps the line-based extraction.
	MaxFallbackQuestions = 5

	minBracketItemLen  = 10
	minQuestionLineLen = 20
)

var (
	ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)
	bulletPrefix  = regexp.MustCompile(`^[-*]\s*`)
)

// Planner turns a topic into a research plan with one model call.
type Planner struct {
	gen llm.Generator
	log *slog.Logger
}

// New returns a Planner that calls gen.
func New(gen llm.Generator, log *slog.Logger) *Planner {
	if log == nil {
		log = slog.Default()
	}
	return &Planner{gen: gen, log: log}
}

// CreatePlan asks the model for 3-5 questions covering topic. It never
// returns an error: a failed call or an unparseable response yields an
// empty plan, which the caller must check.
func (p *Planner) CreatePlan(ctx context.Context, topic types.Topic) types.Plan {
	p.log.Info("creating research plan", "topic", topic)

	prompt, err := renderPrompt(topic)
	if err != nil {
		p.log.Error("rendering plan prompt", "error", err)
		return nil
	}

	resp, err := p.gen.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		p.log.Error("plan generation failed", "error", err)
		return nil
	}

	plan := ParseQuestions(strings.TrimSpace(resp.Text))
	if len(plan) == 0 {
		p.log.Warn("no questions extracted from plan response")
		return nil
	}

	p.log.Info("research plan created", "questions", len(plan))
	for i, q := range plan {
		p.log.Debug("planned question", "index", i+1, "question", q)
	}
	return plan
}

// ParseQuestions extracts questions from a raw model response.
//
// The first bracketed span (from the first "[" to the first "]" after it)
// is split on commas; each piece is trimmed of whitespace and quotes and
// kept when it is longer than 10 characters or is itself a complete
// question ending in "?". Without a bracketed span, lines starting with an
// ordinal ("1." to "5."), a bullet ("-" or "*"), or containing "?" and
// longer than 20 characters are kept with their marker removed, up to 5.
//
// A question that itself contains "[...]" can be mis-split by the bracket
// rule; that degraded parse is accepted.
func ParseQuestions(text string) types.Plan {
	if inner, ok := firstBracketed(text); ok {
		return parseBracketed(inner)
	}
	return parseLines(text)
}

func firstBracketed(text string) (string, bool) {
	start := strings.Index(text, "[")
	if start < 0 {
		return "", false
	}
	end := strings.Index(text[start+1:], "]")
	if end < 0 {
		return "", false
	}
	return text[start+1 : start+1+end], true
}

func parseBracketed(inner string) types.Plan {
	var plan types.Plan
	for _, piece := range strings.Split(inner, ",") {
		q := trimQuotes(strings.TrimSpace(piece))
		if q == "" {
			continue
		}
		if utf8.RuneCountInString(q) > minBracketItemLen || strings.HasSuffix(q, "?") {
			plan = append(plan, q)
		}
	}
	return plan
}

func parseLines(text string) types.Plan {
	var plan types.Plan
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !isQuestionLine(line) {
			continue
		}
		q := ordinalPrefix.ReplaceAllString(line, "")
		q = bulletPrefix.ReplaceAllString(q, "")
		q = trimQuotes(q)
		if q != "" {
			plan = append(plan, q)
		}
	}
	if len(plan) > MaxFallbackQuestions {
		plan = plan[:MaxFallbackQuestions]
	}
	return plan
}

func isQuestionLine(line string) bool {
	for _, marker := range []string{"1.", "2.", "3.", "4.", "5.", "-", "*"} {
		if strings.HasPrefix(line, marker) {
			return true
		}
	}
	return strings.Contains(line, "?") && utf8.RuneCountInString(line) > minQuestionLineLen
}

func trimQuotes(s string) string {
	return strings.Trim(s, `"'`)
}
