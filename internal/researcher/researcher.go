// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package researcher answers a single research question. Two strategies
// share the Researcher contract: Grounded attaches the web-search
// capability and falls back to an ungrounded prompt when search is not
// available; Knowledge relies on the model's trained knowledge alone.
package researcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Researcher produces the finding for one question. An empty finding
// means nothing was found; implementations never return errors.
type Researcher interface {
	Research(ctx context.Context, q types.Question) types.Finding
	Strategy() types.ResearchStrategy
}

// New returns the Researcher for strategy. An empty strategy selects
// search.
func New(strategy types.ResearchStrategy, gen llm.Generator, log *slog.Logger) (Researcher, error) {
	switch strategy {
	case types.StrategySearch, "":
		return NewGrounded(gen, log), nil
	case types.StrategyKnowledge:
		return NewKnowledge(gen, log), nil
	}
	return nil, fmt.Errorf("unknown research strategy %q (want %s or %s)",
		strategy, types.StrategySearch, types.StrategyKnowledge)
}

// Grounded researches with the web-search capability.
type Grounded struct {
	gen llm.Generator
	log *slog.Logger
}

// NewGrounded returns a search-grounded Researcher.
func NewGrounded(gen llm.Generator, log *slog.Logger) *Grounded {
	if log == nil {
		log = slog.Default()
	}
	return &Grounded{gen: gen, log: log.With("strategy", types.StrategySearch)}
}

// Strategy implements Researcher.
func (g *Grounded) Strategy() types.ResearchStrategy { return types.StrategySearch }

// Research issues a grounded request. When the fault says web search is
// unsupported, exactly one ungrounded fallback call follows; any other
// fault ends the attempt with an empty finding.
func (g *Grounded) Research(ctx context.Context, q types.Question) types.Finding {
	g.log.Info("researching question", "question", q)

	prompt, err := render(groundedPromptTmpl, q)
	if err != nil {
		g.log.Error("rendering research prompt", "error", err)
		return ""
	}

	resp, err := g.gen.Generate(ctx, llm.Request{
		Prompt: prompt,
		Tools:  []llm.Capability{llm.CapabilityWebSearch},
	})
	if err == nil {
		if resp.Empty() {
			g.log.Warn("no information found", "question", q)
			return ""
		}
		g.log.Info("information found", "sources", len(resp.Citations))
		return withSources(resp)
	}

	if !errors.Is(err, llm.ErrCapabilityUnsupported) {
		g.log.Error("research call failed", "error", err)
		return ""
	}

	g.log.Warn("web search unsupported, trying fallback without search", "error", err)
	return g.fallback(ctx, q)
}

func (g *Grounded) fallback(ctx context.Context, q types.Question) types.Finding {
	prompt, err := render(fallbackPromptTmpl, q)
	if err != nil {
		g.log.Error("rendering fallback prompt", "error", err)
		return ""
	}

	resp, err := g.gen.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		g.log.Error("fallback also failed", "error", err)
		return ""
	}
	if resp.Empty() {
		g.log.Warn("fallback found no information", "question", q)
		return ""
	}
	g.log.Info("information found via fallback")
	return resp.Text
}

// withSources appends the cited web sources to the response text.
func withSources(resp llm.Response) types.Finding {
	if len(resp.Citations) == 0 {
		return resp.Text
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(resp.Text, "\n"))
	b.WriteString("\n\nSources:\n")
	for _, c := range resp.Citations {
		if c.Title != "" {
			fmt.Fprintf(&b, "- %s (%s)\n", c.Title, c.URL)
		} else {
			fmt.Fprintf(&b, "- %s\n", c.URL)
		}
	}
	return b.String()
}

// Knowledge researches from the model's trained knowledge only.
type Knowledge struct {
	gen llm.Generator
	log *slog.Logger
}

// NewKnowledge returns a Researcher that never attaches tools.
func NewKnowledge(gen llm.Generator, log *slog.Logger) *Knowledge {
	if log == nil {
		log = slog.Default()
	}
	return &Knowledge{gen: gen, log: log.With("strategy", types.StrategyKnowledge)}
}

// Strategy implements Researcher.
func (k *Knowledge) Strategy() types.ResearchStrategy { return types.StrategyKnowledge }

// Research issues one ungrounded request. Faults and empty responses
// yield an empty finding.
func (k *Knowledge) Research(ctx context.Context, q types.Question) types.Finding {
	k.log.Info("researching question", "question", q)

	prompt, err := render(knowledgePromptTmpl, q)
	if err != nil {
		k.log.Error("rendering research prompt", "error", err)
		return ""
	}

	resp, err := k.gen.Generate(ctx, llm.Request{Prompt: prompt})
	if err != nil {
		k.log.Error("research call failed", "error", err)
		return ""
	}
	if resp.Empty() {
		k.log.Warn("no information found", "question", q)
		return ""
	}
	return resp.Text
}
