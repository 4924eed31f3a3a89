// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/pdiddy/research-assistant/internal/history"
	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/orchestrator"
	"github.com/pdiddy/research-assistant/internal/researcher"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// pipeline is a configured orchestrator plus the client it drives.
type pipeline struct {
	client *llm.Client
	orch   *orchestrator.Orchestrator
}

// buildPipeline configures the model client and wires the three roles.
// Progress lines go to progress.
func buildPipeline(cfg types.ResearchConfig, progress io.Writer) (*pipeline, error) {
	client, err := llm.Configure(cfg.AIConfig, logging.New("llm"))
	if err != nil {
		var cfgErr *llm.ConfigError
		if errors.As(err, &cfgErr) {
			printSetupHelp(os.Stderr)
		}
		return nil, err
	}

	r, err := researcher.New(cfg.Strategy, client, logging.New("researcher"))
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(client, r,
		orchestrator.WithPacingDelay(cfg.PacingDelay),
		orchestrator.WithProgress(progress),
		orchestrator.WithLogger(logging.New("orchestrator")),
	)
	return &pipeline{client: client, orch: orch}, nil
}

// initialize validates the API key before any research begins.
func (p *pipeline) initialize(ctx context.Context, w io.Writer) error {
	fmt.Fprintf(w, "%s Model configured: %s\n", color.GreenString("✓"), p.client.Model())
	if err := p.orch.Initialize(ctx); err != nil {
		printSetupHelp(w)
		return err
	}
	return nil
}

// openHistory opens the run store, or returns nil when recording is
// disabled. A store that cannot be opened is logged and skipped so research
// still runs.
func openHistory(cfg types.HistoryConfig) *history.Store {
	if cfg.Disabled {
		return nil
	}
	store, err := history.NewStore(cfg)
	if err != nil {
		logging.New("history").Warn("history disabled", "error", err)
		return nil
	}
	return store
}

func printSetupHelp(w io.Writer) {
	fmt.Fprintln(w, "\nSetup instructions:")
	fmt.Fprintln(w, "1. Get an API key from https://console.anthropic.com/")
	fmt.Fprintln(w, "2. Export it as ANTHROPIC_API_KEY, or write it to .secrets/anthropic-api-key")
	fmt.Fprintln(w, "3. Or set research.use_bedrock: true to use AWS credentials")
}
