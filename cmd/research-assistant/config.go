// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/orchestrator"
	"github.com/pdiddy/research-assistant/internal/secrets"
	"github.com/pdiddy/research-assistant/pkg/types"
)

func setDefaults() {
	viper.SetDefault("research.strategy", string(types.StrategySearch))
	viper.SetDefault("research.pacing_delay", orchestrator.DefaultPacingDelay)
	viper.SetDefault("research.max_retries", 3)
	viper.SetDefault("research.max_tokens", 4096)
	viper.SetDefault("research.timeout", 5*time.Minute)
	viper.SetDefault("report.output_dir", ".")
	viper.SetDefault("history.dir", defaultHistoryDir())
	viper.SetDefault("history.max_results", 20)
}

// defaultHistoryDir is ~/.local/share/research-assistant, or a local
// directory when the home directory is unknown.
func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".research-assistant"
	}
	return filepath.Join(home, ".local", "share", "research-assistant")
}

// bindFlags maps command flags onto config keys. Binding happens when the
// command runs because research and shell share keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// pipelineFlags are shared by research and shell.
var pipelineFlags = map[string]string{
	"strategy":     "research.strategy",
	"pacing":       "research.pacing_delay",
	"model":        "research.model",
	"bedrock":      "research.use_bedrock",
	"output-dir":   "report.output_dir",
	"write-record": "report.write_record",
	"no-history":   "history.disabled",
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("strategy", "", "research strategy: search (web-grounded) or knowledge (model knowledge only)")
	cmd.Flags().Duration("pacing", 0, "pause after each researched question (default 1s)")
	cmd.Flags().String("model", "", "model identifier (default claude-sonnet-4-5)")
	cmd.Flags().Bool("bedrock", false, "route model calls through AWS Bedrock")
	cmd.Flags().String("output-dir", "", "directory for saved reports (default .)")
	cmd.Flags().Bool("write-record", false, "also write the run as YAML next to a saved report")
	cmd.Flags().Bool("no-history", false, "do not record the run in the history database")
}

// loadConfig assembles the typed configuration from viper, filling the API
// key from .secrets/ when neither the config nor the environment set one.
func loadConfig() types.Config {
	var cfg types.Config

	ai := types.AIConfig{
		Model:      viper.GetString("research.model"),
		APIKey:     viper.GetString("research.api_key"),
		BaseURL:    viper.GetString("research.base_url"),
		MaxRetries: viper.GetInt("research.max_retries"),
		MaxTokens:  viper.GetInt("research.max_tokens"),
		Timeout:    viper.GetDuration("research.timeout"),
		UseBedrock: viper.GetBool("research.use_bedrock"),
		AWSRegion:  viper.GetString("research.aws_region"),
		AWSProfile: viper.GetString("research.aws_profile"),
	}
	if ai.APIKey == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		ai.APIKey = secretDefault(secrets.AnthropicAPIKey, "")
	}
	ai.AWSProfile = secretDefault(secrets.AWSProfile, ai.AWSProfile)

	cfg.Research = types.ResearchConfig{
		AIConfig:    ai,
		Strategy:    types.ResearchStrategy(viper.GetString("research.strategy")),
		PacingDelay: viper.GetDuration("research.pacing_delay"),
	}
	cfg.Report = types.ReportConfig{
		OutputDir:   viper.GetString("report.output_dir"),
		WriteRecord: viper.GetBool("report.write_record"),
	}
	cfg.History = types.HistoryConfig{
		Dir:        viper.GetString("history.dir"),
		Disabled:   viper.GetBool("history.disabled"),
		MaxResults: viper.GetInt("history.max_results"),
	}
	return cfg
}
