// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AIConfig holds settings for the hosted model API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API. When empty the
	// ANTHROPIC_API_KEY environment variable is used.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts on rate-limited calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxTokens caps the length of each generated response (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Timeout bounds a single generation request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UseBedrock routes requests through AWS Bedrock instead of the direct API.
	UseBedrock bool `json:"use_bedrock" yaml:"use_bedrock"`

	// AWSRegion is the Bedrock region (e.g. "us-west-2").
	AWSRegion string `json:"aws_region,omitempty" yaml:"aws_region,omitempty"`

	// AWSProfile is an optional shared-config profile name.
	AWSProfile string `json:"aws_profile,omitempty" yaml:"aws_profile,omitempty"`
}

// ResearchStrategy names the researcher implementation.
type ResearchStrategy string

const (
	// StrategySearch grounds answers with the API's web-search tool.
	StrategySearch ResearchStrategy = "search"

	// StrategyKnowledge answers from the model's trained knowledge only.
	StrategyKnowledge ResearchStrategy = "knowledge"
)

// ResearchConfig holds settings for the research pipeline.
type ResearchConfig struct {
	AIConfig `yaml:",inline"`

	// Strategy selects the researcher: search or knowledge.
	Strategy ResearchStrategy `json:"strategy" yaml:"strategy"`

	// PacingDelay is the pause after each researched question (default 1s).
	PacingDelay time.Duration `json:"pacing_delay" yaml:"pacing_delay"`
}

// ReportConfig holds settings for saving reports.
type ReportConfig struct {
	// OutputDir is the directory reports are written to (default ".").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// WriteRecord also writes the run as YAML next to the report.
	WriteRecord bool `json:"write_record" yaml:"write_record"`
}

// HistoryConfig holds settings for the run history database.
type HistoryConfig struct {
	// Dir is the directory containing history.db.
	Dir string `json:"dir" yaml:"dir"`

	// Disabled turns off recording of completed runs.
	Disabled bool `json:"disabled" yaml:"disabled"`

	// MaxResults is the default number of rows returned by list and search (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Config groups all settings for the assistant.
type Config struct {
	Research ResearchConfig `json:"research" yaml:"research"`
	Report   ReportConfig   `json:"report" yaml:"report"`
	History  HistoryConfig  `json:"history" yaml:"history"`
}
