// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	// DefaultModel is used when the configuration names no model.
	DefaultModel = anthropic.Model("claude-sonnet-4-5-20250929")

	defaultMaxTokens  = 4096
	defaultMaxRetries = 3

	// webSearchMaxUses bounds the number of searches per grounded request.
	webSearchMaxUses = 5

	apiKeyEnv = "ANTHROPIC_API_KEY"
)

// Client calls the Anthropic Messages API. It is the model handle threaded
// through the research roles; nothing mutates it after Configure returns.
type Client struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
	bedrock   bool
	log       *slog.Logger
	tracker   *usageTracker
}

// Configure builds a Client from cfg. It fails with a *ConfigError when no
// credential is available. The API key falls back to ANTHROPIC_API_KEY;
// Bedrock uses the AWS default credential chain instead.
func Configure(cfg types.AIConfig, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	// Rate-limit retries happen in our middleware so a single backoff
	// policy applies; the SDK's own retry loop is disabled.
	retry := httputil.RetryOnRateLimit(maxRetries, log)
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithMiddleware(func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
			return retry(req, next)
		}),
	}

	if cfg.UseBedrock {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			apiKey = strings.TrimSpace(os.Getenv(apiKeyEnv))
		}
		if apiKey == "" {
			return nil, &ConfigError{
				Field:  "api_key",
				Reason: apiKeyEnv + " not found; set it in the environment, the config file, or .secrets/anthropic-api-key",
			}
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	if cfg.UseBedrock {
		model = bedrockModel(model)
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		bedrock:   cfg.UseBedrock,
		log:       log,
		tracker:   &usageTracker{},
	}, nil
}

// bedrockModel converts a direct-API model name to its Bedrock
// cross-region inference profile.
func bedrockModel(model anthropic.Model) anthropic.Model {
	profiles := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:         "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.Model("claude-sonnet-4-5-20250929"): "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.Model("claude-haiku-4-5-20251001"):  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:         "us.anthropic.claude-opus-4-1-20250805-v1:0",
	}
	if p, ok := profiles[model]; ok {
		return anthropic.Model(p)
	}
	return model
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return string(c.model)
}

// Usage returns the tokens consumed by every call made through c.
func (c *Client) Usage() Usage {
	u, _ := c.tracker.snapshot()
	return u
}

// Calls returns the number of successful generation calls made through c.
func (c *Client) Calls() int {
	_, n := c.tracker.snapshot()
	return n
}

// Generate issues one Messages API call. Faults are returned as
// *ServiceError; a rejected tool capability additionally matches
// ErrCapabilityUnsupported.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	for _, capability := range req.Tools {
		switch capability {
		case CapabilityWebSearch:
			params.Tools = append(params.Tools, anthropic.ToolUnionParam{
				OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
					MaxUses: anthropic.Int(webSearchMaxUses),
				},
			})
		default:
			return Response{}, &ServiceError{
				Op:          "messages.new",
				Unsupported: capability,
				Err:         errors.New("no tool mapping for capability"),
			}
		}
	}

	msg, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return Response{}, classify("messages.new", req.Tools, err)
	}

	usage := Usage{InputTokens: msg.Usage.InputTokens, OutputTokens: msg.Usage.OutputTokens}
	c.tracker.add(usage)
	c.log.Debug("generation complete",
		"model", c.model,
		"tools", len(req.Tools),
		"bedrock", c.bedrock,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens)

	var text strings.Builder
	var citations []Citation
	seen := make(map[string]bool)
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		tb := block.AsText()
		text.WriteString(tb.Text)
		for _, cite := range tb.Citations {
			if cite.Type != "web_search_result_location" || cite.URL == "" || seen[cite.URL] {
				continue
			}
			seen[cite.URL] = true
			citations = append(citations, Citation{URL: cite.URL, Title: cite.Title})
		}
	}

	return Response{
		Text:      text.String(),
		Citations: citations,
		Usage:     usage,
	}, nil
}

// classify converts an SDK error into a *ServiceError. A 400 response that
// names a requested tool means the tool is not offered in this context
// (Bedrock, older models, organization policy).
func classify(op string, tools []Capability, err error) error {
	se := &ServiceError{Op: op, Err: err}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return se
	}
	se.StatusCode = apiErr.StatusCode
	if apiErr.StatusCode != http.StatusBadRequest {
		return se
	}

	msg := strings.ToLower(apiErr.Error())
	for _, capability := range tools {
		if strings.Contains(msg, string(capability)) {
			se.Unsupported = capability
			break
		}
	}
	return se
}

// usageTracker accumulates token usage and call counts for one Client.
type usageTracker struct {
	mu    sync.Mutex
	total Usage
	calls int
}

func (t *usageTracker) add(u Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total.InputTokens += u.InputTokens
	t.total.OutputTokens += u.OutputTokens
	t.calls++
}

func (t *usageTracker) snapshot() (Usage, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total, t.calls
}
