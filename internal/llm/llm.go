// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the generation-call abstraction the research roles depend
// on. A Generator turns a prompt (optionally with tool capabilities) into a
// Response; provider faults come back as typed errors so callers can match
// on them instead of inspecting message text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Capability is an optional tool the hosted model may invoke during
// generation.
type Capability string

const (
	// CapabilityWebSearch lets the model retrieve live web information.
	CapabilityWebSearch Capability = "web_search"
)

// Request is a single generation call.
type Request struct {
	Prompt string
	Tools  []Capability

	// MaxTokens overrides the client default when positive.
	MaxTokens int
}

// Citation is a web source the model grounded part of its answer on.
type Citation struct {
	URL   string `json:"url" yaml:"url"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Usage counts tokens consumed by one or more calls.
type Usage struct {
	InputTokens  int64 `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int64 `json:"output_tokens" yaml:"output_tokens"`
}

// Response is the uniform result of a generation call. Text is empty when
// the model produced no text.
type Response struct {
	Text      string
	Citations []Citation
	Usage     Usage
}

// Empty reports whether the response carries no usable text.
func (r Response) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Generator abstracts the hosted model API so tests can supply a fake.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// ErrCapabilityUnsupported matches (via errors.Is) any ServiceError raised
// because a requested tool capability is not available in the current
// context.
var ErrCapabilityUnsupported = errors.New("llm: capability unsupported")

// ServiceError is a failed outbound generation call.
type ServiceError struct {
	// Op names the failing operation (e.g. "messages.new").
	Op string

	// StatusCode is the HTTP status returned by the API, or 0 when the call
	// never got a response.
	StatusCode int

	// Unsupported is set to the rejected capability when the fault was
	// caused by a tool the API does not offer here.
	Unsupported Capability

	Err error
}

func (e *ServiceError) Error() string {
	if e.Unsupported != "" {
		return fmt.Sprintf("%s: capability %s unsupported: %v", e.Op, e.Unsupported, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches ErrCapabilityUnsupported for capability faults.
func (e *ServiceError) Is(target error) bool {
	return target == ErrCapabilityUnsupported && e.Unsupported != ""
}

// ConfigError reports a missing or invalid credential. It is fatal and
// surfaces before any research begins.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// probePrompt is the lightweight connectivity check sent by Validate.
const probePrompt = "Hello, this is a test."

// Validate performs a lightweight connectivity probe with g. It returns
// false when the call fails or the model returns no text.
func Validate(ctx context.Context, g Generator, log *slog.Logger) bool {
	if log == nil {
		log = slog.Default()
	}
	resp, err := g.Generate(ctx, Request{Prompt: probePrompt, MaxTokens: 16})
	if err != nil {
		log.Error("API key validation failed", "error", err)
		return false
	}
	if resp.Empty() {
		log.Error("API key validation failed", "error", "empty probe response")
		return false
	}
	return true
}
