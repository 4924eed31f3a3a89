// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llmtest provides scripted llm.Generator fakes for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/pdiddy/research-assistant/internal/llm"
)

// Step is one scripted reply: either a response text or an error.
type Step struct {
	Text string
	Err  error
}

// Reply returns a step that answers with text.
func Reply(text string) Step { return Step{Text: text} }

// Fail returns a step that fails with err.
func Fail(err error) Step { return Step{Err: err} }

// ErrExhausted is returned when a Scripted generator runs out of steps.
var ErrExhausted = errors.New("llmtest: no scripted response available")

// Scripted replays steps in order and records every request it receives.
type Scripted struct {
	mu       sync.Mutex
	steps    []Step
	requests []llm.Request
}

// NewScripted returns a generator that answers with steps in order.
func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// Generate implements llm.Generator.
func (s *Scripted) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	if len(s.steps) == 0 {
		return llm.Response{}, ErrExhausted
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step.Err != nil {
		return llm.Response{}, step.Err
	}
	return llm.Response{Text: step.Text}, nil
}

// Requests returns a copy of the requests received so far.
func (s *Scripted) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.requests...)
}

// Calls returns the number of Generate calls received.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Func adapts a function to llm.Generator.
type Func func(ctx context.Context, req llm.Request) (llm.Response, error)

// Generate implements llm.Generator.
func (f Func) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	return f(ctx, req)
}

// Unsupported returns a fault matching llm.ErrCapabilityUnsupported for c.
func Unsupported(c llm.Capability) error {
	return &llm.ServiceError{
		Op:          "messages.new",
		StatusCode:  400,
		Unsupported: c,
		Err:         errors.New(string(c) + " is not supported"),
	}
}

// ServiceFault returns a generic fault with the given status code.
func ServiceFault(status int) error {
	return &llm.ServiceError{
		Op:         "messages.new",
		StatusCode: status,
		Err:        errors.New("service unavailable"),
	}
}
