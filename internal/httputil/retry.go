// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the model API adapter.
package httputil

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// rate-limited responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

const defaultMaxRetries = 5

// Next sends a request to the next handler in a middleware chain.
type Next = func(*http.Request) (*http.Response, error)

// Middleware wraps a request round trip. The signature matches the
// anthropic-sdk-go option.Middleware type.
type Middleware = func(*http.Request, Next) (*http.Response, error)

// retryable reports whether the status asks the client to back off:
// 429 Too Many Requests, or 529 which the model API uses for overload.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == 529
}

// RetryOnRateLimit returns a middleware that retries rate-limited responses
// with exponential backoff. The delay starts at RetryBaseDelay (10 s) and
// doubles each attempt: 10 s, 20 s, 40 s, 80 s, 160 s.
//
// When maxRetries is 0 the default (5) is used. On each retry the response
// body is drained and closed before sleeping and the request body is
// rewound with GetBody. If the request context is cancelled during a
// backoff wait the middleware returns ctx.Err(). After exhausting retries
// the last rate-limited response is returned so the caller can inspect it.
func RetryOnRateLimit(maxRetries int, log *slog.Logger) Middleware {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if log == nil {
		log = slog.Default()
	}

	return func(req *http.Request, next Next) (*http.Response, error) {
		ctx := req.Context()
		for attempt := 0; ; attempt++ {
			if attempt > 0 && req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("rewinding request body: %w", err)
				}
				req.Body = body
			}

			resp, err := next(req)
			if err != nil {
				return nil, err
			}

			if !retryable(resp.StatusCode) {
				return resp, nil
			}

			// Exhausted retries; return the response as-is.
			if attempt >= maxRetries {
				return resp, nil
			}

			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
			log.Warn("rate limited, backing off",
				"status", resp.StatusCode,
				"backoff", backoff,
				"attempt", attempt+1,
				"max_retries", maxRetries)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
}
