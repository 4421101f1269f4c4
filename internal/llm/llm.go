// Package llm talks to the external text-completion service.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUpstreamService     = errors.New("UPSTREAM_SERVICE_ERROR")
	ErrUpstreamRateLimited = errors.New("UPSTREAM_RATE_LIMITED")
	ErrMalformedReply      = errors.New("MALFORMED_UPSTREAM_REPLY")
	ErrUpstreamTimeout     = errors.New("LLM_TIMEOUT")
)

// Request is a single prompt-in, text-out call.
type Request struct {
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

// Completer returns the raw text of the first candidate. Errors wrap one of
// the package sentinels.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ModelInfo describes a model that supports text generation.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
}

// ModelLister is implemented by completers that can enumerate models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ProbeResult is the outcome of a latency probe.
type ProbeResult struct {
	Model   string  `json:"model"`
	Seconds float64 `json:"seconds"`
	Text    string  `json:"text"`
}

// ProbePrompt asks for a fixed one-word answer.
const ProbePrompt = "Responde únicamente con la palabra FUNCIONA."

// Probe times one tiny completion.
func Probe(ctx context.Context, c Completer, model string) (*ProbeResult, error) {
	started := time.Now()
	text, err := c.Complete(ctx, Request{Prompt: ProbePrompt, Temperature: 0, MaxOutputTokens: 10})
	if err != nil {
		return nil, err
	}
	return &ProbeResult{
		Model:   model,
		Seconds: time.Since(started).Seconds(),
		Text:    strings.TrimSpace(text),
	}, nil
}

// classify maps a transport error onto the package sentinels. Client
// libraries report quota exhaustion differently, so the message is checked.
func classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUpstreamService), errors.Is(err, ErrUpstreamRateLimited),
		errors.Is(err, ErrMalformedReply), errors.Is(err, ErrUpstreamTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	case IsRateLimitError(err):
		return fmt.Errorf("%w: %v", ErrUpstreamRateLimited, err)
	default:
		return fmt.Errorf("%w: %v", ErrUpstreamService, err)
	}
}

// IsRateLimitError reports whether err looks like an HTTP 429 or quota error.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "429") ||
		strings.Contains(text, "resource_exhausted") ||
		strings.Contains(text, "too many requests")
}
