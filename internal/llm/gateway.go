package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	commonhttp "transmission-api/internal/common/http"
	"transmission-api/internal/common/logger"
)

// GatewayConfig configures a GatewayClient.
type GatewayConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// GatewayClient calls an internal AI gateway exposing
// POST {base}/api/ai/generate.
type GatewayClient struct {
	config GatewayConfig
	client *commonhttp.Client
	logger logger.Logger
}

type gatewayRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type gatewayResponse struct {
	Text string `json:"text"`
}

func NewGatewayClient(cfg GatewayConfig, client *commonhttp.Client, log logger.Logger) *GatewayClient {
	if client == nil {
		// No client timeout; the request context bounds each call.
		client = commonhttp.NewClient(0)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &GatewayClient{
		config: cfg,
		client: client,
		logger: logger.ForComponent(log, "ai-gateway"),
	}
}

func (g *GatewayClient) Model() string { return g.config.Model }

func (g *GatewayClient) Complete(ctx context.Context, req Request) (string, error) {
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	body := gatewayRequest{
		Prompt:      req.Prompt,
		Model:       g.config.Model,
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUpstreamTimeout, ctx.Err())
			}
		}

		var resp gatewayResponse
		lastErr = g.client.PostJSON(ctx, g.config.BaseURL+"/api/ai/generate", body, &resp)
		if lastErr == nil {
			if strings.TrimSpace(resp.Text) == "" {
				return "", fmt.Errorf("%w: empty text", ErrMalformedReply)
			}
			return resp.Text, nil
		}
		if ctx.Err() != nil || !retryable(lastErr) {
			break
		}
		g.logger.Warn("gateway call failed, retrying", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		})
	}

	var statusErr *commonhttp.StatusError
	if errors.As(lastErr, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %v", ErrUpstreamRateLimited, lastErr)
	}
	if errors.Is(lastErr, commonhttp.ErrDecodeResponse) {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, lastErr)
	}
	return "", classify(ctx, lastErr)
}

// retryable is true for transport errors, 429 and 5xx.
func retryable(err error) bool {
	var statusErr *commonhttp.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return !errors.Is(err, commonhttp.ErrDecodeResponse)
}
