package llm

import (
	"context"
	"fmt"
	"time"

	"transmission-api/internal/common/config"
	"transmission-api/internal/common/logger"
)

// Client is a rate-limited Completer that knows its model name.
type Client struct {
	*RateLimited
	model string
}

func (c *Client) Model() string { return c.model }

// New builds the configured provider behind the rate limiter.
func New(ctx context.Context, cfg config.LLMConfig, log logger.Logger) (*Client, error) {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond

	var inner Completer
	switch cfg.Provider {
	case config.ProviderGemini, "":
		g, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: timeout,
		}, log)
		if err != nil {
			return nil, err
		}
		inner = g
	case config.ProviderGateway:
		inner = NewGatewayClient(GatewayConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		}, nil, log)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	return &Client{
		RateLimited: NewRateLimited(inner, cfg.RateLimitRPS, cfg.RateLimitBurst),
		model:       cfg.Model,
	}, nil
}
