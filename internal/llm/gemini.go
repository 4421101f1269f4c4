package llm

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"google.golang.org/genai"

	"transmission-api/internal/common/logger"
)

// GeminiConfig configures a GeminiClient. BaseURL is only set in tests or
// behind a proxy.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// safetySettings only block high-probability harm.
var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
}

type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  logger.Logger
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig, log logger.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.ForComponent(log, "gemini").With(map[string]interface{}{"model": cfg.Model}),
	}, nil
}

// Model is the configured model name.
func (g *GeminiClient) Model() string { return g.model }

func (g *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		Temperature:    genai.Ptr(float32(req.Temperature)),
		SafetySettings: safetySettings,
	}
	if req.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	started := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		err = classify(ctx, err)
		g.logger.Warn("generate content failed", map[string]interface{}{
			"error":    err.Error(),
			"duration": time.Since(started).String(),
		})
		return "", err
	}

	text := collectText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty candidate text", ErrMalformedReply)
	}
	g.logger.Debug("generate content completed", map[string]interface{}{
		"duration": time.Since(started).String(),
		"chars":    len(text),
	})
	return text, nil
}

// ListModels returns the models that support generateContent.
func (g *GeminiClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var out []ModelInfo
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, classify(ctx, err)
		}
		if !slices.Contains(m.SupportedActions, "generateContent") {
			continue
		}
		out = append(out, ModelInfo{
			Name:        strings.TrimPrefix(m.Name, "models/"),
			DisplayName: m.DisplayName,
			Description: m.Description,
		})
	}
	return out, nil
}

// collectText joins the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
