package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/logging"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider calls the Anthropic messages API.
type AnthropicProvider struct {
	apiKey       string
	endpoint     string
	model        string
	maxTokens    int
	temperature  float32
	systemPrompt string
	client       *http.Client
	logger       logging.Logger
}

func NewAnthropicProvider(cfg config.AnthropicConfig, systemPrompt string, temperature float32, httpClient *http.Client, logger logging.Logger) (*AnthropicProvider, error) {
	apiKey := resolveEnvVar(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is not set", ErrAdvisorDisabled)
	}

	base := strings.TrimRight(resolveEnvVar(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.anthropic.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1200
	}

	return &AnthropicProvider{
		apiKey:       apiKey,
		endpoint:     base + "/v1/messages",
		model:        cfg.Model,
		maxTokens:    maxTokens,
		temperature:  temperature,
		systemPrompt: systemPrompt,
		client:       httpClient,
		logger:       logging.OrNop(logger),
	}, nil
}

func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (*AdvisorResponse, error) {
	p.logger.Debug("Calling Anthropic API", "model", p.model, "max_tokens", p.maxTokens)

	reqBody := map[string]interface{}{
		"model":       p.model,
		"max_tokens":  p.maxTokens,
		"temperature": p.temperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	if p.systemPrompt != "" {
		reqBody["system"] = p.systemPrompt
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var text strings.Builder
	for _, c := range result.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic returned no text content")
	}

	model := result.Model
	if model == "" {
		model = p.model
	}

	return &AdvisorResponse{
		Text:        text.String(),
		TokensUsed:  result.Usage.InputTokens + result.Usage.OutputTokens,
		Model:       model,
		Provider:    "anthropic",
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (p *AnthropicProvider) GetProviderName() string { return "anthropic" }

func (p *AnthropicProvider) GetModelName() string { return p.model }
