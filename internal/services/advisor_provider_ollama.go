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

// OllamaProvider calls a local Ollama generate API.
type OllamaProvider struct {
	endpoint     string
	model        string
	temperature  float32
	systemPrompt string
	client       *http.Client
	logger       logging.Logger
}

func NewOllamaProvider(cfg config.OllamaConfig, systemPrompt string, temperature float32, httpClient *http.Client, logger logging.Logger) (*OllamaProvider, error) {
	base := strings.TrimRight(resolveEnvVar(cfg.BaseURL), "/")
	if base == "" {
		base = "http://localhost:11434"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	return &OllamaProvider{
		endpoint:     base + "/api/generate",
		model:        cfg.Model,
		temperature:  temperature,
		systemPrompt: systemPrompt,
		client:       httpClient,
		logger:       logging.OrNop(logger),
	}, nil
}

func (p *OllamaProvider) Complete(ctx context.Context, prompt string) (*AdvisorResponse, error) {
	p.logger.Debug("Calling Ollama API", "model", p.model, "endpoint", p.endpoint)

	reqBody := map[string]interface{}{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": p.temperature,
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

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Model           string `json:"model"`
		Response        string `json:"response"`
		PromptEvalCount int    `json:"prompt_eval_count"`
		EvalCount       int    `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Response == "" {
		return nil, fmt.Errorf("ollama returned empty response")
	}

	return &AdvisorResponse{
		Text:        result.Response,
		TokensUsed:  result.PromptEvalCount + result.EvalCount,
		Model:       p.model,
		Provider:    "ollama",
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (p *OllamaProvider) GetProviderName() string { return "ollama" }

func (p *OllamaProvider) GetModelName() string { return p.model }
