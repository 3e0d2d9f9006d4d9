package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/logging"
)

// OpenAICompatProvider talks to any chat-completions endpoint. DeepSeek
// exposes the same API under its own base URL.
type OpenAICompatProvider struct {
	name         string
	client       *openai.Client
	model        string
	maxTokens    int
	temperature  float32
	systemPrompt string
	logger       logging.Logger
}

func NewOpenAICompatProvider(name string, cfg config.OpenAICompatConfig, systemPrompt string, temperature float32, httpClient *http.Client, logger logging.Logger) (*OpenAICompatProvider, error) {
	apiKey := resolveEnvVar(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s API key is not set", ErrAdvisorDisabled, name)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(resolveEnvVar(cfg.BaseURL), "/")
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}

	return &OpenAICompatProvider{
		name:         name,
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  temperature,
		systemPrompt: systemPrompt,
		logger:       logging.OrNop(logger),
	}, nil
}

func (p *OpenAICompatProvider) Complete(ctx context.Context, prompt string) (*AdvisorResponse, error) {
	p.logger.Debug("Calling chat completions API", "provider", p.name, "model", p.model)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if p.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Messages:    messages,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.name)
	}

	text := resp.Choices[0].Message.Content
	p.logger.Debug("Chat completions call successful",
		"provider", p.name,
		"tokens_used", resp.Usage.TotalTokens,
		"response_length", len(text))

	model := resp.Model
	if model == "" {
		model = p.model
	}

	return &AdvisorResponse{
		Text:        text,
		TokensUsed:  resp.Usage.TotalTokens,
		Model:       model,
		Provider:    p.name,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (p *OpenAICompatProvider) GetProviderName() string { return p.name }

func (p *OpenAICompatProvider) GetModelName() string { return p.model }
