package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/logging"
	"github.com/platformbuilds/vigilante-core/pkg/cache"
)

// ErrAdvisorDisabled is returned when no advisor can be built: the LLM is
// switched off, dry-run is requested, or the provider has no credentials.
var ErrAdvisorDisabled = errors.New("advisor disabled")

// AdvisorService sends one prompt to a language model and returns its raw
// text. Interpreting the text is the caller's job.
type AdvisorService interface {
	Complete(ctx context.Context, prompt string) (*AdvisorResponse, error)

	// GetProviderName returns the provider label (deepseek, openai, anthropic, ollama).
	GetProviderName() string

	GetModelName() string
}

// AdvisorResponse contains the raw model output and metadata.
type AdvisorResponse struct {
	Text        string    `json:"text"`
	TokensUsed  int       `json:"tokensUsed"`
	Model       string    `json:"model"`
	Provider    string    `json:"provider"`
	GeneratedAt time.Time `json:"generatedAt"`
	Cached      bool      `json:"cached"`
}

// NewAdvisorService builds the configured provider. It returns
// ErrAdvisorDisabled (wrapped) when the LLM must not be called.
func NewAdvisorService(cfg config.LLMConfig, systemPrompt string, logger logging.Logger) (AdvisorService, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: llm.enabled is false", ErrAdvisorDisabled)
	}
	if cfg.DryRun {
		return nil, fmt.Errorf("%w: dry-run requested", ErrAdvisorDisabled)
	}
	if _, err := cfg.ProviderBaseURL(); err != nil {
		return nil, err
	}

	client := newHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout)
	logger = logging.OrNop(logger)

	switch cfg.Provider {
	case "deepseek", "":
		return NewOpenAICompatProvider("deepseek", cfg.DeepSeek, systemPrompt, cfg.Temperature, client, logger)
	case "openai":
		return NewOpenAICompatProvider("openai", cfg.OpenAI, systemPrompt, cfg.Temperature, client, logger)
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic, systemPrompt, cfg.Temperature, client, logger)
	case "ollama":
		return NewOllamaProvider(cfg.Ollama, systemPrompt, cfg.Temperature, client, logger)
	default:
		return nil, fmt.Errorf("unsupported advisor provider: %s", cfg.Provider)
	}
}

// BuildAdvisor wires the provider behind retries and, when enabled, the
// response cache.
func BuildAdvisor(cfg config.LLMConfig, systemPrompt string, c cache.Cache, logger logging.Logger) (AdvisorService, error) {
	base, err := NewAdvisorService(cfg, systemPrompt, logger)
	if err != nil {
		return nil, err
	}

	var svc AdvisorService = NewRetryingAdvisor(base, cfg.Retries, cfg.RetryBackoff, logger)
	if cfg.Cache.Enabled && c != nil {
		svc = NewCachedAdvisor(svc, c, time.Duration(cfg.Cache.TTL)*time.Second, logger)
	}
	return svc, nil
}

// newHTTPClient applies the connect timeout to dialing and the read timeout
// to the wait for response headers, per attempt.
func newHTTPClient(connect, read time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connect,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = connect
	transport.ResponseHeaderTimeout = read

	return &http.Client{
		Transport: transport,
		Timeout:   connect + read,
	}
}

// resolveEnvVar resolves environment variable syntax like "${VAR_NAME}".
// Other values are returned as-is.
func resolveEnvVar(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}")
		return os.Getenv(envVar)
	}
	return value
}

// HasCredentials reports whether the selected provider can authenticate.
// Ollama needs none.
func HasCredentials(cfg config.LLMConfig) bool {
	switch cfg.Provider {
	case "ollama":
		return true
	case "openai":
		return resolveEnvVar(cfg.OpenAI.APIKey) != ""
	case "anthropic":
		return resolveEnvVar(cfg.Anthropic.APIKey) != ""
	default:
		return resolveEnvVar(cfg.DeepSeek.APIKey) != ""
	}
}
