package config

import "time"

// LLMConfig configures the advisory model. Provider selects one of the
// provider blocks below.
type LLMConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	Provider       string        `mapstructure:"provider" yaml:"provider"` // deepseek, openai, anthropic, ollama
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	Retries        int           `mapstructure:"retries" yaml:"retries"`
	RetryBackoff   float64       `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	Every          int           `mapstructure:"every" yaml:"every"`
	EmitEveryMin   int           `mapstructure:"emit_every_min" yaml:"emit_every_min"` // 0 = use Every
	JustLength     int           `mapstructure:"just_length" yaml:"just_length"`
	DryRun         bool          `mapstructure:"dry_run" yaml:"dry_run"`
	Temperature    float32       `mapstructure:"temperature" yaml:"temperature"`

	Cache LLMCacheConfig `mapstructure:"cache" yaml:"cache"`

	DeepSeek  OpenAICompatConfig `mapstructure:"deepseek" yaml:"deepseek"`
	OpenAI    OpenAICompatConfig `mapstructure:"openai" yaml:"openai"`
	Anthropic AnthropicConfig    `mapstructure:"anthropic" yaml:"anthropic"`
	Ollama    OllamaConfig       `mapstructure:"ollama" yaml:"ollama"`
}

// LLMCacheConfig reuses advisor answers for identical prompts.
type LLMCacheConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	TTL     int  `mapstructure:"ttl" yaml:"ttl"` // seconds
}

// OpenAICompatConfig covers any chat-completions endpoint (DeepSeek, OpenAI).
type OpenAICompatConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
}

var validProviders = []string{"deepseek", "openai", "anthropic", "ollama"}

// DefaultDeepSeekConfig returns the stock DeepSeek endpoint.
func DefaultDeepSeekConfig() OpenAICompatConfig {
	return OpenAICompatConfig{
		APIKey:    "${DEEPSEEK_API_KEY}",
		BaseURL:   "https://api.deepseek.com",
		Model:     "deepseek-chat",
		MaxTokens: 1200,
	}
}

func DefaultOpenAIConfig() OpenAICompatConfig {
	return OpenAICompatConfig{
		APIKey:    "${OPENAI_API_KEY}",
		BaseURL:   "https://api.openai.com/v1",
		Model:     "gpt-4o-mini",
		MaxTokens: 1200,
	}
}

func DefaultAnthropicConfig() AnthropicConfig {
	return AnthropicConfig{
		APIKey:    "${ANTHROPIC_API_KEY}",
		BaseURL:   "https://api.anthropic.com",
		Model:     "claude-3-5-haiku-latest",
		MaxTokens: 1200,
	}
}

func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	}
}

// ActiveModel returns the model name of the selected provider.
func (c LLMConfig) ActiveModel() string {
	switch c.Provider {
	case "openai":
		return c.OpenAI.Model
	case "anthropic":
		return c.Anthropic.Model
	case "ollama":
		return c.Ollama.Model
	default:
		return c.DeepSeek.Model
	}
}
