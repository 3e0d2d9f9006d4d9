package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ValidateEndpoint validates that an endpoint is properly formatted
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https scheme")
	}

	if parsed.Host == "" {
		return fmt.Errorf("endpoint must include host")
	}

	return nil
}

// ValidateRedisNode validates a cache node in host:port form
func ValidateRedisNode(node string) error {
	if node == "" {
		return fmt.Errorf("cache node cannot be empty")
	}

	host, port, err := net.SplitHostPort(node)
	if err != nil {
		return fmt.Errorf("cache node must be in format host:port: %w", err)
	}

	if host == "" {
		return fmt.Errorf("cache node must include host")
	}

	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid cache port: %w", err)
	}
	if p < 1 || p > 65535 {
		return fmt.Errorf("cache port must be between 1 and 65535")
	}

	return nil
}

// ProviderBaseURL returns the base URL of the selected provider, checked
// with ValidateEndpoint.
func (c LLMConfig) ProviderBaseURL() (string, error) {
	var base string
	switch c.Provider {
	case "openai":
		base = c.OpenAI.BaseURL
	case "anthropic":
		base = c.Anthropic.BaseURL
	case "ollama":
		base = c.Ollama.BaseURL
	default:
		base = c.DeepSeek.BaseURL
	}
	if err := ValidateEndpoint(base); err != nil {
		return "", fmt.Errorf("llm %s base_url: %w", c.Provider, err)
	}
	return base, nil
}
