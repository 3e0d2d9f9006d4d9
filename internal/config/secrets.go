package config

import (
	"fmt"
	"os"
	"strings"
)

// LoadSecrets loads provider keys and the cache password from *_FILE
// variables (mounted secrets). Plain variables are handled by viper.
func LoadSecrets(config *Config) error {
	files := []struct {
		env    string
		target *string
	}{
		{"DEEPSEEK_API_KEY_FILE", &config.LLM.DeepSeek.APIKey},
		{"OPENAI_API_KEY_FILE", &config.LLM.OpenAI.APIKey},
		{"ANTHROPIC_API_KEY_FILE", &config.LLM.Anthropic.APIKey},
		{"VALKEY_PASSWORD_FILE", &config.Cache.Password},
	}

	for _, f := range files {
		path := os.Getenv(f.env)
		if path == "" {
			continue
		}
		secret, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.env, err)
		}
		*f.target = strings.TrimSpace(string(secret))
	}

	if password := os.Getenv("VALKEY_PASSWORD"); password != "" {
		config.Cache.Password = password
	}

	return nil
}

// Redacted returns a copy safe to print: API keys and passwords are masked
// unless they are ${VAR} references.
func (c *Config) Redacted() *Config {
	out := *c
	out.LLM.DeepSeek.APIKey = mask(c.LLM.DeepSeek.APIKey)
	out.LLM.OpenAI.APIKey = mask(c.LLM.OpenAI.APIKey)
	out.LLM.Anthropic.APIKey = mask(c.LLM.Anthropic.APIKey)
	out.Cache.Password = mask(c.Cache.Password)
	return &out
}

func mask(secret string) string {
	if secret == "" || strings.HasPrefix(secret, "${") {
		return secret
	}
	return "********"
}
