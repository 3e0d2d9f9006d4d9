package config

import (
	"time"

	"github.com/platformbuilds/vigilante-core/internal/discovery"
	"github.com/platformbuilds/vigilante-core/internal/models"
)

// GetDefaultConfig returns a configuration with all default values
func GetDefaultConfig() *Config {
	return &Config{
		Environment:   "development",
		LogLevel:      "info",
		ConsoleFormat: "rich",

		Analysis: AnalysisConfig{
			LookbackMin:            12,
			StepPoints:             60,
			BaselineFraction:       0.2,
			AccumRateHours:         24,
			AccumWindowThresholdMm: 1.0,
			BollingerK:             2.0,
			SlidingWindowHours:     12,
			EMAHours:               []float64{1, 3, 12},
		},

		FixedRules: FixedRulesConfig{
			Enabled:    true,
			FixedRules: models.DefaultFixedRules(),
		},

		LLM: LLMConfig{
			Enabled:        true,
			Provider:       "deepseek",
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    60 * time.Second,
			Retries:        3,
			RetryBackoff:   2.0,
			Every:          1,
			JustLength:     600,
			Temperature:    0.6,
			Cache:          LLMCacheConfig{TTL: 3600},
			DeepSeek:       DefaultDeepSeekConfig(),
			OpenAI:         DefaultOpenAIConfig(),
			Anthropic:      DefaultAnthropicConfig(),
			Ollama:         DefaultOllamaConfig(),
		},

		EventLog: EventLogConfig{
			Path:       "registros.jsonl",
			MaxBackups: 5,
		},

		Summary: SummaryConfig{
			Path: "resumen.json",
			TopK: 10,
		},

		Simulation: SimulationConfig{
			Sleep: 50 * time.Millisecond,
		},

		Server: ServerConfig{
			Port:      8000,
			StaticDir: "web",
			CORS: CORSConfig{
				AllowedOrigins:   []string{"*"},
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Content-Type", "Authorization"},
				AllowCredentials: false,
				MaxAge:           3600,
			},
		},

		Cache: CacheConfig{
			Nodes:     []string{},
			TTL:       300,
			Discovery: discovery.DNSConfig{Port: 6379},
		},

		Monitoring: MonitoringConfig{
			Enabled:     true,
			MetricsPath: "/metrics",
			ServiceName: "vigilante-core",
		},
	}
}
