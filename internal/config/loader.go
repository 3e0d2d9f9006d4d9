package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// NewViper prepares a viper instance with defaults, env bindings and the
// config file. An empty configFile searches the standard locations.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/vigilante/")
		v.AddConfigPath("./configs/")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("VIGILANTE")

	setDefaults(v)
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars and defaults
	}

	overrideWithEnvVars(v)
	return v, nil
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := LoadSecrets(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults mirrors GetDefaultConfig so every key is known to viper,
// which AutomaticEnv needs to resolve env overrides during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("environment", d.Environment)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("console_format", d.ConsoleFormat)

	v.SetDefault("analysis.lookback_min", d.Analysis.LookbackMin)
	v.SetDefault("analysis.step_points", d.Analysis.StepPoints)
	v.SetDefault("analysis.baseline_fraction", d.Analysis.BaselineFraction)
	v.SetDefault("analysis.accum_rate_hours", d.Analysis.AccumRateHours)
	v.SetDefault("analysis.accum_window_threshold_mm", d.Analysis.AccumWindowThresholdMm)
	v.SetDefault("analysis.bollinger_k", d.Analysis.BollingerK)
	v.SetDefault("analysis.sliding_window_hours", d.Analysis.SlidingWindowHours)
	v.SetDefault("analysis.ema_hours", d.Analysis.EMAHours)
	v.SetDefault("analysis.start_at", "")

	v.SetDefault("fixed_rules.enabled", d.FixedRules.Enabled)
	v.SetDefault("fixed_rules.v_alert", d.FixedRules.VAlert)
	v.SetDefault("fixed_rules.v_alarm", d.FixedRules.VAlarm)
	v.SetDefault("fixed_rules.d_alert", d.FixedRules.DAlert)
	v.SetDefault("fixed_rules.v_alarm_with_d1", d.FixedRules.VAlarmWithD1)
	v.SetDefault("fixed_rules.v_alarm_with_d2", d.FixedRules.VAlarmWithD2)

	v.SetDefault("llm.enabled", d.LLM.Enabled)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.connect_timeout", d.LLM.ConnectTimeout)
	v.SetDefault("llm.read_timeout", d.LLM.ReadTimeout)
	v.SetDefault("llm.retries", d.LLM.Retries)
	v.SetDefault("llm.retry_backoff", d.LLM.RetryBackoff)
	v.SetDefault("llm.every", d.LLM.Every)
	v.SetDefault("llm.emit_every_min", 0)
	v.SetDefault("llm.just_length", d.LLM.JustLength)
	v.SetDefault("llm.dry_run", false)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.cache.enabled", false)
	v.SetDefault("llm.cache.ttl", d.LLM.Cache.TTL)
	v.SetDefault("llm.deepseek.api_key", d.LLM.DeepSeek.APIKey)
	v.SetDefault("llm.deepseek.base_url", d.LLM.DeepSeek.BaseURL)
	v.SetDefault("llm.deepseek.model", d.LLM.DeepSeek.Model)
	v.SetDefault("llm.deepseek.max_tokens", d.LLM.DeepSeek.MaxTokens)
	v.SetDefault("llm.openai.api_key", d.LLM.OpenAI.APIKey)
	v.SetDefault("llm.openai.base_url", d.LLM.OpenAI.BaseURL)
	v.SetDefault("llm.openai.model", d.LLM.OpenAI.Model)
	v.SetDefault("llm.openai.max_tokens", d.LLM.OpenAI.MaxTokens)
	v.SetDefault("llm.anthropic.api_key", d.LLM.Anthropic.APIKey)
	v.SetDefault("llm.anthropic.base_url", d.LLM.Anthropic.BaseURL)
	v.SetDefault("llm.anthropic.model", d.LLM.Anthropic.Model)
	v.SetDefault("llm.anthropic.max_tokens", d.LLM.Anthropic.MaxTokens)
	v.SetDefault("llm.ollama.base_url", d.LLM.Ollama.BaseURL)
	v.SetDefault("llm.ollama.model", d.LLM.Ollama.Model)

	v.SetDefault("event_log.path", d.EventLog.Path)
	v.SetDefault("event_log.only_disagreements", false)
	v.SetDefault("event_log.max_size_mb", 0)
	v.SetDefault("event_log.max_backups", d.EventLog.MaxBackups)
	v.SetDefault("event_log.compress", false)

	v.SetDefault("summary.path", d.Summary.Path)
	v.SetDefault("summary.top_k", d.Summary.TopK)

	v.SetDefault("simulation.csv_path", "")
	v.SetDefault("simulation.sleep", d.Simulation.Sleep)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.cors.allowed_origins", d.Server.CORS.AllowedOrigins)
	v.SetDefault("server.cors.allowed_methods", d.Server.CORS.AllowedMethods)
	v.SetDefault("server.cors.allowed_headers", d.Server.CORS.AllowedHeaders)
	v.SetDefault("server.cors.allow_credentials", d.Server.CORS.AllowCredentials)
	v.SetDefault("server.cors.max_age", d.Server.CORS.MaxAge)

	v.SetDefault("cache.nodes", d.Cache.Nodes)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.discovery.enabled", false)
	v.SetDefault("cache.discovery.service", "")
	v.SetDefault("cache.discovery.port", d.Cache.Discovery.Port)
	v.SetDefault("cache.discovery.use_srv", false)

	v.SetDefault("monitoring.enabled", d.Monitoring.Enabled)
	v.SetDefault("monitoring.metrics_path", d.Monitoring.MetricsPath)
	v.SetDefault("monitoring.tracing_enabled", false)
	v.SetDefault("monitoring.otlp_endpoint", "")
	v.SetDefault("monitoring.service_name", d.Monitoring.ServiceName)
}

// bindLegacyEnv accepts the unprefixed variable names operators already
// export. Bindings rank below explicit flags.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"llm.deepseek.api_key":  "DEEPSEEK_API_KEY",
		"llm.deepseek.base_url": "DEEPSEEK_BASE_URL",
		"llm.deepseek.model":    "DEEPSEEK_MODEL",
		"analysis.bollinger_k":  "BOLLINGER_K",
		"llm.retries":           "LLM_RETRIES",
		"llm.retry_backoff":     "LLM_RETRY_BACKOFF",
		"console_format":        "CONSOLE_FORMAT",
		"server.port":           "PORT",
		"log_level":             "LOG_LEVEL",
	}
	for key, name := range legacy {
		prefixed := "VIGILANTE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, name)
	}
}

// overrideWithEnvVars explicitly handles environment variables that need
// conversion before viper sees them.
func overrideWithEnvVars(v *viper.Viper) {
	// LLM timeouts are exported in seconds, possibly fractional
	if connect := os.Getenv("LLM_TIMEOUT_CONNECT"); connect != "" {
		if d, ok := parseSeconds(connect); ok {
			v.Set("llm.connect_timeout", d)
		}
	}

	if read := os.Getenv("LLM_TIMEOUT_READ"); read != "" {
		if d, ok := parseSeconds(read); ok {
			v.Set("llm.read_timeout", d)
		}
	}

	if nodes := os.Getenv("VALKEY_CACHE_NODES"); nodes != "" {
		v.Set("cache.nodes", splitList(nodes))
	}
}

func parseSeconds(s string) (time.Duration, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Server.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	validFormats := []string{"rich", "plain", "json"}
	if !contains(validFormats, config.ConsoleFormat) {
		return fmt.Errorf("invalid console format: %s", config.ConsoleFormat)
	}

	a := config.Analysis
	if a.BaselineFraction <= 0 || a.BaselineFraction > 1 {
		return fmt.Errorf("baseline fraction must be in (0, 1], got %v", a.BaselineFraction)
	}
	if a.StepPoints < 1 {
		return fmt.Errorf("step points must be at least 1")
	}
	if a.LookbackMin < 1 {
		return fmt.Errorf("lookback minutes must be at least 1")
	}
	if a.BollingerK <= 0 {
		return fmt.Errorf("bollinger k must be positive")
	}
	if a.SlidingWindowHours <= 0 {
		return fmt.Errorf("sliding window hours must be positive")
	}
	if a.AccumRateHours <= 0 {
		return fmt.Errorf("accumulation rate hours must be positive")
	}
	if a.StartAt != "" {
		if _, err := ParseStartAt(a.StartAt); err != nil {
			return err
		}
	}

	l := config.LLM
	if !contains(validProviders, l.Provider) {
		return fmt.Errorf("invalid llm provider: %s", l.Provider)
	}
	if l.Retries < 1 {
		return fmt.Errorf("llm retries must be at least 1")
	}
	if l.RetryBackoff <= 0 {
		return fmt.Errorf("llm retry backoff must be positive")
	}
	if l.Every < 1 {
		return fmt.Errorf("llm every must be at least 1")
	}
	if l.EmitEveryMin < 0 {
		return fmt.Errorf("llm emit_every_min cannot be negative")
	}
	if l.JustLength < 1 {
		return fmt.Errorf("llm just_length must be at least 1")
	}
	if l.ConnectTimeout <= 0 || l.ReadTimeout <= 0 {
		return fmt.Errorf("llm timeouts must be positive")
	}

	if config.Summary.TopK < 1 {
		return fmt.Errorf("summary top_k must be at least 1")
	}
	if config.EventLog.Path == "" {
		return fmt.Errorf("event log path is required")
	}

	for _, node := range config.Cache.Nodes {
		if err := ValidateRedisNode(node); err != nil {
			return err
		}
	}
	if d := config.Cache.Discovery; d.Enabled && d.Service == "" {
		return fmt.Errorf("cache discovery requires a service name")
	}
	if config.Cache.TTL < 1 {
		return fmt.Errorf("cache TTL must be at least 1 second")
	}

	return nil
}
