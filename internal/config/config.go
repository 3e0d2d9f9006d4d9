package config

import (
	"time"

	"github.com/platformbuilds/vigilante-core/internal/discovery"
	"github.com/platformbuilds/vigilante-core/internal/models"
)

type Config struct {
	Environment   string `mapstructure:"environment" yaml:"environment"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`
	ConsoleFormat string `mapstructure:"console_format" yaml:"console_format"`

	Analysis   AnalysisConfig   `mapstructure:"analysis" yaml:"analysis"`
	FixedRules FixedRulesConfig `mapstructure:"fixed_rules" yaml:"fixed_rules"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	EventLog   EventLogConfig   `mapstructure:"event_log" yaml:"event_log"`
	Summary    SummaryConfig    `mapstructure:"summary" yaml:"summary"`
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`
}

// AnalysisConfig drives threshold estimation and window summaries.
type AnalysisConfig struct {
	LookbackMin            int       `mapstructure:"lookback_min" yaml:"lookback_min"`
	StepPoints             int       `mapstructure:"step_points" yaml:"step_points"`
	BaselineFraction       float64   `mapstructure:"baseline_fraction" yaml:"baseline_fraction"`
	AccumRateHours         float64   `mapstructure:"accum_rate_hours" yaml:"accum_rate_hours"`
	AccumWindowThresholdMm float64   `mapstructure:"accum_window_threshold_mm" yaml:"accum_window_threshold_mm"`
	BollingerK             float64   `mapstructure:"bollinger_k" yaml:"bollinger_k"`
	SlidingWindowHours     float64   `mapstructure:"sliding_window_hours" yaml:"sliding_window_hours"`
	EMAHours               []float64 `mapstructure:"ema_hours" yaml:"ema_hours"`
	StartAt                string    `mapstructure:"start_at" yaml:"start_at"` // "2006-01-02 15:04", empty = from first sample
}

// FixedRulesConfig enables the operator limits. When disabled only the
// adaptive thresholds decide.
type FixedRulesConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	models.FixedRules `mapstructure:",squash" yaml:",inline"`
}

// Rules returns the configured limits, or nil when fixed rules are off.
func (f FixedRulesConfig) Rules() *models.FixedRules {
	if !f.Enabled {
		return nil
	}
	r := f.FixedRules
	return &r
}

type EventLogConfig struct {
	Path              string `mapstructure:"path" yaml:"path"`
	OnlyDisagreements bool   `mapstructure:"only_disagreements" yaml:"only_disagreements"`
	MaxSizeMB         int    `mapstructure:"max_size_mb" yaml:"max_size_mb"` // 0 = plain append, no rotation
	MaxBackups        int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress          bool   `mapstructure:"compress" yaml:"compress"`
}

type SummaryConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	TopK int    `mapstructure:"top_k" yaml:"top_k"`
}

type SimulationConfig struct {
	CSVPath string        `mapstructure:"csv_path" yaml:"csv_path"`
	Sleep   time.Duration `mapstructure:"sleep" yaml:"sleep"`
}

type ServerConfig struct {
	Port      int        `mapstructure:"port" yaml:"port"`
	StaticDir string     `mapstructure:"static_dir" yaml:"static_dir"`
	CORS      CORSConfig `mapstructure:"cors" yaml:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// CacheConfig points at a Redis/Valkey node. An empty node list keeps the
// cache in process memory.
type CacheConfig struct {
	Nodes    []string `mapstructure:"nodes" yaml:"nodes"`
	Password string   `mapstructure:"password" yaml:"password"`
	DB       int      `mapstructure:"db" yaml:"db"`
	TTL      int      `mapstructure:"ttl" yaml:"ttl"` // seconds

	// Discovery replaces Nodes with the addresses behind a DNS name.
	Discovery discovery.DNSConfig `mapstructure:"discovery" yaml:"discovery"`
}

type MonitoringConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	MetricsPath    string `mapstructure:"metrics_path" yaml:"metrics_path"`
	TracingEnabled bool   `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name" yaml:"service_name"`
}

// EMAHoursArray returns the three EMA horizons, padding missing entries
// with the defaults.
func (a AnalysisConfig) EMAHoursArray() [3]float64 {
	out := [3]float64{1, 3, 12}
	for i := 0; i < len(a.EMAHours) && i < 3; i++ {
		if a.EMAHours[i] > 0 {
			out[i] = a.EMAHours[i]
		}
	}
	return out
}
