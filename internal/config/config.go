package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/meeting-agent/internal/gate"
	"github.com/sells-group/meeting-agent/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	CRM        CRMConfig        `yaml:"crm" mapstructure:"crm"`
	Calendar   CalendarConfig   `yaml:"calendar" mapstructure:"calendar"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Gate       GateConfig       `yaml:"gate" mapstructure:"gate"`
	Resolver   ResolverConfig   `yaml:"resolver" mapstructure:"resolver"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CRMConfig selects and configures the CRM read backend.
type CRMConfig struct {
	// Driver is one of "fixture", "sqlite", "postgres", "salesforce".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	FixturePath string `yaml:"fixture_path" mapstructure:"fixture_path"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`

	Breaker BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of the CRM store.
type BreakerConfig struct {
	Enabled         bool `yaml:"enabled" mapstructure:"enabled"`
	MaxFailures     int  `yaml:"max_failures" mapstructure:"max_failures"`
	OpenTimeoutSecs int  `yaml:"open_timeout_secs" mapstructure:"open_timeout_secs"`
}

// CalendarConfig configures context augmentation.
type CalendarConfig struct {
	Enabled    bool `yaml:"enabled" mapstructure:"enabled"`
	WindowDays int  `yaml:"window_days" mapstructure:"window_days"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string  `yaml:"client_id" mapstructure:"client_id"`
	Username string  `yaml:"username" mapstructure:"username"`
	KeyPath  string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string  `yaml:"login_url" mapstructure:"login_url"`
	RPS      float64 `yaml:"rps" mapstructure:"rps"`
}

// GateConfig tunes the confidence gate.
type GateConfig struct {
	Threshold            float64 `yaml:"threshold" mapstructure:"threshold"`
	CompanyThreshold     float64 `yaml:"company_threshold" mapstructure:"company_threshold"`
	ContactThreshold     float64 `yaml:"contact_threshold" mapstructure:"contact_threshold"`
	OpportunityThreshold float64 `yaml:"opportunity_threshold" mapstructure:"opportunity_threshold"`
	Margin               float64 `yaml:"margin" mapstructure:"margin"`
	Floor                float64 `yaml:"floor" mapstructure:"floor"`
	TopK                 int     `yaml:"top_k" mapstructure:"top_k"`
}

// Policy converts the gate settings into a resolver policy. Zero per-type
// thresholds fall back to the shared threshold.
func (g GateConfig) Policy() gate.Policy {
	p := gate.DefaultPolicy()
	if g.Threshold > 0 {
		p.Default = g.Threshold
	}
	if g.Margin > 0 {
		p.Margin = g.Margin
	}
	if g.Floor > 0 {
		p.Floor = g.Floor
	}
	if g.TopK > 0 {
		p.TopK = g.TopK
	}
	if g.CompanyThreshold > 0 {
		p.Thresholds[model.EntityCompany] = g.CompanyThreshold
	}
	if g.ContactThreshold > 0 {
		p.Thresholds[model.EntityContact] = g.ContactThreshold
	}
	if g.OpportunityThreshold > 0 {
		p.Thresholds[model.EntityOpportunity] = g.OpportunityThreshold
	}
	return p
}

// ResolverConfig tunes candidate scoring.
type ResolverConfig struct {
	CompanyBonus    float64 `yaml:"company_bonus" mapstructure:"company_bonus"`
	CompanyMatchMin float64 `yaml:"company_match_min" mapstructure:"company_match_min"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentNotes int `yaml:"max_concurrent_notes" mapstructure:"max_concurrent_notes"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MEETING_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("crm.driver", "fixture")
	v.SetDefault("crm.breaker.enabled", true)
	v.SetDefault("crm.breaker.max_failures", 3)
	v.SetDefault("crm.breaker.open_timeout_secs", 30)
	v.SetDefault("calendar.enabled", true)
	v.SetDefault("calendar.window_days", 7)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("anthropic.rps", 2)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("gate.threshold", 85)
	v.SetDefault("gate.margin", 5)
	v.SetDefault("gate.floor", 40)
	v.SetDefault("gate.top_k", 3)
	v.SetDefault("resolver.company_bonus", 10)
	v.SetDefault("resolver.company_match_min", 80)
	v.SetDefault("batch.max_concurrent_notes", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
