package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Feed     FeedConfig     `yaml:"feed" mapstructure:"feed"`
	Gemini   GeminiConfig   `yaml:"gemini" mapstructure:"gemini"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Collect  CollectConfig  `yaml:"collect" mapstructure:"collect"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FeedConfig holds Bizinfo feed API settings.
type FeedConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Hashtag     string  `yaml:"hashtag" mapstructure:"hashtag"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// GeminiConfig holds Gemini API settings for the AI classification tier.
type GeminiConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	Model          string `yaml:"model" mapstructure:"model"`
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelaySecs int    `yaml:"batch_delay_secs" mapstructure:"batch_delay_secs"`
}

// ClassifyConfig holds the acceptance thresholds of the two classifier
// tiers. The collection run and the single-item entry point historically
// apply different keyword thresholds; both are kept configurable.
type ClassifyConfig struct {
	RunKeywordThreshold  float64 `yaml:"run_keyword_threshold" mapstructure:"run_keyword_threshold"`
	RunAIThreshold       float64 `yaml:"run_ai_threshold" mapstructure:"run_ai_threshold"`
	ItemKeywordThreshold float64 `yaml:"item_keyword_threshold" mapstructure:"item_keyword_threshold"`
	ItemAIThreshold      float64 `yaml:"item_ai_threshold" mapstructure:"item_ai_threshold"`
	BacklogLimit         int     `yaml:"backlog_limit" mapstructure:"backlog_limit"`
}

// CollectConfig configures the collection orchestrator.
type CollectConfig struct {
	DefaultCount  int `yaml:"default_count" mapstructure:"default_count"`
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the front-door HTTP server.
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
	v.SetEnvPrefix("BIZCOLLECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("feed.base_url", "https://www.bizinfo.go.kr/uss/rss/bizinfoApi.do")
	v.SetDefault("feed.hashtag", "경남")
	v.SetDefault("feed.timeout_secs", 30)
	v.SetDefault("feed.rate_per_sec", 5)
	v.SetDefault("gemini.model", "gemini-2.5-flash-lite")
	v.SetDefault("gemini.batch_size", 4)
	v.SetDefault("gemini.batch_delay_secs", 1)
	v.SetDefault("classify.run_keyword_threshold", 0.6)
	v.SetDefault("classify.run_ai_threshold", 0.5)
	v.SetDefault("classify.item_keyword_threshold", 0.7)
	v.SetDefault("classify.item_ai_threshold", 0.6)
	v.SetDefault("classify.backlog_limit", 100)
	v.SetDefault("collect.default_count", 50)
	v.SetDefault("collect.max_concurrent", 2)

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
