package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is prepended to every environment override, e.g. TABLESYNC_STORE_HOST.
const EnvPrefix = "TABLESYNC"

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Platform PlatformConfig `yaml:"platform" mapstructure:"platform"`
	Dataloop DataloopConfig `yaml:"dataloop" mapstructure:"dataloop"`
	Notion   NotionConfig   `yaml:"notion" mapstructure:"notion"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Sweep    SweepConfig    `yaml:"sweep" mapstructure:"sweep"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig locates the prompts table's database. The password is never
// configured here; it is read from the environment variable named by
// PasswordEnv when a connection is opened.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	Host        string            `yaml:"host" mapstructure:"host"`
	Port        int               `yaml:"port" mapstructure:"port"`
	User        string            `yaml:"user" mapstructure:"user"`
	Database    string            `yaml:"database" mapstructure:"database"`
	Table       string            `yaml:"table" mapstructure:"table"`
	PasswordEnv string            `yaml:"password_env" mapstructure:"password_env"`
	Attributes  map[string]string `yaml:"attributes" mapstructure:"attributes"`
}

// PlatformConfig selects the document platform.
type PlatformConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// DataloopConfig holds Dataloop API settings.
type DataloopConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// NotionConfig holds Notion API credentials and the responses database.
type NotionConfig struct {
	Token      string  `yaml:"token" mapstructure:"token"`
	ResponseDB string  `yaml:"response_db" mapstructure:"response_db"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// SweepConfig configures collection sweeps.
type SweepConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// .env never overrides variables already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "singlestore")
	v.SetDefault("store.host", "")
	v.SetDefault("store.port", 0)
	v.SetDefault("store.user", "")
	v.SetDefault("store.database", "")
	v.SetDefault("store.table", "")
	v.SetDefault("store.password_env", "SINGLESTORE_PASSWORD")
	v.SetDefault("platform.provider", "dataloop")
	v.SetDefault("dataloop.token", "")
	v.SetDefault("dataloop.base_url", "https://gate.dataloop.ai/api/v1")
	v.SetDefault("dataloop.rate_limit", 10)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.response_db", "")
	v.SetDefault("notion.rate_limit", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("sweep.concurrency", 4)
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

// Validate checks the settings a command mode needs. Modes are "export",
// "update", "sweep" and "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "export", "update", "sweep", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "singlestore", "mysql", "postgres", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.Port < 0 || c.Store.Port > 65535 {
		problems = append(problems, "store.port must be between 0 and 65535")
	}
	if c.Store.Driver != "sqlite" && c.Store.PasswordEnv == "" {
		problems = append(problems, "store.password_env is required")
	}

	switch c.Platform.Provider {
	case "dataloop":
		if c.Dataloop.Token == "" {
			problems = append(problems, "dataloop.token is required")
		}
	case "notion":
		if c.Notion.Token == "" {
			problems = append(problems, "notion.token is required")
		}
		if mode != "export" && c.Notion.ResponseDB == "" {
			problems = append(problems, "notion.response_db is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("platform.provider %q is not supported", c.Platform.Provider))
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, "server.port must be > 0 and <= 65535")
	}
	if mode == "sweep" && (c.Sweep.Concurrency < 1 || c.Sweep.Concurrency > 64) {
		problems = append(problems, "sweep.concurrency must be between 1 and 64")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
