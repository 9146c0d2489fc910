package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
)

// FileConfig defines the structure loaded from the optional YAML file.
// Everything here can also come from environment variables, which win.
type FileConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	LogLevel     string `yaml:"log_level"`
}

// Config holds the final application configuration, merged from the optional
// file and environment variables with the prefix "UNOPIM_".
type Config struct {
	// Config file path, loaded first from env.
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	// Backend connection. The four credential strings are immutable for the
	// process lifetime and are handed to the token manager only.
	BaseURL      string `envconfig:"BASE_URL"`
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
	Username     string `envconfig:"USERNAME"`
	Password     string `envconfig:"PASSWORD"`

	ListenAddr        string        `envconfig:"LISTEN_ADDR" default:":8080"`
	HealthAddr        string        `envconfig:"HEALTH_ADDR" default:":8081"`
	HTTPClientTimeout time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`

	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE" default:"/tmp/unopim-mcp.log"`
}

// Credentials returns the credential store handed to the token manager.
func (c *Config) Credentials() domain.Credentials {
	return domain.Credentials{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Username:     c.Username,
		Password:     c.Password,
	}
}

// ParsedLogLevel returns the slog.Level for the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Validate checks that the backend connection is fully specified.
func (c *Config) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "UNOPIM_BASE_URL")
	}
	if c.ClientID == "" {
		missing = append(missing, "UNOPIM_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "UNOPIM_CLIENT_SECRET")
	}
	if c.Username == "" {
		missing = append(missing, "UNOPIM_USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, "UNOPIM_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Load loads configuration: a local .env first (if present), then environment
// variables to learn the file path, then the YAML file, and finally the
// environment again so env vars override file values.
func Load() (*Config, error) {
	// A missing .env is fine; it is a development convenience.
	_ = godotenv.Load()

	var initialCfg Config
	if err := envconfig.Process("unopim", &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	finalCfg := initialCfg
	if initialCfg.ConfigFilePath != "" {
		yamlFile, err := os.ReadFile(initialCfg.ConfigFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", initialCfg.ConfigFilePath, err)
		}
		var fileCfg FileConfig
		if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", initialCfg.ConfigFilePath, err)
		}
		applyFileConfig(&finalCfg, fileCfg)
		slog.Info("Loaded configuration from file.", "path", initialCfg.ConfigFilePath)
	}

	if err := finalCfg.Validate(); err != nil {
		return nil, err
	}
	return &finalCfg, nil
}

// applyFileConfig merges file values into cfg. Environment variables win:
// a file value is applied only when the corresponding env var is unset.
func applyFileConfig(cfg *Config, file FileConfig) {
	merge := func(envKey, fileValue string, target *string) {
		if fileValue == "" {
			return
		}
		if _, set := os.LookupEnv(envKey); set {
			return
		}
		*target = fileValue
	}
	merge("UNOPIM_BASE_URL", file.BaseURL, &cfg.BaseURL)
	merge("UNOPIM_CLIENT_ID", file.ClientID, &cfg.ClientID)
	merge("UNOPIM_CLIENT_SECRET", file.ClientSecret, &cfg.ClientSecret)
	merge("UNOPIM_USERNAME", file.Username, &cfg.Username)
	merge("UNOPIM_PASSWORD", file.Password, &cfg.Password)
	merge("UNOPIM_LOG_LEVEL", file.LogLevel, &cfg.LogLevel)
}
