package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix is the prefix for environment variable overrides, e.g.
// ALPHABETA_SERVER_PORT.
const envPrefix = "ALPHABETA"

// defaultConfigFile is checked when ALPHABETA_CONFIG is unset.
const defaultConfigFile = "alphabeta.yaml"

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Provider ProviderConfig `yaml:"provider" envconfig:"PROVIDER"`
	Risk     RiskConfig     `yaml:"risk" envconfig:"RISK"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// SecurityConfig contains request-level protections.
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains inbound rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// PathsConfig contains file system paths.
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReturnsFile string `yaml:"returns_file" envconfig:"RETURNS_FILE"`
	ReportsDir  string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
}

// ProviderConfig configures the market data provider.
type ProviderConfig struct {
	BaseURL  string        `yaml:"base_url" envconfig:"BASE_URL"`
	Symbol   string        `yaml:"symbol" envconfig:"SYMBOL"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	CacheTTL time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	RPS      float64       `yaml:"rps" envconfig:"RPS"`
	Burst    int           `yaml:"burst" envconfig:"BURST"`
}

// RiskConfig configures the rolling risk engine.
type RiskConfig struct {
	Window         int     `yaml:"window" envconfig:"WINDOW"`
	AlertThreshold float64 `yaml:"alert_threshold" envconfig:"ALERT_THRESHOLD"`
}

// Default returns the built-in configuration. File and environment
// sources are layered over it in that order.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Paths: PathsConfig{
			DataDir:     "data",
			ReturnsFile: "strategy_pnl.csv",
			ReportsDir:  "reports",
		},
		Provider: ProviderConfig{
			BaseURL:  "http://localhost:9100",
			Symbol:   "TWII",
			Timeout:  30 * time.Second,
			CacheTTL: time.Hour,
			RPS:      2,
			Burst:    1,
		},
		Risk: RiskConfig{
			Window:         60,
			AlertThreshold: 0.4,
		},
	}
}

// Load layers the optional YAML file over the defaults, then applies
// environment variables on top. The envconfig tags carry no default
// values on purpose; envconfig would reapply them over file-loaded
// fields whenever the variable is unset.
func Load() (*Config, error) {
	cfg := Default()

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// ReturnsPath is the absolute path of the strategy return log.
func (c *Config) ReturnsPath() string {
	return filepath.Join(c.Paths.DataDir, c.Paths.ReturnsFile)
}

// ReportsPath is the absolute path of the reports output directory.
func (c *Config) ReportsPath() string {
	return filepath.Join(c.Paths.DataDir, c.Paths.ReportsDir)
}

// Validate checks the loaded configuration for unusable values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider base URL is required")
	}
	if c.Provider.Symbol == "" {
		return fmt.Errorf("provider symbol is required")
	}
	if c.Risk.Window < 2 {
		return fmt.Errorf("risk window must be at least 2, got %d", c.Risk.Window)
	}
	if c.Risk.AlertThreshold <= 0 {
		return fmt.Errorf("risk alert threshold must be positive, got %g", c.Risk.AlertThreshold)
	}
	return nil
}

func configFilePath() string {
	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		return path
	}
	return defaultConfigFile
}

// loadFromFile unmarshals the YAML file over cfg; keys absent from the
// file leave the existing values untouched.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths makes the data directory absolute relative to the working
// directory so relative configs behave the same regardless of how the
// binary is launched.
func (c *Config) resolvePaths() {
	if !filepath.IsAbs(c.Paths.DataDir) {
		if wd, err := os.Getwd(); err == nil {
			c.Paths.DataDir = filepath.Join(wd, c.Paths.DataDir)
		}
	}
}
