package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the entire application configuration
type Config struct {
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Registry RegistryConfig `mapstructure:"registry"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatasetConfig contains the dataset release location and the local data directory
type DatasetConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Dir     string `mapstructure:"dir"`
}

// FetchConfig contains download settings
type FetchConfig struct {
	ChunkSize   int    `mapstructure:"chunk_size"`
	HeadTimeout string `mapstructure:"head_timeout"`
}

// RegistryConfig contains NPI Registry lookup settings
type RegistryConfig struct {
	APIURL    string `mapstructure:"api_url"`
	Interval  string `mapstructure:"interval"`
	Timeout   string `mapstructure:"timeout"`
	CachePath string `mapstructure:"cache_path"`
}

// HTTPConfig contains dashboard HTTP server configuration
type HTTPConfig struct {
	BindAddr     string `mapstructure:"bind_addr"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from the specified file path. An empty path
// skips the file and returns the defaults.
func Load(configPath string) (*Config, error) {
	// Set defaults
	viper.SetDefault("dataset.base_url", "https://stopendataprod.blob.core.windows.net/datasets/medicaid-provider-spending/2026-02-09")
	viper.SetDefault("dataset.dir", "data")
	viper.SetDefault("fetch.chunk_size", 8192)
	viper.SetDefault("fetch.head_timeout", "10s")
	viper.SetDefault("registry.api_url", "https://npiregistry.cms.hhs.gov/api/")
	viper.SetDefault("registry.interval", "100ms")
	viper.SetDefault("registry.timeout", "10s")
	viper.SetDefault("registry.cache_path", "npi_cache.db")
	viper.SetDefault("http.bind_addr", "127.0.0.1:8050")
	viper.SetDefault("http.read_timeout", "30s")
	viper.SetDefault("http.write_timeout", "30s")
	viper.SetDefault("http.idle_timeout", "60s")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate dataset config
	if c.Dataset.BaseURL == "" {
		return fmt.Errorf("dataset.base_url is required")
	}
	if c.Dataset.Dir == "" {
		return fmt.Errorf("dataset.dir is required")
	}

	// Validate fetch config
	if c.Fetch.ChunkSize <= 0 {
		return fmt.Errorf("fetch.chunk_size must be positive")
	}
	if _, err := time.ParseDuration(c.Fetch.HeadTimeout); err != nil {
		return fmt.Errorf("invalid fetch.head_timeout: %w", err)
	}

	// Validate registry config
	if c.Registry.APIURL == "" {
		return fmt.Errorf("registry.api_url is required")
	}
	if _, err := time.ParseDuration(c.Registry.Interval); err != nil {
		return fmt.Errorf("invalid registry.interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Registry.Timeout); err != nil {
		return fmt.Errorf("invalid registry.timeout: %w", err)
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetChunkSize returns the download chunk size in bytes
func (c *FetchConfig) GetChunkSize() int {
	if c.ChunkSize <= 0 {
		return 8192
	}
	return c.ChunkSize
}

// GetHeadTimeout returns the size probe timeout as time.Duration
func (c *FetchConfig) GetHeadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HeadTimeout)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetInterval returns the pause between registry lookups as time.Duration
func (c *RegistryConfig) GetInterval() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// GetTimeout returns the registry request timeout as time.Duration
func (c *RegistryConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetWriteTimeout returns the write timeout as time.Duration
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *HTTPConfig) GetIdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	if d == 0 {
		return 60 * time.Second
	}
	return d
}
