// Package config loads sitecat settings from an optional YAML file, SITECAT_
// environment variables and built-in defaults, in that order of precedence
// after command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Corpus        string `mapstructure:"corpus"`
	CacheDir      string `mapstructure:"cache_dir"`
	ModelDir      string `mapstructure:"model_dir"`
	Language      string `mapstructure:"language"`
	Stemming      bool   `mapstructure:"stemming"`
	StopwordsFile string `mapstructure:"stopwords_file"`
	MaxFeatures   int    `mapstructure:"max_features"`
	Seed          int64  `mapstructure:"seed"`

	Fetch  FetchConfig  `mapstructure:"fetch"`
	Train  TrainConfig  `mapstructure:"train"`
	Pull   PullConfig   `mapstructure:"pull"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// FetchConfig configures page fetching.
type FetchConfig struct {
	Browser        bool          `mapstructure:"browser"`
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// TrainConfig configures the linear model.
type TrainConfig struct {
	Alpha  float64 `mapstructure:"alpha"`
	Epochs int     `mapstructure:"epochs"`
}

// PullConfig configures bulk prefetching.
type PullConfig struct {
	Concurrency int     `mapstructure:"concurrency"`
	Rate        float64 `mapstructure:"rate"` // requests per second
}

// ServerConfig configures the HTTP endpoint.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. When path is empty, sitecat.yaml in the working
// directory is used if present; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sitecat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("SITECAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("corpus", "websites.txt")
	v.SetDefault("cache_dir", "websites")
	v.SetDefault("model_dir", "models")
	v.SetDefault("language", "polish")
	v.SetDefault("stemming", true)
	v.SetDefault("stopwords_file", "")
	v.SetDefault("max_features", 1000)
	v.SetDefault("seed", 123)
	v.SetDefault("fetch.browser", true)
	v.SetDefault("fetch.browser_timeout", "20s")
	v.SetDefault("fetch.http_timeout", "30s")
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("train.alpha", 1e-4)
	v.SetDefault("train.epochs", 20)
	v.SetDefault("pull.concurrency", 4)
	v.SetDefault("pull.rate", 2.0)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "error")
	v.SetDefault("log.format", "text")

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that settings are usable.
func (c *Config) Validate() error {
	var errs []string

	if c.Language == "" {
		errs = append(errs, "language must be set")
	}
	if c.MaxFeatures <= 0 {
		errs = append(errs, "max_features must be > 0")
	}
	if c.Train.Alpha <= 0 {
		errs = append(errs, "train.alpha must be > 0")
	}
	if c.Train.Epochs <= 0 {
		errs = append(errs, "train.epochs must be > 0")
	}
	if c.Pull.Concurrency <= 0 {
		errs = append(errs, "pull.concurrency must be > 0")
	}
	if c.Pull.Rate <= 0 {
		errs = append(errs, "pull.rate must be > 0")
	}
	if c.Fetch.BrowserTimeout <= 0 || c.Fetch.HTTPTimeout <= 0 {
		errs = append(errs, "fetch timeouts must be > 0")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
