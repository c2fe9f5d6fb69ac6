// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	pserr "github.com/photostack-dev/photostack/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level PhotoStack configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Index    IndexConfig    `mapstructure:"index"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Provider ProviderConfig `mapstructure:"provider"`
}

// ServerConfig controls how PhotoStack listens for connections.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// IngestConfig controls where ingested images and their derived files
// live, and the endpoint the watcher and scanner submit to.
type IngestConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	DataDir  string `mapstructure:"data_dir"`
}

// WatchConfig controls the live filesystem watcher.
type WatchConfig struct {
	Dirs             []string      `mapstructure:"dirs"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	StabilizeTimeout time.Duration `mapstructure:"stabilize_timeout"`
	Extensions       []string      `mapstructure:"extensions"`
}

// ScanConfig controls the periodic reconciliation scanner.
type ScanConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// IndexConfig locates the file change index database.
type IndexConfig struct {
	Path string `mapstructure:"path"`
}

// VectorConfig locates the vector store and fixes its geometry.
type VectorConfig struct {
	Path       string `mapstructure:"path"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

// ProviderConfig holds credentials, endpoint, and model selection for
// the OpenAI-compatible provider.
type ProviderConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	EmbedModel   string `mapstructure:"embed_model"`
	QAModel      string `mapstructure:"qa_model"`
	AutoTagModel string `mapstructure:"autotag_model"`
	OCRModel     string `mapstructure:"ocr_model"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix PHOTOSTACK_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8088")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("ingest.endpoint", "http://127.0.0.1:8088")
	v.SetDefault("ingest.data_dir", "./data/images")
	v.SetDefault("watch.poll_interval", 500*time.Millisecond)
	v.SetDefault("watch.stabilize_timeout", 30*time.Second)
	v.SetDefault("watch.extensions", []string{".jpg", ".jpeg", ".png", ".webp", ".tif", ".tiff"})
	v.SetDefault("scan.interval", 30*time.Second)
	v.SetDefault("index.path", "./data/index.db")
	v.SetDefault("vector.path", "./data/vectors.db")
	v.SetDefault("vector.collection", "photostack")
	v.SetDefault("vector.dimension", 768)
	v.SetDefault("provider.embed_model", "clip-vit-l-14")
	v.SetDefault("provider.qa_model", "gpt-4o-mini")
	v.SetDefault("provider.autotag_model", "gpt-4o-mini")
	v.SetDefault("provider.ocr_model", "gpt-4o-mini")

	// Environment
	v.SetEnvPrefix("PHOTOSTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, pserr.Errorf(pserr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, pserr.Errorf(pserr.CodeConfigLoadReadFailure, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, pserr.Errorf(pserr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns a
// slice of all validation errors found, collecting all issues rather
// than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateIngest()...)
	errs = append(errs, c.validateWatch()...)
	errs = append(errs, c.validateScan()...)
	errs = append(errs, c.validateVector()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q",
			portStr,
		))
	} else if port < 1 || port > 65535 {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d",
			port,
		))
	}

	return errs
}

func (c *Config) validateIngest() []error {
	var errs []error

	if c.Ingest.DataDir == "" {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue, "config: ingest.data_dir must not be empty"))
	}

	if c.Ingest.Endpoint == "" {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue, "config: ingest.endpoint must not be empty"))
	} else if !strings.HasPrefix(c.Ingest.Endpoint, "http://") && !strings.HasPrefix(c.Ingest.Endpoint, "https://") {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue,
			"config: ingest.endpoint must be an http(s) URL, got %q",
			c.Ingest.Endpoint,
		))
	}

	return errs
}

func (c *Config) validateWatch() []error {
	var errs []error

	if c.Watch.PollInterval <= 0 {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue,
			"config: watch.poll_interval must be greater than 0, got %s",
			c.Watch.PollInterval,
		))
	}

	if c.Watch.StabilizeTimeout <= 0 {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue,
			"config: watch.stabilize_timeout must be greater than 0, got %s",
			c.Watch.StabilizeTimeout,
		))
	}

	for i, ext := range c.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue,
				"config: watch.extensions[%d] must start with a dot, got %q",
				i, ext,
			))
		}
	}

	return errs
}

func (c *Config) validateScan() []error {
	var errs []error

	if c.Scan.Interval <= 0 {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue,
			"config: scan.interval must be greater than 0, got %s",
			c.Scan.Interval,
		))
	}

	return errs
}

func (c *Config) validateVector() []error {
	var errs []error

	if c.Vector.Path == "" {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue, "config: vector.path must not be empty"))
	}

	if c.Vector.Collection == "" {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue, "config: vector.collection must not be empty"))
	}

	if c.Vector.Dimension <= 0 {
		errs = append(errs, pserr.Errorf(pserr.CodeConfigValidateInvalidValue,
			"config: vector.dimension must be greater than 0, got %d",
			c.Vector.Dimension,
		))
	}

	return errs
}
