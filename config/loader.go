package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/theoremus-urban-solutions/gtfs-transformer/transform"
)

// Config is the global application configuration
var Config AppConfig

// SearchPaths are tried in order by LoadAppConfig.
var SearchPaths = []string{"gtfs-transformer.yml", "config.yml"}

// Default returns the configuration used when no file is given.
func Default() AppConfig {
	cfg := AppConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *AppConfig) applyDefaults() {
	if len(c.Strategies) == 0 {
		c.Strategies = []string{transform.CompactIDsName}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads the configuration file at path.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadAppConfig loads the first file of SearchPaths into Config. When none
// exists Config holds the defaults and the returned error wraps
// os.ErrNotExist.
func LoadAppConfig() error {
	for _, p := range SearchPaths {
		cfg, err := Load(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		Config = *cfg
		return nil
	}
	Config = Default()
	return fmt.Errorf("no config file in %v: %w", SearchPaths, os.ErrNotExist)
}
