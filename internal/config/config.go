package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultRegistryPath = "./artists.json"
	DefaultHTTPPort     = 3000
	DefaultFlushEvery   = "@every 1m"
)

// Load reads the config file at path (if it exists), applies environment
// overrides, fills defaults and validates. A missing file is not an error;
// a malformed one is.
func Load(path string) (*Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := parseInto(path, b, &cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only operation
	default:
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseInto strictly decodes JSON (or YAML coerced to JSON) into cfg.
func parseInto(path string, b []byte, cfg *Config) error {
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("trailing data")
		}
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Registry.Path == "" {
		c.Registry.Path = DefaultRegistryPath
	}
	if c.Registry.FlushEvery == "" {
		c.Registry.FlushEvery = DefaultFlushEvery
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.RatePerSec <= 0 {
		c.HTTP.RatePerSec = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if !c.Logging.Console && !c.Logging.File.Enabled {
		c.Logging.Console = true
	}
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required (telegram.token or TELEGRAM_BOT_TOKEN)")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	return nil
}
