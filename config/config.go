package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix marks environment variables read by Load, e.g. RURL_CLIENT_MAXREQUEST.
	EnvPrefix = "RURL_"
	// DefaultFile is read by Load when no explicit path is given and it exists.
	DefaultFile = "rurl.yaml"
)

// Load builds the configuration from, lowest priority first:
// 1. built-in defaults
// 2. the YAML file at path (DefaultFile when path is empty and present)
// 3. RURL_* environment variables
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Category: "invalid", Field: path, Message: "could not read config file", Details: []string{err.Error()}}
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return finish(k)
}

// LoadBytes builds the configuration from defaults overlaid with a YAML document.
// Environment variables are not consulted.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, &ConfigError{Category: "invalid", Field: "yaml", Message: "could not parse document", Details: []string{err.Error()}}
	}
	return finish(k)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := LoadBytes(nil)
	if err != nil {
		panic(fmt.Sprintf("config: invalid built-in defaults: %v", err))
	}
	return cfg
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.timeout":         "30s",
		"client.maxrequest":      3,
		"client.expiresoffset":   "8h",
		"client.requestidheader": "X-Request-ID",
		"client.rate.limit":      0,
		"client.rate.burst":      0,

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":        false,
		"observability.servicename":    "rurl",
		"observability.endpoint":       "stdout",
		"observability.protocol":       "http",
		"observability.samplerate":     1.0,
		"observability.metrics":        true,
		"observability.metricinterval": "30s",
		"observability.exporttimeout":  "10s",
	}
	return k.Load(confmap.Provider(defaults, "."), nil)
}
