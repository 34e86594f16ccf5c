package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/conveyor-ci/conveyor/errors"
)

// envPrefix namespaces the environment variables the loader reads.
const envPrefix = "CONVEYOR_"

// DefaultPath returns the default configuration file location,
// ~/.config/conveyor/config.yaml on most systems.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "conveyor", "config.yaml")
}

// Load reads configuration from the given YAML file, overrides it with
// CONVEYOR_* environment variables, applies defaults and validates the
// result.
//
// Precedence, highest first: environment, YAML file, defaults. A missing
// file is not an error; the environment and defaults still apply. An empty
// path selects DefaultPath.
//
// Environment variables map to config keys by stripping the prefix,
// lowercasing, and splitting on the first underscore:
//
//	CONVEYOR_TAGS_PREFIX      -> tags.prefix
//	CONVEYOR_PUBLISHER_TOKEN  -> publisher.token
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if path == "" {
		path = DefaultPath()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, op, "reading config file")
		}
		raw = nil
	}
	return loadBytes(raw)
}

// LoadBytes parses configuration from raw YAML, with the same environment
// override and default behavior as Load. It backs tests and embedded
// configurations.
func LoadBytes(raw []byte) (*Config, error) {
	return loadBytes(raw)
}

func loadBytes(raw []byte) (*Config, error) {
	const op = "config.Load"

	k := koanf.New(".")

	if len(raw) > 0 {
		if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, op, "parsing config")
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, op, "loading environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, op, "unmarshaling config")
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envTransform maps CONVEYOR_SECTION_FIELD_NAME to section.field_name.
// The first underscore splits section from field; later underscores stay
// part of the field name.
func envTransform(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func applyDefaults(cfg *Config) {
	if cfg.Artifacts.Backend == "" {
		cfg.Artifacts.Backend = "local"
	}
	if cfg.Artifacts.Backend == "local" && cfg.Artifacts.Root == "" {
		cfg.Artifacts.Root = filepath.Join(xdg.DataHome, "conveyor", "artifacts")
	}
	if cfg.Tags.Prefix == "" {
		cfg.Tags.Prefix = "ci-build-"
	}
	if cfg.Tags.Width == 0 {
		cfg.Tags.Width = 4
	}
	if cfg.Tags.Retries == 0 {
		cfg.Tags.Retries = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}
