// Package config loads the settings of the alerttiles CLI: built-in defaults,
// optionally a preset, then a YAML file and finally ALERTTILES_* environment variables.
package config

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/pdok/alerttiles/layer"
)

const EnvPrefix = "ALERTTILES_"

type Config struct {
	// Preset is the id of the embedded preset the settings started from.
	Preset  string        `json:"preset" koanf:"preset"`
	Layer   layer.Options `json:"layer" koanf:"layer"`
	Source  Source        `json:"source" koanf:"source"`
	Logging Logging       `json:"logging" koanf:"logging"`
}

// Default returns the built-in settings, with the preset presetID applied when
// it is not empty.
func Default(presetID string) (Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return cfg, err
	}
	if presetID != "" {
		p, err := LoadEmbeddedPreset(presetID)
		if err != nil {
			return cfg, err
		}
		p.Apply(&cfg)
	}
	return cfg, nil
}

// Load layers the YAML file at path (optional) and the environment over Default(presetID).
func Load(path string, presetID string) (Config, error) {
	base, err := Default(presetID)
	if err != nil {
		return base, err
	}
	k := koanf.New(".")
	if err = k.Load(structs.Provider(base, "koanf"), nil); err != nil {
		return base, fmt.Errorf("failed to load defaults: %w", err)
	}
	if path != "" {
		if err = k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return base, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	envKeys := EnvNames(k.Keys())
	if err = k.Load(env.Provider(EnvPrefix, ".", func(s string) string { return envKeys[s] }), nil); err != nil {
		return base, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err = k.Unmarshal("", &cfg); err != nil {
		return base, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// EnvNames maps environment variable names to config keys,
// e.g. ALERTTILES_SOURCE_HTTP_URL_TEMPLATE to source.http.urlTemplate.
func EnvNames(keys []string) map[string]string {
	names := make(map[string]string, len(keys))
	for _, key := range keys {
		names[EnvPrefix+strcase.ToScreamingSnake(key)] = key
	}
	return names
}

func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(c)
}
