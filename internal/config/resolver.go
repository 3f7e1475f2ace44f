package config

import (
	"fmt"
	"os"
	"strconv"

	oerrors "github.com/opmodel/editions/internal/errors"
	"github.com/opmodel/editions/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// ResolvedValue records a resolved setting and the values it shadowed.
type ResolvedValue struct {
	Key      string
	Value    any
	Source   ConfigSource
	Shadowed map[ConfigSource]any
}

// ResolveConfigPath resolves the config file path using precedence:
// (1) --config flag, (2) EDITIONS_CONFIG env, (3) ./editions.yaml.
func ResolveConfigPath(flagValue string) ResolvedValue {
	result := ResolvedValue{Key: "config", Shadowed: make(map[ConfigSource]any)}
	envValue := os.Getenv(EnvConfig)

	switch {
	case flagValue != "":
		result.Value, result.Source = flagValue, SourceFlag
		if envValue != "" {
			result.Shadowed[SourceEnv] = envValue
		}
		result.Shadowed[SourceDefault] = DefaultConfigFile
	case envValue != "":
		result.Value, result.Source = envValue, SourceEnv
		result.Shadowed[SourceDefault] = DefaultConfigFile
	default:
		result.Value, result.Source = DefaultConfigFile, SourceDefault
	}

	return result
}

// Overrides holds command-line values. A nil field means the flag was not set.
type Overrides struct {
	LayersDir  *string
	OutputDir  *string
	ImageSize  *int
	Resize     *bool
	MaxRetries *int
	Workers    *int
	Seed       *uint64
	Cleanup    *bool
	Ledger     *string
}

// Resolve layers flags over environment over the config file over defaults
// and returns the effective, normalized configuration. The file config is not
// modified.
func Resolve(file *Config, ov Overrides, l *Loader) (*Config, []ResolvedValue, error) {
	cfg := *file
	var values []ResolvedValue

	str := func(key string, dst *string, flag *string, def string) {
		rv := pick(key, flag, l, *dst, *dst != "", def, func(s string) (string, error) { return s, nil })
		*dst = rv.Value.(string)
		values = append(values, rv)
	}
	var parseErr error
	num := func(key string, dst *int, flag *int, def int) {
		rv := pick(key, flag, l, *dst, *dst != 0, def, strconv.Atoi)
		if rv.Value == nil {
			parseErr = envError(key)
			return
		}
		*dst = rv.Value.(int)
		values = append(values, rv)
	}

	str("layersDir", &cfg.LayersDir, ov.LayersDir, DefaultLayersDir)
	str("outputDir", &cfg.OutputDir, ov.OutputDir, DefaultOutputDir)
	str("ledger", &cfg.Ledger, ov.Ledger, "")
	num("imageSize", &cfg.ImageSize, ov.ImageSize, DefaultImageSize)
	num("workers", &cfg.Workers, ov.Workers, DefaultWorkers)

	retries := pick("maxRetries", ov.MaxRetries, l, derefOr(cfg.MaxRetries, 0), cfg.MaxRetries != nil, DefaultMaxRetries, strconv.Atoi)
	if retries.Value == nil {
		parseErr = envError("maxRetries")
	} else {
		cfg.MaxRetries = intPtr(retries.Value.(int))
		values = append(values, retries)
	}

	seed := pick("seed", ov.Seed, l, cfg.Seed, cfg.Seed != 0, 0, func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, 64)
	})
	if seed.Value == nil {
		parseErr = envError("seed")
	} else {
		cfg.Seed = seed.Value.(uint64)
		values = append(values, seed)
	}
	if parseErr != nil {
		return nil, nil, parseErr
	}

	resize := ResolvedValue{Key: "resize", Value: cfg.ResizeEnabled(), Source: SourceDefault, Shadowed: map[ConfigSource]any{}}
	if cfg.Resize != nil {
		resize.Source = SourceConfig
	}
	if ov.Resize != nil {
		if cfg.Resize != nil {
			resize.Shadowed[SourceConfig] = *cfg.Resize
		}
		resize.Value, resize.Source = *ov.Resize, SourceFlag
		cfg.Resize = ov.Resize
	}
	values = append(values, resize)

	cleanup := ResolvedValue{Key: "cleanup", Value: cfg.Cleanup, Source: SourceDefault, Shadowed: map[ConfigSource]any{}}
	if cfg.Cleanup {
		cleanup.Source = SourceConfig
	}
	if ov.Cleanup != nil {
		cleanup.Shadowed[cleanup.Source] = cfg.Cleanup
		cfg.Cleanup = *ov.Cleanup
		cleanup.Value, cleanup.Source = cfg.Cleanup, SourceFlag
	}
	values = append(values, cleanup)

	cfg.Editions = cloneEditions(file.Editions)
	return cfg.Normalize(), values, nil
}

// pick applies flag > env > config > default for one key. A nil Value in the
// result means the environment value could not be parsed.
func pick[T any](key string, flag *T, l *Loader, fileVal T, fileSet bool, def T, parse func(string) (T, error)) ResolvedValue {
	rv := ResolvedValue{Key: key, Shadowed: make(map[ConfigSource]any)}

	var env *T
	if raw, ok := l.EnvValue(key); ok {
		v, err := parse(raw)
		if err != nil {
			return rv
		}
		env = &v
	}

	switch {
	case flag != nil:
		rv.Value, rv.Source = *flag, SourceFlag
		if env != nil {
			rv.Shadowed[SourceEnv] = *env
		}
		if fileSet {
			rv.Shadowed[SourceConfig] = fileVal
		}
	case env != nil:
		rv.Value, rv.Source = *env, SourceEnv
		if fileSet {
			rv.Shadowed[SourceConfig] = fileVal
		}
	case fileSet:
		rv.Value, rv.Source = fileVal, SourceConfig
	default:
		rv.Value, rv.Source = def, SourceDefault
	}
	return rv
}

func envError(key string) error {
	return oerrors.NewValidationError(
		fmt.Sprintf("invalid value in %s", EnvName(key)), "", key,
		"Use a non-negative integer")
}

func cloneEditions(in []EditionGroupConfig) []EditionGroupConfig {
	out := make([]EditionGroupConfig, len(in))
	for i, g := range in {
		out[i] = EditionGroupConfig{Size: g.Size, Order: append([]PlanEntryConfig(nil), g.Order...)}
	}
	return out
}

// LogResolvedValues logs configuration resolution at DEBUG level.
func LogResolvedValues(values []ResolvedValue) {
	for _, v := range values {
		output.Debug("config value resolved",
			"key", v.Key,
			"value", v.Value,
			"source", v.Source,
		)
		for source, shadowed := range v.Shadowed {
			output.Debug("  shadowed by higher precedence",
				"key", v.Key,
				"shadowed_source", source,
				"shadowed_value", shadowed,
			)
		}
	}
}
