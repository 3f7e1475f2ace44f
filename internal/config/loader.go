package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	oerrors "github.com/opmodel/editions/internal/errors"
)

// Environment variable prefix for editions configuration.
const envPrefix = "EDITIONS"

// envKeys maps config keys that can be overridden from the environment to
// their variable names.
var envKeys = map[string]string{
	"layersDir":  envPrefix + "_LAYERS_DIR",
	"outputDir":  envPrefix + "_OUTPUT_DIR",
	"imageSize":  envPrefix + "_IMAGE_SIZE",
	"maxRetries": envPrefix + "_MAX_RETRIES",
	"workers":    envPrefix + "_WORKERS",
	"seed":       envPrefix + "_SEED",
	"ledger":     envPrefix + "_LEDGER",
}

// Loader reads the config file and exposes environment overrides.
//
// File values and environment values are kept apart so the resolver can
// report which source won and which values it shadowed.
type Loader struct {
	v   *viper.Viper
	env *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	env := viper.New()
	env.SetEnvPrefix(envPrefix)
	env.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, name := range envKeys {
		_ = env.BindEnv(key, name)
	}

	return &Loader{v: viper.New(), env: env}
}

// Load reads the config file at path. A missing file is reported as a
// not-found error.
func (l *Loader) Load(path string) (*Config, error) {
	expandedPath, err := ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}

	l.v.SetConfigFile(expandedPath)
	switch strings.ToLower(filepath.Ext(expandedPath)) {
	case ".json":
		l.v.SetConfigType("json")
	default:
		l.v.SetConfigType("yaml")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, fs.ErrNotExist):
			return nil, oerrors.NewNotFoundError("configuration file not found", expandedPath,
				"Run 'editions config init' to create one, or pass --config")
		case errors.Is(err, fs.ErrPermission):
			return nil, oerrors.NewPermissionError("cannot read configuration file", expandedPath, "")
		default:
			return nil, oerrors.NewValidationError(err.Error(), expandedPath, "",
				"The config file must be valid YAML or JSON")
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, oerrors.NewValidationError(err.Error(), expandedPath, "", "")
	}

	return &cfg, nil
}

// EnvValue returns the environment override for key, if one is set.
func (l *Loader) EnvValue(key string) (string, bool) {
	if _, ok := envKeys[key]; !ok {
		return "", false
	}
	if !l.env.IsSet(key) {
		return "", false
	}
	return l.env.GetString(key), true
}

// EnvName returns the environment variable bound to key.
func EnvName(key string) string {
	return envKeys[key]
}

// ConfigFileExists checks if the config file exists.
func ConfigFileExists(configFile string) (bool, error) {
	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(expandedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
