package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opmodel/editions/internal/errors"
)

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from yaml file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "editions.yaml")
		content := `
layersDir: ./art
outputDir: ./out
imageSize: 512
resize: false
maxRetries: 50
seed: 42
registryScope: run
metadata:
  name: Critters
  imageURI: ipfs://cid/
  dominantColor:
    enabled: true
    method: kmeans
editions:
  - size: 5
    order:
      - name: background
      - name: eyes
        pickMin: 0
        pickMax: 2
log:
  timestamps: false
`
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

		cfg, err := NewLoader().Load(configFile)
		require.NoError(t, err)

		assert.Equal(t, "./art", cfg.LayersDir)
		assert.Equal(t, "./out", cfg.OutputDir)
		assert.Equal(t, 512, cfg.ImageSize)
		require.NotNil(t, cfg.Resize)
		assert.False(t, *cfg.Resize)
		require.NotNil(t, cfg.MaxRetries)
		assert.Equal(t, 50, *cfg.MaxRetries)
		assert.Equal(t, uint64(42), cfg.Seed)
		assert.Equal(t, ScopeRun, cfg.RegistryScope)
		assert.Equal(t, "Critters", cfg.Metadata.Name)
		assert.True(t, cfg.Metadata.DominantColor.Enabled)
		assert.Equal(t, ColorMethodKMeans, cfg.Metadata.DominantColor.Method)
		require.NotNil(t, cfg.Log.Timestamps)
		assert.False(t, *cfg.Log.Timestamps)

		require.Len(t, cfg.Editions, 1)
		order := cfg.Editions[0].Order
		require.Len(t, order, 2)
		assert.Nil(t, order[0].PickMin)
		require.NotNil(t, order[1].PickMin)
		assert.Equal(t, 0, *order[1].PickMin)
		assert.Equal(t, 2, *order[1].PickMax)
	})

	t.Run("loads json by extension", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "editions.json")
		content := `{"imageSize": 256, "editions": [{"size": 2, "order": [{"name": "bg"}]}]}`
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

		cfg, err := NewLoader().Load(configFile)
		require.NoError(t, err)
		assert.Equal(t, 256, cfg.ImageSize)
		assert.Equal(t, "bg", cfg.Editions[0].Order[0].Name)
	})

	t.Run("missing file is not found", func(t *testing.T) {
		_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, oerrors.ErrNotFound)
	})

	t.Run("malformed file is a validation error", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "editions.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("editions: [\n"), 0o644))

		_, err := NewLoader().Load(configFile)
		require.Error(t, err)
		assert.ErrorIs(t, err, oerrors.ErrValidation)
	})
}

func TestLoaderEnvValue(t *testing.T) {
	t.Setenv("EDITIONS_OUTPUT_DIR", "/env/out")

	l := NewLoader()

	v, ok := l.EnvValue("outputDir")
	assert.True(t, ok)
	assert.Equal(t, "/env/out", v)

	_, ok = l.EnvValue("layersDir")
	assert.False(t, ok)

	_, ok = l.EnvValue("registryScope")
	assert.False(t, ok, "keys without an env binding are never overridden")
}

func TestConfigFileExists(t *testing.T) {
	t.Run("returns true for existing file", func(t *testing.T) {
		configFile := filepath.Join(t.TempDir(), "editions.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte(""), 0o644))

		exists, err := ConfigFileExists(configFile)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("returns false for missing file", func(t *testing.T) {
		exists, err := ConfigFileExists(filepath.Join(t.TempDir(), "nonexistent.yaml"))
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
