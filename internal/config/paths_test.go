package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigFile(t *testing.T) {
	t.Run("defaults to working directory file", func(t *testing.T) {
		t.Setenv(EnvConfig, "")
		assert.Equal(t, DefaultConfigFile, GetConfigFile())
	})

	t.Run("env var wins", func(t *testing.T) {
		t.Setenv(EnvConfig, "/tmp/custom.yaml")
		assert.Equal(t, "/tmp/custom.yaml", GetConfigFile())
	})
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty path", input: "", expected: ""},
		{name: "absolute path", input: "/absolute/path", expected: "/absolute/path"},
		{name: "relative path", input: "relative/path", expected: "relative/path"},
		{name: "home directory only", input: "~", expected: homeDir},
		{name: "path with tilde", input: "~/some/path", expected: filepath.Join(homeDir, "some/path")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExpandPath(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}
