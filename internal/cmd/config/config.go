// Package config provides CLI command implementations for the config command group.
package config

import (
	"github.com/spf13/cobra"

	"github.com/opmodel/editions/internal/config"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd(cfg *config.GlobalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  `Create and validate editions configuration files.`,
	}

	c.AddCommand(NewConfigInitCmd(cfg))
	c.AddCommand(NewConfigVetCmd(cfg))

	return c
}

// targetPath picks the config file a subcommand works on: the positional
// argument, then the resolved --config / EDITIONS_CONFIG / default path.
func targetPath(cfg *config.GlobalConfig, args []string) (string, error) {
	path := config.GetConfigFile()
	if len(args) == 1 {
		path = args[0]
	} else if p, ok := cfg.ConfigPath.Value.(string); ok && p != "" {
		path = p
	}
	return config.ExpandPath(path)
}
