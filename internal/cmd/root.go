// Package cmd provides CLI command implementations.
package cmd

import (
	"github.com/spf13/cobra"

	configcmd "github.com/opmodel/editions/internal/cmd/config"
	"github.com/opmodel/editions/internal/config"
	"github.com/opmodel/editions/internal/output"
	"github.com/opmodel/editions/internal/version"
)

// NewRootCmd creates the root command for the editions CLI.
func NewRootCmd() *cobra.Command {
	cfg := &config.GlobalConfig{}

	rootCmd := &cobra.Command{
		Use:   "editions",
		Short: "Generative edition builder",
		Long: `editions composes unique image editions from layered trait artwork.

Each immediate subdirectory of the layers directory is a layer; each file in
it is a trait. Every edition picks traits per layer, is checked for
uniqueness by its DNA fingerprint and is written as a PNG with a JSON
metadata sidecar.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return initializeGlobals(c, cfg)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfg.Flags.Config, "config", "c", "", "Path to config file (env: EDITIONS_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Flags.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&cfg.Flags.Timestamps, "timestamps", true, "Show timestamps in log output")

	rootCmd.AddCommand(NewGenerateCmd(cfg))
	rootCmd.AddCommand(NewLayersCmd(cfg))
	rootCmd.AddCommand(NewHistoryCmd(cfg))
	rootCmd.AddCommand(configcmd.NewConfigCmd(cfg))
	rootCmd.AddCommand(NewVersionCmd(cfg))

	return rootCmd
}

// initializeGlobals resolves the config path, loads the config file if there
// is one and sets up logging. A config that fails to load is not fatal here;
// commands that need it report cfg.LoadErr.
func initializeGlobals(cmd *cobra.Command, cfg *config.GlobalConfig) error {
	cfg.ConfigPath = config.ResolveConfigPath(cfg.Flags.Config)
	path, _ := cfg.ConfigPath.Value.(string)

	cfg.Config, cfg.LoadErr = config.NewLoader().Load(path)

	// Resolve timestamps: flag (if explicitly set) > config > default (nil = true)
	logCfg := output.LogConfig{Verbose: cfg.Flags.Verbose}
	if cmd.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(cfg.Flags.Timestamps)
	} else if cfg.Config != nil && cfg.Config.Log.Timestamps != nil {
		logCfg.Timestamps = cfg.Config.Log.Timestamps
	}
	output.SetupLogging(logCfg)

	info := version.Get()
	output.Debug("initializing CLI",
		"version", info.Version,
		"config", path,
		"source", cfg.ConfigPath.Source,
	)
	if cfg.LoadErr != nil {
		output.Debug("config load error", "error", cfg.LoadErr)
	}

	return nil
}
