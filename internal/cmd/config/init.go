package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opmodel/editions/internal/cmdutil"
	"github.com/opmodel/editions/internal/config"
	oerrors "github.com/opmodel/editions/internal/errors"
)

const configHeader = `# editions configuration
#
# layersDir holds one subdirectory per layer; every file in it is a trait.
# Name files "trait#weight.png" to record a rarity weight.
# seed: 0 picks a random seed and logs it so the run can be reproduced.

`

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd(cfg *config.GlobalConfig) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a starter configuration file",
		Long: `Create a configuration file with default values.

The file is created at ./editions.yaml by default.
Pass a path or use the --config flag to choose a different location.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runInit(c, cfg, args, force)
		},
	}

	c.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config file")

	return c
}

func runInit(c *cobra.Command, cfg *config.GlobalConfig, args []string, force bool) error {
	path, err := targetPath(cfg, args)
	if err != nil {
		return fmt.Errorf("expanding config path: %w", err)
	}

	exists, err := config.ConfigFileExists(path)
	if err != nil {
		return fmt.Errorf("checking config file: %w", err)
	}
	if exists && !force {
		return cmdutil.Fail("config file already exists",
			oerrors.NewValidationError("config file already exists", path, "", "Use --force to overwrite"))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cmdutil.Fail("cannot create config directory", err)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append([]byte(configHeader), data...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cmdutil.Fail("cannot write config file", err)
	}

	fmt.Fprintf(c.OutOrStdout(), "Config file created: %s\n", path)
	return nil
}
