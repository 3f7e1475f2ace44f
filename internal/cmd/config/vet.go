package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/editions/internal/cmdutil"
	"github.com/opmodel/editions/internal/config"
	"github.com/opmodel/editions/internal/output"
)

// NewConfigVetCmd creates the config vet command.
func NewConfigVetCmd(cfg *config.GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "vet [path]",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file against the embedded schema.

The command validates ./editions.yaml by default.
Pass a path or use the --config flag to choose a different file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			path, err := targetPath(cfg, args)
			if err != nil {
				return fmt.Errorf("expanding config path: %w", err)
			}

			validator, err := config.NewValidator()
			if err != nil {
				return fmt.Errorf("creating validator: %w", err)
			}

			loaded, err := validator.ValidateFile(path)
			if err != nil {
				return cmdutil.Fail(fmt.Sprintf("config %s is invalid", path), err)
			}

			groups := loaded.Normalize().Groups()
			total := 0
			for _, g := range groups {
				total += g.Size
			}
			fmt.Fprintln(c.OutOrStdout(), output.FormatCheckmark(
				fmt.Sprintf("Config file is valid: %s (%d group(s), %d edition(s))", path, len(groups), total)))
			return nil
		},
	}
}
