package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/editions/internal/catalog"
	"github.com/opmodel/editions/internal/cmdutil"
	"github.com/opmodel/editions/internal/config"
	oerrors "github.com/opmodel/editions/internal/errors"
)

// NewLayersCmd creates the layers command.
func NewLayersCmd(cfg *config.GlobalConfig) *cobra.Command {
	var tree bool

	c := &cobra.Command{
		Use:   "layers [dir]",
		Short: "List layers and their traits",
		Long: `List every layer of the catalog with its file count and traits.

Arguments:
  dir    Layers directory (default: layersDir from config, then ./layers)

Traits with a rarity weight suffix ("Blue#20.png") show the weight.
With --tree the catalog is shown as a file tree.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			dir, err := layersDir(cfg, args)
			if err != nil {
				return cmdutil.Fail("cannot resolve configuration", err)
			}

			cat, err := catalog.Build(dir)
			if err != nil {
				return cmdutil.Fail("cannot build layer catalog", err)
			}

			if tree {
				fmt.Fprint(c.OutOrStdout(), cmdutil.LayersTree(cat))
			} else {
				fmt.Fprintln(c.OutOrStdout(), cmdutil.LayersTable(cat).String())
			}
			for _, s := range cat.Skipped() {
				fmt.Fprintf(c.ErrOrStderr(), "skipped %s: %s\n", s.Path, s.Reason)
			}
			return nil
		},
	}

	c.Flags().BoolVar(&tree, "tree", false, "Show the catalog as a file tree")
	return c
}

// layersDir resolves the layers directory: argument, then the usual
// flag/env/config/default chain. A missing config file is fine here.
func layersDir(cfg *config.GlobalConfig, args []string) (string, error) {
	file, err := fileConfig(cfg)
	if err != nil {
		return "", err
	}

	var ov config.Overrides
	if len(args) == 1 {
		ov.LayersDir = &args[0]
	}
	resolved, values, err := config.Resolve(file, ov, config.NewLoader())
	if err != nil {
		return "", err
	}
	config.LogResolvedValues(values)
	return resolved.LayersDir, nil
}

// fileConfig returns the loaded config file, or an empty one when there is
// no config file.
func fileConfig(cfg *config.GlobalConfig) (*config.Config, error) {
	switch {
	case cfg.Config != nil:
		return cfg.Config, nil
	case cfg.LoadErr == nil, errors.Is(cfg.LoadErr, oerrors.ErrNotFound):
		return &config.Config{}, nil
	default:
		return nil, cfg.LoadErr
	}
}
