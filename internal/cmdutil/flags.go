// Package cmdutil provides shared command utilities: flag groups, error
// reporting and table builders for the editions commands.
package cmdutil

import (
	"github.com/spf13/cobra"

	"github.com/opmodel/editions/internal/config"
)

// GenerateFlags holds the flags that override configuration values
// (generate). Only flags the user actually set become overrides.
type GenerateFlags struct {
	LayersDir  string
	OutputDir  string
	Size       int
	Resize     bool
	MaxRetries int
	Workers    int
	Seed       uint64
	Cleanup    bool
	Ledger     string
}

// AddTo registers the generate flags on the given cobra command.
func (f *GenerateFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.LayersDir, "layers-dir", "",
		"Directory containing one subdirectory per layer (env: EDITIONS_LAYERS_DIR)")
	cmd.Flags().StringVar(&f.OutputDir, "output-dir", "",
		"Directory for images and metadata (env: EDITIONS_OUTPUT_DIR)")
	cmd.Flags().IntVar(&f.Size, "size", 0,
		"Canvas edge length in pixels (env: EDITIONS_IMAGE_SIZE)")
	cmd.Flags().BoolVar(&f.Resize, "resize", true,
		"Scale layers that do not match the canvas size")
	cmd.Flags().IntVar(&f.MaxRetries, "max-retries", 0,
		"Duplicate selections tolerated per group (env: EDITIONS_MAX_RETRIES)")
	cmd.Flags().IntVar(&f.Workers, "workers", 0,
		"Concurrent renders (env: EDITIONS_WORKERS)")
	cmd.Flags().Uint64Var(&f.Seed, "seed", 0,
		"Random seed, 0 picks one (env: EDITIONS_SEED)")
	cmd.Flags().BoolVar(&f.Cleanup, "cleanup", false,
		"Remove the output directory before generating")
	cmd.Flags().StringVar(&f.Ledger, "ledger", "",
		"Record runs in this sqlite file (env: EDITIONS_LEDGER)")
}

// Overrides returns the flags the user set on cmd as config overrides.
func (f *GenerateFlags) Overrides(cmd *cobra.Command) config.Overrides {
	var ov config.Overrides
	changed := cmd.Flags().Changed

	if changed("layers-dir") {
		ov.LayersDir = &f.LayersDir
	}
	if changed("output-dir") {
		ov.OutputDir = &f.OutputDir
	}
	if changed("size") {
		ov.ImageSize = &f.Size
	}
	if changed("resize") {
		ov.Resize = &f.Resize
	}
	if changed("max-retries") {
		ov.MaxRetries = &f.MaxRetries
	}
	if changed("workers") {
		ov.Workers = &f.Workers
	}
	if changed("seed") {
		ov.Seed = &f.Seed
	}
	if changed("cleanup") {
		ov.Cleanup = &f.Cleanup
	}
	if changed("ledger") {
		ov.Ledger = &f.Ledger
	}
	return ov
}
