package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/editions/internal/catalog"
	"github.com/opmodel/editions/internal/cmdutil"
	"github.com/opmodel/editions/internal/compositor"
	"github.com/opmodel/editions/internal/config"
	"github.com/opmodel/editions/internal/engine"
	oerrors "github.com/opmodel/editions/internal/errors"
	"github.com/opmodel/editions/internal/ledger"
	"github.com/opmodel/editions/internal/metadata"
	"github.com/opmodel/editions/internal/output"
	"github.com/opmodel/editions/internal/palette"
	"github.com/opmodel/editions/internal/rarity"
	"github.com/opmodel/editions/internal/selector"
)

// rarityTopN is how many editions the --rarity ranking shows.
const rarityTopN = 10

// NewGenerateCmd creates the generate command.
func NewGenerateCmd(cfg *config.GlobalConfig) *cobra.Command {
	var (
		gf          cmdutil.GenerateFlags
		showRarity  bool
		failOnShort bool
	)

	c := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate editions from the layer catalog",
		Long: `Generate unique editions for every edition group in the config file.

Each group draws traits per layer in plan order, rejects selections whose
DNA was already accepted and writes every accepted edition as a PNG image
plus a JSON metadata file. A group that runs out of retries stops short;
the run still succeeds unless --fail-on-short is set.

Values resolve as flag > environment > config file > default.

Examples:
  # Generate with ./editions.yaml
  editions generate

  # Reproduce an earlier run
  editions generate --seed 8731560191

  # Render on four workers into a fresh directory
  editions gen --workers 4 --cleanup --output-dir ./out`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runGenerate(c, cfg, &gf, showRarity, failOnShort)
		},
	}

	gf.AddTo(c)
	c.Flags().BoolVar(&showRarity, "rarity", false,
		"Print trait frequencies and the rarest editions after the run")
	c.Flags().BoolVar(&failOnShort, "fail-on-short", false,
		"Exit with code 3 when any group produces fewer editions than requested")

	return c
}

func runGenerate(c *cobra.Command, cfg *config.GlobalConfig, gf *cmdutil.GenerateFlags, showRarity, failOnShort bool) error {
	ctx := c.Context()
	out := c.OutOrStdout()

	if cfg.Config == nil {
		return cmdutil.Fail("cannot load configuration", cfg.LoadErr)
	}

	resolved, values, err := config.Resolve(cfg.Config, gf.Overrides(c), config.NewLoader())
	if err != nil {
		return cmdutil.Fail("cannot resolve configuration", err)
	}
	config.LogResolvedValues(values)

	validator, err := config.NewValidator()
	if err != nil {
		return cmdutil.Fail("cannot create validator", err)
	}
	if err := validator.Validate(resolved); err != nil {
		return cmdutil.Fail("invalid configuration", err)
	}

	seed := resolved.Seed
	if seed == 0 {
		seed = selector.RandomSeed()
	}
	output.Info("seeding selection", "seed", seed)

	defer output.Measure("generate")()

	if resolved.Cleanup {
		if err := metadata.Clean(resolved.OutputDir); err != nil {
			return cmdutil.Fail("cannot clean output directory", err)
		}
		output.Debug("cleaned output directory", "dir", resolved.OutputDir)
	}

	var cat *catalog.Catalog
	err = output.RunWithSpinner(ctx, "Scanning layers", func() error {
		var err error
		cat, err = catalog.Build(resolved.LayersDir)
		return err
	})
	if err != nil {
		return cmdutil.Fail("cannot build layer catalog", err)
	}
	output.Info("catalog ready", "dir", resolved.LayersDir, "layers", len(cat.Layers()), "skipped", len(cat.Skipped()))

	groups := resolved.Groups()
	for _, g := range groups {
		if err := cat.Require(g.Order); err != nil {
			return cmdutil.Fail("cannot use layer catalog", err)
		}
	}

	emitterOpts := metadata.Options{
		OutputDir:   resolved.OutputDir,
		Name:        resolved.Metadata.Name,
		Description: resolved.Metadata.Description,
		ImageURI:    resolved.Metadata.ImageURI,
		Extended:    resolved.Metadata.Extended,
	}
	if dc := resolved.Metadata.DominantColor; dc.Enabled {
		a, err := palette.Annotator(dc.Method, "")
		if err != nil {
			return cmdutil.Fail("invalid configuration", err)
		}
		emitterOpts.Annotators = append(emitterOpts.Annotators, a)
	}

	engOpts := engine.Options{
		Catalog:    cat,
		Compositor: compositor.New(resolved.ImageSize, resolved.ResizeEnabled()),
		Emitter:    metadata.NewEmitter(emitterOpts),
		Sampler:    selector.NewRandSampler(seed),
		MaxRetries: resolved.RetryLimit(),
		Workers:    resolved.Workers,
		OnWritten: func(w metadata.Written) {
			output.Info(cmdutil.EditionLine(w))
		},
	}

	var run *ledger.Run
	if resolved.Ledger != "" {
		l, err := ledger.Open(resolved.Ledger)
		if err != nil {
			return cmdutil.Fail("cannot open ledger", err)
		}
		defer l.Close()

		configPath, _ := cfg.ConfigPath.Value.(string)
		run, err = l.StartRun(ctx, ledger.RunInfo{Seed: seed, ConfigPath: configPath})
		if err != nil {
			return cmdutil.Fail("cannot record run", err)
		}
		engOpts.Recorder = run
		output.Debug("recording run", "ledger", resolved.Ledger, "run", run.ID())
	}

	report, runErr := engine.New(engOpts).Run(ctx, groups, resolved.RegistryScope)

	if run != nil {
		if err := run.Finish(context.WithoutCancel(ctx), report.Requested(), report.Produced()); err != nil {
			output.Warn("cannot finish ledger run", "err", err)
		}
	}

	if len(report.Groups) > 0 {
		fmt.Fprintln(out, cmdutil.GroupTable(report).String())
	}

	if report.Produced() > 0 {
		rr := rarity.Build(report.Written())
		if path, err := rr.WriteFile(resolved.OutputDir); err != nil {
			output.Warn("cannot write rarity report", "err", err)
		} else {
			output.Debug("wrote rarity report", "path", path)
		}
		if showRarity {
			fmt.Fprintln(out, rr.TraitTable().String())
			fmt.Fprintln(out, rr.Table(rarityTopN).String())
			fmt.Fprintf(out, "score mean %.2f, std dev %.2f\n", rr.Mean, rr.StdDev)
		}
	}

	if runErr != nil {
		return cmdutil.Fail("generation stopped", runErr)
	}

	fmt.Fprintln(out, output.FormatCheckmark(output.FormatSummary(report.Produced(), report.Requested(), len(report.Groups))))

	if short := report.Short(); short > 0 {
		output.Warn("some groups fell short", "missing", short)
		if failOnShort {
			exitErr := oerrors.NewExitError(fmt.Errorf("%w: %d edition(s) missing", oerrors.ErrShort, short), oerrors.ExitShort)
			exitErr.Printed = true
			return exitErr
		}
	}
	return nil
}
