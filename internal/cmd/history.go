package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/opmodel/editions/internal/cmdutil"
	"github.com/opmodel/editions/internal/config"
	oerrors "github.com/opmodel/editions/internal/errors"
	"github.com/opmodel/editions/internal/ledger"
	"github.com/opmodel/editions/internal/output"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd(cfg *config.GlobalConfig) *cobra.Command {
	var runID string

	c := &cobra.Command{
		Use:   "history [ledger]",
		Short: "List runs recorded in the ledger",
		Long: `List the runs recorded in the edition ledger, oldest first.

Arguments:
  ledger    Ledger file (default: ledger from config or EDITIONS_LEDGER)

With --run, list the editions written by one run instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			path, err := ledgerPath(cfg, args)
			if err != nil {
				return cmdutil.Fail("cannot resolve ledger", err)
			}

			if exists, _ := config.ConfigFileExists(path); !exists {
				return cmdutil.Fail("cannot open ledger",
					oerrors.NewNotFoundError("ledger not found", path, "Run 'editions generate --ledger <file>' first"))
			}

			l, err := ledger.Open(path)
			if err != nil {
				return cmdutil.Fail("cannot open ledger", err)
			}
			defer l.Close()

			var tbl *output.Table
			if runID != "" {
				tbl, err = editionsTable(c, l, runID)
			} else {
				tbl, err = runsTable(c, l)
			}
			if err != nil {
				return cmdutil.Fail("cannot read ledger", err)
			}
			fmt.Fprintln(c.OutOrStdout(), tbl.String())
			return nil
		},
	}

	c.Flags().StringVar(&runID, "run", "", "Show the editions of this run id")
	return c
}

func runsTable(c *cobra.Command, l *ledger.Ledger) (*output.Table, error) {
	runs, err := l.Runs(c.Context())
	if err != nil {
		return nil, err
	}
	tbl := output.NewTable("RUN", "STARTED", "SEED", "PRODUCED", "CONFIG")
	for _, r := range runs {
		produced := "-"
		if r.FinishedAtUnixMs != 0 {
			produced = fmt.Sprintf("%d/%d", r.Produced, r.Requested)
		}
		tbl.Row(
			output.StyleNoun.Render(r.RunID),
			time.UnixMilli(r.StartedAtUnixMs).Format(time.DateTime),
			strconv.FormatUint(r.Seed, 10),
			produced,
			r.ConfigPath,
		)
	}
	return tbl, nil
}

func editionsTable(c *cobra.Command, l *ledger.Ledger, runID string) (*output.Table, error) {
	eds, err := l.Editions(c.Context(), runID)
	if err != nil {
		return nil, err
	}
	tbl := output.NewTable("GROUP", "INDEX", "DNA", "IMAGE")
	for _, e := range eds {
		tbl.Row(shortHex(e.GroupID), strconv.Itoa(e.Index), shortHex(e.Fingerprint), e.ImagePath)
	}
	return tbl, nil
}

func ledgerPath(cfg *config.GlobalConfig, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	file, err := fileConfig(cfg)
	if err != nil {
		return "", err
	}
	resolved, _, err := config.Resolve(file, config.Overrides{}, config.NewLoader())
	if err != nil {
		return "", err
	}
	if resolved.Ledger == "" {
		return "", oerrors.NewValidationError("no ledger configured", "", "ledger",
			"Pass a ledger file, set ledger in the config file or EDITIONS_LEDGER")
	}
	return resolved.Ledger, nil
}

func shortHex(s string) string {
	if len(s) > 6 {
		return s[:6]
	}
	return s
}
