package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/editions/internal/config"
	"github.com/opmodel/editions/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd(_ *config.GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show editions version information.

Displays:
  - editions version, commit, and build date
  - Go version
  - CUE SDK version used for config validation`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			info := version.Get()
			out := c.OutOrStdout()
			fmt.Fprintf(out, "editions version %s\n", info.Version)
			fmt.Fprintf(out, "  Commit:    %s\n", info.GitCommit)
			fmt.Fprintf(out, "  Built:     %s\n", info.BuildDate)
			fmt.Fprintf(out, "  Go:        %s\n", info.GoVersion)
			fmt.Fprintf(out, "  CUE SDK:   %s\n", info.CUESDKVersion)
			return nil
		},
	}
}
