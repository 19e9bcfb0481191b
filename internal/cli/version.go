package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Zenga CMS Server\n")
			fmt.Fprintf(out, "Version:    %s\n", opts.build.Version)
			fmt.Fprintf(out, "Build Date: %s\n", opts.build.BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", opts.build.GitCommit)
			return nil
		},
	}
}
