package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/lapsectl/internal/version"
)

func newAboutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "about",
		Short: "Show a short description and link",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "lapsectl: control a camera's timelapse service")
			fmt.Fprintln(out, "https://github.com/oukeidos/lapsectl")
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
