package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/lapsectl/internal/view"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current timelapse job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			if err := a.rec.Load(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Status(a.rec.Snapshot(), time.Now()))
			return nil
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
