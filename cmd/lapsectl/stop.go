package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/lapsectl/internal/prompt"
	"github.com/oukeidos/lapsectl/internal/view"
)

var confirmer = prompt.DefaultConfirmer

func newStopCmd(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running timelapse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			ok, err := confirmer().ConfirmStop(yes)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}

			ctx, stop := signalContext()
			defer stop()
			if err := a.rec.Stop(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Status(a.rec.Snapshot(), time.Now()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Stop without asking")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
