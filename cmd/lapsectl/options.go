package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/lapsectl/internal/logger"
	"github.com/oukeidos/lapsectl/internal/settings"
	"github.com/oukeidos/lapsectl/internal/view"
)

func newOptionsCmd(opts *globalOptions) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "options [frequency|duration|resolution]",
		Short: "List the selectable settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dims := settings.Dimensions
			if len(args) == 1 {
				d, err := settings.ParseDimension(args[0])
				if err != nil {
					return err
				}
				dims = []settings.Dimension{d}
			}

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			if !offline {
				ctx, stop := signalContext()
				defer stop()
				if err := a.rec.Load(ctx); err != nil {
					logger.Warn("Could not load current status; marking defaults", "error", err)
				}
			}

			current := a.rec.Snapshot().Settings
			out := cmd.OutOrStdout()
			for _, d := range dims {
				c, err := settings.CatalogFor(d)
				if err != nil {
					return err
				}
				o, _ := current.Get(d)
				fmt.Fprint(out, view.Options(d, c, o))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Do not contact the service; mark the defaults")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
