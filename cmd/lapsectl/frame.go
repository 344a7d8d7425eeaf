package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFrameCmd(opts *globalOptions) *cobra.Command {
	var urlOnly bool
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Show capture progress and the latest frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			if err := a.rec.Refresh(ctx); err != nil {
				return err
			}
			frameURL := a.client.LatestFrameURL(a.rec.FrameMarker())
			out := cmd.OutOrStdout()
			if urlOnly {
				fmt.Fprintln(out, frameURL)
				return nil
			}
			snap := a.rec.Snapshot()
			fmt.Fprintf(out, "Frames taken: %d\n", snap.Run.FrameCount)
			if snap.Run.LatestFrame != nil {
				fmt.Fprintf(out, "Latest frame: %s\n", snap.Run.LatestFrame.Local().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Latest frame: none yet")
			}
			fmt.Fprintf(out, "Image: %s\n", frameURL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&urlOnly, "url", false, "Print only the cache-busted latest-frame URL")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
