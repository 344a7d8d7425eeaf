package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/lapsectl/internal/config"
	"github.com/oukeidos/lapsectl/internal/logger"
	"github.com/oukeidos/lapsectl/internal/reconciler"
	"github.com/oukeidos/lapsectl/internal/view"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a running timelapse until it ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("interval") {
				if interval < config.MinWatchInterval {
					return fmt.Errorf("--interval must be at least %s", config.MinWatchInterval)
				}
				a.cfg.WatchInterval = interval
			}
			ctx, stop := signalContext()
			defer stop()
			return watch(ctx, a.rec, a.cfg.WatchInterval, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", config.DefaultWatchInterval, "Time between progress checks (overrides config)")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

// watch prints the status, then polls frame progress every interval. Once
// the session should have ended, or when the service gave no end date, it
// reloads the status instead and returns when the job is reported finished.
func watch(ctx context.Context, rec *reconciler.Reconciler, interval time.Duration, out io.Writer) error {
	if err := rec.Load(ctx); err != nil {
		return err
	}
	snap := rec.Snapshot()
	fmt.Fprintln(out, view.Status(snap, time.Now()))
	if !snap.Run.Running {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if rec.Snapshot().NeedsStatus(time.Now()) {
			if err := rec.Load(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("Status check failed", "error", err)
				continue
			}
		} else if err := rec.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("Frame progress check failed", "error", err)
			continue
		}

		snap := rec.Snapshot()
		fmt.Fprintln(out, view.Status(snap, time.Now()))
		if !snap.Run.Running {
			fmt.Fprintln(out, "Timelapse finished.")
			return nil
		}
	}
}
