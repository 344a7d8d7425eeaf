package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/lapsectl/internal/logger"
	"github.com/oukeidos/lapsectl/internal/picker"
	"github.com/oukeidos/lapsectl/internal/settings"
	"github.com/oukeidos/lapsectl/internal/view"
)

type startOptions struct {
	frequency   string
	duration    string
	resolution  string
	interactive bool
}

// runPicker is swapped in tests.
var runPicker = picker.Run

func newStartCmd(opts *globalOptions) *cobra.Command {
	startOpts := startOptions{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a timelapse with the chosen settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, opts, &startOpts)
		},
	}
	cmd.Flags().StringVar(&startOpts.frequency, "frequency", "", "Capture interval, as seconds or a label such as \"1 minute\"")
	cmd.Flags().StringVar(&startOpts.duration, "duration", "", "Session length, as seconds or a label such as \"1 day\"")
	cmd.Flags().StringVar(&startOpts.resolution, "resolution", "", "Capture resolution, e.g. 640x480")
	cmd.Flags().BoolVarP(&startOpts.interactive, "interactive", "i", false, "Pick the settings from a menu")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func runStart(cmd *cobra.Command, opts *globalOptions, startOpts *startOptions) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	// The service's view decides the starting selection; an unreachable
	// service still leaves the defaults to work from.
	if err := a.rec.Load(ctx); err != nil {
		logger.Warn("Could not load current status; using defaults", "error", err)
	}
	if a.rec.Snapshot().Run.Running {
		return fmt.Errorf("a timelapse is already running; stop it first")
	}

	requested := map[settings.Dimension]string{
		settings.Frequency:  startOpts.frequency,
		settings.Duration:   startOpts.duration,
		settings.Resolution: startOpts.resolution,
	}
	for _, d := range settings.Dimensions {
		if requested[d] == "" {
			continue
		}
		o, err := resolveOption(d, requested[d])
		if err != nil {
			return err
		}
		if err := a.rec.SetOption(d, o); err != nil {
			return err
		}
	}

	if startOpts.interactive {
		if !isTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("--interactive needs a terminal")
		}
		chosen, err := runPicker(a.rec.Snapshot().Settings)
		if err != nil {
			if errors.Is(err, picker.ErrCancelled) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			return err
		}
		for _, d := range settings.Dimensions {
			o, _ := chosen.Get(d)
			if err := a.rec.SetOption(d, o); err != nil {
				return err
			}
		}
	}

	snap := a.rec.Snapshot()
	if _, err := snap.ExpectedFrames(); err != nil {
		return err
	}
	if snap.FrequencyTooHigh() {
		logger.Warn("Capture interval is longer than the session; no frames will be taken",
			"frequency", snap.Settings.Frequency.Label, "duration", snap.Settings.Duration.Label)
	}

	if err := a.rec.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), view.Status(a.rec.Snapshot(), time.Now()))
	return nil
}
