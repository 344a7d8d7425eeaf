package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oukeidos/lapsectl/internal/cleanup"
	"github.com/oukeidos/lapsectl/internal/version"
)

type globalOptions struct {
	configPath string
	baseURL    string
	timeout    time.Duration
	debug      bool
	logFile    string
}

func execute() {
	cmd := newRootCmd()
	err := cmd.Execute()
	if cleanupErr := cleanup.RunAll(); cleanupErr != nil {
		fmt.Fprintln(os.Stderr, cleanupErr)
		if err == nil {
			err = cleanupErr
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "lapsectl",
		Short:        "Control a camera's timelapse service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				_ = cmd.Usage()
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
		Args: cobra.ArbitraryArgs,
	}

	cmd.Version = version.Info()
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetUsageTemplate(rootUsageTemplate)

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to the YAML config file (default: user config dir)")
	pf.StringVar(&opts.baseURL, "base-url", "", "Timelapse service URL (overrides config)")
	pf.DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout (overrides config)")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&opts.logFile, "log-file", "", "Path to save machine-readable JSONL logs")

	cmd.AddCommand(
		newStatusCmd(opts),
		newStartCmd(opts),
		newStopCmd(opts),
		newFrameCmd(opts),
		newWatchCmd(opts),
		newOptionsCmd(opts),
		newLibraryCmd(opts),
		newConfigCmd(opts),
		newAboutCmd(),
		newVersionCmd(),
	)

	cmd.InitDefaultCompletionCmd()
	for _, sub := range cmd.Commands() {
		if sub.Name() == "completion" {
			sub.Short = "Generate a shell completion script"
			sub.SetUsageTemplate(subcommandUsageTemplate)
			break
		}
	}

	return cmd
}
