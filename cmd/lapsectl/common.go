package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/oukeidos/lapsectl/internal/catalog"
	"github.com/oukeidos/lapsectl/internal/cleanup"
	"github.com/oukeidos/lapsectl/internal/config"
	"github.com/oukeidos/lapsectl/internal/files"
	"github.com/oukeidos/lapsectl/internal/httpclient"
	"github.com/oukeidos/lapsectl/internal/library"
	"github.com/oukeidos/lapsectl/internal/logger"
	"github.com/oukeidos/lapsectl/internal/reconciler"
	"github.com/oukeidos/lapsectl/internal/remote"
	"github.com/oukeidos/lapsectl/internal/settings"
)

var isTerminal = term.IsTerminal

// app is everything a command needs once config and flags are resolved.
type app struct {
	cfg    config.Config
	client *remote.Client
	rec    *reconciler.Reconciler
	lib    *library.Library
}

func configPath(opts *globalOptions) (string, error) {
	if opts.configPath != "" {
		return opts.configPath, nil
	}
	return config.DefaultPath()
}

// loadConfig reads the config file and applies any global flags the user set.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (config.Config, error) {
	path, err := configPath(opts)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "base-url":
			cfg.BaseURL = opts.baseURL
		case "timeout":
			cfg.Timeout = opts.timeout
		case "debug":
			if opts.debug {
				cfg.LogLevel = "debug"
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func initLogging(cfg config.Config, opts *globalOptions) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	var logFileW io.Writer
	if opts.logFile != "" {
		if err := files.CheckOutputPath(opts.logFile); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register(f.Close)
		logFileW = f
	}
	logger.Init(level, logFileW)
	return nil
}

func newApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	if err := initLogging(cfg, opts); err != nil {
		return nil, err
	}
	client := remote.NewClient(cfg.BaseURL, remote.WithHTTPClient(httpclient.ForCalls(cfg.Timeout)))
	logger.Debug("Using timelapse service", "base_url", client.BaseURL(), "timeout", cfg.Timeout.String())
	return &app{
		cfg:    cfg,
		client: client,
		rec:    reconciler.New(client),
		lib:    library.New(client),
	}, nil
}

// resolveOption accepts either a wire value ("60", "640x480") or a label
// ("1 minute") and returns the matching catalog entry.
func resolveOption(d settings.Dimension, input string) (catalog.Option, error) {
	c, err := settings.CatalogFor(d)
	if err != nil {
		return catalog.Option{}, err
	}
	o, ok := c.Lookup(input)
	if !ok {
		return catalog.Option{}, fmt.Errorf("unsupported %s %q (run \"lapsectl options %s\" to list choices)", d, input, d)
	}
	return o, nil
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
