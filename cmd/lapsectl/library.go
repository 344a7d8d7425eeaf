package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oukeidos/lapsectl/internal/view"
)

func newLibraryCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "List, download or delete finished timelapses",
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.AddCommand(
		newLibraryListCmd(opts),
		newLibraryDownloadCmd(opts),
		newLibraryDeleteCmd(opts),
	)
	return cmd
}

func newLibraryListCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List finished timelapses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			items, err := a.lib.List(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Library(items))
			return nil
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newLibraryDownloadCmd(opts *globalOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the rendered video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = a.cfg.DownloadDir
			}
			ctx, stop := signalContext()
			defer stop()
			path, err := a.lib.Download(ctx, args[0], dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to save into (default: download_dir from config)")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newLibraryDeleteCmd(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a timelapse from the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			id := args[0]
			ctx, stop := signalContext()
			defer stop()

			name := id
			if _, err := a.lib.List(ctx); err == nil {
				if item, ok := a.lib.Lookup(id); ok {
					name = item.Name
				}
			}
			ok, err := confirmer().ConfirmDelete(name, yes)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if err := a.lib.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
