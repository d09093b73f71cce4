package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show the hourly capture and transform counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, kv, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer kv.Close()

			out := cmd.OutOrStdout()
			report := store.UsageReport(ctx)
			if !report.LimitsEnabled {
				fmt.Fprintln(out, "Hourly limits are disabled")
				return nil
			}

			fmt.Fprintf(out, "Window:     %s\n", report.WindowKey)
			fmt.Fprintf(out, "Photos:     %d/%d\n", report.PhotosUsed, report.MaxPhotos)
			fmt.Fprintf(out, "Transforms: %d/%d\n", report.TransformsUsed, report.MaxTransforms)
			return nil
		},
	}
}
