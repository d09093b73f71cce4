package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const warnPercent = 80

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show photo counts and storage footprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, kv, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer kv.Close()

			out := cmd.OutOrStdout()
			for _, c := range store.Collections() {
				fmt.Fprintf(out, "%-12s %d/%d\n", c.Name, len(c.Photos), c.Capacity)
			}

			usage, err := store.StorageUsage(ctx)
			if err != nil {
				return fmt.Errorf("failed to measure storage: %w", err)
			}
			if usage == nil {
				fmt.Fprintln(out, "Storage usage not available for this backend")
				return nil
			}

			fmt.Fprintf(out, "Storage:     %.1fKB / %.1fKB (%d%%)\n",
				float64(usage.UsedBytes)/1024, float64(usage.LimitBytes)/1024, usage.Percent)
			if usage.Percent > warnPercent {
				fmt.Fprintln(out, "⚠️  Storage almost full")
			}
			return nil
		},
	}
}
