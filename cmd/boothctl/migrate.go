package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/services"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite the stored snapshot in the current shape",
		Long: `Reload the stored snapshot, upgrading legacy shapes and dropping records
with unusable image data, then write it back. A corrupt snapshot is removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if dryRun {
				kv, _, err := opts.openKV(ctx)
				if err != nil {
					return err
				}
				defer kv.Close()

				raw, err := kv.Get(ctx, services.PhotosKey)
				if errors.Is(err, apperrors.ErrNotFound) {
					fmt.Fprintln(out, "No photos stored")
					return nil
				}
				if err != nil {
					return err
				}
				shape, err := services.DetectShape(raw)
				if err != nil {
					fmt.Fprintln(out, "Snapshot is corrupt and would be removed")
					return nil
				}
				if shape == services.ShapeCurrent {
					fmt.Fprintln(out, "Snapshot is already current")
					return nil
				}
				fmt.Fprintf(out, "Would migrate %s snapshot to version %d\n", shape, services.SnapshotVersion)
				return nil
			}

			store, kv, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer kv.Close()

			// Reload already rewrote anything it changed; persist once more so a
			// current snapshot is left behind even when nothing needed migrating.
			if err := store.Persist(ctx); err != nil {
				return err
			}

			for _, c := range store.Collections() {
				fmt.Fprintf(out, "%s: %d photo(s)\n", c.Name, len(c.Photos))
			}
			fmt.Fprintf(out, "✓ Snapshot written as version %d\n", services.SnapshotVersion)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the detected shape without writing")
	return cmd
}
