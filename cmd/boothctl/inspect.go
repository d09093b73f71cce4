package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/services"
	"photobooth-api/internal/utils"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the stored snapshot without modifying it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kv, _, err := opts.openKV(ctx)
			if err != nil {
				return err
			}
			defer kv.Close()

			out := cmd.OutOrStdout()

			raw, err := kv.Get(ctx, services.PhotosKey)
			if errors.Is(err, apperrors.ErrNotFound) {
				fmt.Fprintln(out, "No photos stored")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}

			snap, shape, err := services.MigrateSnapshot(raw)
			if err != nil {
				fmt.Fprintf(out, "Snapshot is corrupt (%d bytes): %v\n", len(raw), err)
				return nil
			}

			fmt.Fprintf(out, "Shape: %s (%d bytes)\n", shape, len(raw))
			for _, c := range snap.Collections {
				fmt.Fprintf(out, "\n%s (%d/%d)\n", c.Name, len(c.Photos), c.Capacity)
				for i, p := range c.Photos {
					status := "ok"
					if !utils.IsImageDataURI(p.ImageData) {
						status = "invalid"
					}
					fmt.Fprintf(out, "  [%d] %d  %s  %s  %dKB  %s\n",
						i, p.Id, utils.FormatTimestamp(p.CapturedAt), p.Origin, len(p.ImageData)/1024, status)
				}
			}
			return nil
		},
	}
}
