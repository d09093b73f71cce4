package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd(opts *rootOptions) *cobra.Command {
	var (
		collection string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove stored photos",
		Long:  `Remove every photo of one collection, or of all collections when --collection is omitted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear photos without --yes")
			}

			ctx := cmd.Context()
			store, kv, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer kv.Close()

			before := store.Count()
			if collection != "" {
				err = store.Clear(ctx, collection)
			} else {
				err = store.ClearAll(ctx)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d photo(s)\n", before-store.Count())
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "collection to clear (default: all)")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
