package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"photobooth-api/internal/config"
	"photobooth-api/internal/server"
	"photobooth-api/internal/services"
)

type rootOptions struct {
	backend    string
	sqlitePath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "boothctl",
		Short: "Maintenance tool for photobooth storage",
		Long: `boothctl inspects and repairs the persisted photobooth state.

It reads the same environment (and .env file) as the server, so it
operates on whichever storage backend the server is configured for.

Examples:
  boothctl inspect                         # Show the stored snapshot
  boothctl migrate --dry-run               # Preview a legacy snapshot upgrade
  boothctl clear --collection photobooth --yes
  boothctl usage                           # Hourly counters
  boothctl stats                           # Storage footprint`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "storage backend override (memory, sqlite, firestore, gcs)")
	rootCmd.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite-path", "", "SQLite database path override")

	rootCmd.AddCommand(
		newInspectCmd(opts),
		newMigrateCmd(opts),
		newClearCmd(opts),
		newUsageCmd(opts),
		newStatsCmd(opts),
	)

	return rootCmd
}

func (o *rootOptions) config() (*config.Config, error) {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	if o.backend != "" {
		cfg.StorageBackend = o.backend
	}
	if o.sqlitePath != "" {
		cfg.SQLitePath = o.sqlitePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openKV opens the configured backend. The caller closes it.
func (o *rootOptions) openKV(ctx context.Context) (services.KeyValueStore, *config.Config, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	kv, _, err := server.OpenBackend(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s backend: %w", cfg.StorageBackend, err)
	}
	return kv, cfg, nil
}

// openStore opens the backend and reloads a photo store from it.
func (o *rootOptions) openStore(ctx context.Context) (*services.PhotoStore, services.KeyValueStore, error) {
	kv, cfg, err := o.openKV(ctx)
	if err != nil {
		return nil, nil, err
	}

	store, err := services.NewPhotoStore(kv, services.NewLogNotifier(), server.StoreConfig(cfg))
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	if err := store.Reload(ctx); err != nil {
		kv.Close()
		return nil, nil, err
	}
	return store, kv, nil
}
