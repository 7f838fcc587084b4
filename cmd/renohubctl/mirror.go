package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"renohub/internal/cli"
	"renohub/internal/config"
	"renohub/internal/log"
	"renohub/internal/services"
)

// mirrorMappings pairs each configured source collection with its local
// name. The vendor registry is copied only when configured.
func mirrorMappings(source config.Collections) []services.Mapping {
	target := config.LocalCollections
	mappings := []services.Mapping{
		{Source: source.Milestones, Target: target.Milestones},
		{Source: source.Deliverables, Target: target.Deliverables},
		{Source: source.Payments, Target: target.Payments},
		{Source: source.Config, Target: target.Config},
	}
	if source.VendorRegistry != "" {
		mappings = append(mappings, services.Mapping{Source: source.VendorRegistry, Target: target.VendorRegistry})
	}
	return mappings
}

func mirrorCMD() *cobra.Command {
	var dbPath string
	var interval time.Duration

	var mirror = &cobra.Command{
		Use:   "mirror",
		Short: "Copy the configured record store into the local SQLite mirror",
		Long: "Copy the configured record store into the local SQLite mirror.\n" +
			"Run the dashboard against it with RECORD_BACKEND=sqlite.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, logger, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.Config
			if a.Store == nil {
				return fmt.Errorf("record store not configured: missing %v", cfg.MissingRecordStore())
			}
			if dbPath == "" {
				dbPath = cfg.SQLiteDBPath
			}
			if cfg.RecordBackend == config.BackendSQLite && samePath(dbPath, cfg.SQLiteDBPath) {
				return fmt.Errorf("source and target are the same database %s", dbPath)
			}

			target := cli.InitSQLite(logger, dbPath)
			defer target.Close()

			m := services.NewMirror(a.Store, target, services.MirrorConfig{
				Mappings: mirrorMappings(cfg.Collections()),
				Interval: interval,
			}, logger)

			if interval <= 0 {
				results, err := m.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "%-14s %5d records (from %s)\n", r.Target, r.Records, r.Source)
				}
				return nil
			}

			ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
				if err := m.Stop(shutdownCtx); err != nil {
					logger.Warn("Mirror stop failed", log.FieldError, err)
				}
			})
			if err := m.Start(ctx); err != nil {
				return err
			}
			cli.WaitForShutdown(ctx, done)
			return nil
		},
	}
	mirror.Flags().StringVar(&dbPath, "db", "", "target SQLite database (default SQLITE_DB_PATH)")
	mirror.Flags().DurationVar(&interval, "interval", 0, "repeat every interval until interrupted (0 = run once)")

	return mirror
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
