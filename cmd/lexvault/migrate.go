package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
	"lexvault/internal/store"
)

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect sqlite metadata schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storeCfg := storeConfig(cfg)
			if storeCfg.MetadataBackend != filestore.MetadataBackendSQLite {
				return fmt.Errorf("migrate requires metadata.backend=%s (configured: %q)", filestore.MetadataBackendSQLite, storeCfg.MetadataBackend)
			}
			path := storeCfg.MetadataDBPath()
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}

			var (
				plan *store.MigrationStatus
				err  error
			)
			if dryRun {
				plan, err = store.InspectSQLite(path)
				if err != nil {
					return fmt.Errorf("inspect migrations: %w", err)
				}
			} else {
				st, err := store.OpenSQLite(path)
				if err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				defer st.Close()
				plan, err = st.MigrationStatus()
				if err != nil {
					return err
				}
			}

			if *jsonOutput {
				return writeJSON(plan)
			}
			if err := writePlain("current version: %d\navailable version: %d\n", plan.CurrentVersion, plan.AvailableVersion); err != nil {
				return err
			}
			if len(plan.Pending) == 0 {
				return writePlain("no pending migrations\n")
			}
			for _, m := range plan.Pending {
				if err := writePlain("pending %d: %s\n", m.Version, m.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	return cmd
}
