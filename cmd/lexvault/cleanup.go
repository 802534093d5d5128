package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
)

func newCleanupCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stored content no file references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				result, err := st.SweepOrphans(cmd.Context(), !dryRun)
				if err != nil {
					return err
				}
				if *jsonOutput {
					if err := writeJSON(result); err != nil {
						return err
					}
				} else {
					verb := "removed"
					count := result.DeletedCount
					if result.DryRun {
						verb = "would remove"
						count = result.CandidateCount
					}
					if err := writePlain("scanned %d blobs, %s %d (%s)\n",
						result.ScannedCount, verb, count, humanize.IBytes(uint64(result.ReclaimedBytes))); err != nil {
						return err
					}
				}
				if result.FailedCount > 0 {
					return fmt.Errorf("%d orphaned blobs could not be removed", result.FailedCount)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without removing them")
	return cmd
}

func newVerifyCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check stored content against its hashes and records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				result, err := st.Verify(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					if err := writeJSON(result); err != nil {
						return err
					}
				} else {
					if err := writePlain("checked %d blobs, %d records\n", result.BlobsChecked, result.RecordsChecked); err != nil {
						return err
					}
					for _, hash := range result.Corrupt {
						if err := writePlain("corrupt: %s\n", hash); err != nil {
							return err
						}
					}
					for _, m := range result.Missing {
						if err := writePlain("missing: %s (file %s)\n", m.Hash, m.FileID); err != nil {
							return err
						}
					}
				}
				if !result.OK() {
					return fmt.Errorf("verify found %d corrupt and %d missing blobs", len(result.Corrupt), len(result.Missing))
				}
				return nil
			})
		},
	}
}
