package main

import (
	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
)

func newStatsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show storage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				stats, err := st.Statistics(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(stats)
				}
				return writeStats(stats)
			})
		},
	}
}
