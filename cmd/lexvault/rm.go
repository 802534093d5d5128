package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
)

func newRemoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <file-id>...",
		Aliases: []string{"delete"},
		Short:   "Delete files; content is removed once nothing references it",
		Args:    requireAtLeastOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				deleted := make([]string, 0, len(args))
				var missing []string
				for _, id := range args {
					ok, err := st.DeleteFile(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !ok {
						missing = append(missing, id)
						continue
					}
					deleted = append(deleted, id)
				}

				if *jsonOutput {
					if err := writeJSON(map[string]any{"deleted": deleted, "missing": missing}); err != nil {
						return err
					}
				} else {
					for _, id := range deleted {
						if err := writePlain("%s deleted\n", id); err != nil {
							return err
						}
					}
				}
				if len(missing) > 0 {
					return fmt.Errorf("file not found: %v", missing)
				}
				return nil
			})
		},
	}
}
