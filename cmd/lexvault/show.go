package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
	"lexvault/internal/models"
)

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file-id>",
		Short: "Show file metadata",
		Args:  requireFileID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				meta, err := st.GetFileByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if meta == nil {
					return fmt.Errorf("file not found: %s", args[0])
				}
				return writeMetadata(meta, *jsonOutput)
			})
		},
	}
}

func newFindHashCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "find-hash <sha256>",
		Short: "Show the earliest file stored with a content hash",
		Args:  requireExactlyArgs(1, "hash is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				meta, err := st.GetFileByHash(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if meta == nil {
					return fmt.Errorf("no file with hash %s", args[0])
				}
				return writeMetadata(meta, *jsonOutput)
			})
		},
	}
}

func writeMetadata(meta *models.FileMetadata, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(meta)
	}
	return writeFileDetail(meta)
}
