package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
	"lexvault/internal/models"
)

func newUpdateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		name        string
		description string
		caseID      string
		orderID     string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "update <file-id>",
		Short: "Update file metadata",
		Args:  requireFileID,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			update := models.FileUpdate{}
			if flags.Changed("name") {
				update.OriginalName = &name
			}
			if flags.Changed("description") {
				update.Description = &description
			}
			if flags.Changed("case") {
				update.CaseID = &caseID
			}
			if flags.Changed("order") {
				update.OrderID = &orderID
			}
			if flags.Changed("tag") {
				update.Tags = &tags
			}
			if update.Empty() {
				return fmt.Errorf("no fields to update")
			}

			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				ok, err := st.UpdateFileMetadata(cmd.Context(), args[0], update)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("file not found: %s", args[0])
				}
				meta, err := st.GetFileByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(meta)
				}
				return writePlain("%s updated\n", args[0])
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "original file name")
	cmd.Flags().StringVar(&description, "description", "", "description (empty clears)")
	cmd.Flags().StringVar(&caseID, "case", "", "case id (empty clears)")
	cmd.Flags().StringVar(&orderID, "order", "", "order id (empty clears)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace tags (repeatable; --tag= clears)")
	return cmd
}
