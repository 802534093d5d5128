package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
)

func newImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import file metadata from an export document",
		Long:  "Import file metadata from a JSON or YAML export, optionally zstd-compressed. Records are upserted by id; content is not imported.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}

			var r io.Reader = os.Stdin
			if inputPath != "-" {
				f, err := os.Open(inputPath)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				count, err := st.ImportMetadata(cmd.Context(), r)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]int{"imported": count})
				}
				return writePlain("imported: %d\n", count)
			})
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input file (- for stdin)")
	return cmd
}
