package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
	"lexvault/internal/format"
)

func newExportCmd(cfg *config.Config) *cobra.Command {
	var (
		outputPath string
		formatName string
		compress   bool
	)
	filters := &filterOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export file metadata as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := format.ParseFormat(formatName)
			if err != nil {
				return err
			}
			filter, err := filters.filter()
			if err != nil {
				return err
			}

			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				var w io.Writer = stdout
				if outputPath != "" {
					file, err := os.Create(outputPath)
					if err != nil {
						return err
					}
					defer file.Close()
					w = file
				}

				var zw io.WriteCloser
				if compress {
					zw, err = format.Compress(w)
					if err != nil {
						return err
					}
					w = zw
				}

				count, err := st.ExportMetadata(cmd.Context(), w, filter, f)
				if err != nil {
					if zw != nil {
						_ = zw.Close()
					}
					return err
				}
				if zw != nil {
					if err := zw.Close(); err != nil {
						return err
					}
				}
				if outputPath != "" {
					fmt.Fprintf(os.Stderr, "exported %d records to %s\n", count, outputPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&formatName, "format", string(format.JSON), "document format: json|yaml")
	cmd.Flags().BoolVar(&compress, "zstd", false, "compress the document with zstd")
	filters.register(cmd)
	return cmd
}
