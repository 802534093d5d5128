package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
)

func newGetCmd(cfg *config.Config) *cobra.Command {
	var (
		outPath string
		force   bool
		byHash  bool
	)

	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Write stored file content to a path",
		Args:  requireExactlyArgs(1, "file id (or hash with --hash) is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(outPath) == "" {
				return fmt.Errorf("--output is required")
			}
			if !force {
				if _, err := os.Stat(outPath); err == nil {
					return fmt.Errorf("output file exists (use --force to overwrite)")
				}
			}

			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				var src io.ReadCloser
				if byHash {
					data, err := st.GetFileContentByHash(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if data == nil {
						return fmt.Errorf("content not found for hash %s", args[0])
					}
					src = io.NopCloser(bytes.NewReader(data))
				} else {
					rc, _, err := st.OpenContent(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if rc == nil {
						return fmt.Errorf("content not found for file %s", args[0])
					}
					src = rc
				}
				defer src.Close()

				f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
				if err != nil {
					return err
				}
				if _, err := io.Copy(f, src); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				return writePlain("%s\n", outPath)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output path if it exists")
	cmd.Flags().BoolVar(&byHash, "hash", false, "treat the argument as a content hash")
	return cmd
}
