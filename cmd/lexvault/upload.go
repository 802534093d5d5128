package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
)

type uploadOptions struct {
	name        string
	mimeType    string
	uploadedBy  string
	caseID      string
	orderID     string
	tags        []string
	description string
}

func newUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &uploadOptions{}
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Store a file and record its metadata",
		Args:  requireExactlyArgs(1, "path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			if limit := cfg.Storage.MaxFileSize; limit > 0 && info.Size() > limit {
				return &filestore.ValidationError{
					Constraint: filestore.ConstraintSize,
					Message:    fmt.Sprintf("file size %d exceeds maximum of %d bytes", info.Size(), limit),
				}
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			name := chooseFirst(opts.name, filepath.Base(path))
			mimeType := chooseFirst(opts.mimeType, detectMimeType(name, content))
			uploadedBy := chooseFirst(opts.uploadedBy, os.Getenv("USER"))

			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				res, err := st.Upload(cmd.Context(), filestore.UploadInput{
					Content:      content,
					OriginalName: name,
					MimeType:     mimeType,
					UploadedBy:   uploadedBy,
					CaseID:       opts.caseID,
					OrderID:      opts.orderID,
					Tags:         opts.tags,
					Description:  opts.description,
				})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(res)
				}
				status := "stored"
				if res.Deduplicated {
					status = "deduplicated"
				}
				return writePlain("%s %s %s\n", res.FileID, res.Hash, status)
			})
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "original file name (default: base name of path)")
	cmd.Flags().StringVar(&opts.mimeType, "mime", "", "media type (default: detected)")
	cmd.Flags().StringVar(&opts.uploadedBy, "by", "", "uploader (default: $USER)")
	cmd.Flags().StringVar(&opts.caseID, "case", "", "case id")
	cmd.Flags().StringVar(&opts.orderID, "order", "", "order id")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&opts.description, "description", "", "description")
	return cmd
}
