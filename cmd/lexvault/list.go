package main

import (
	"github.com/spf13/cobra"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
	"lexvault/internal/models"
)

type filterOptions struct {
	caseID     string
	orderID    string
	uploadedBy string
	mimeType   string
	tags       []string
	from       string
	to         string
}

func (o *filterOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.caseID, "case", "", "filter by case id")
	cmd.Flags().StringVar(&o.orderID, "order", "", "filter by order id")
	cmd.Flags().StringVar(&o.uploadedBy, "by", "", "filter by uploader")
	cmd.Flags().StringVar(&o.mimeType, "mime", "", "filter by media type")
	cmd.Flags().StringSliceVar(&o.tags, "tag", nil, "match any of these tags (repeatable)")
	cmd.Flags().StringVar(&o.from, "from", "", "uploaded at or after (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&o.to, "to", "", "uploaded at or before (RFC3339 or YYYY-MM-DD)")
}

func (o *filterOptions) filter() (models.FileFilter, error) {
	from, err := parseOptionalTime("from", o.from, false)
	if err != nil {
		return models.FileFilter{}, err
	}
	to, err := parseOptionalTime("to", o.to, true)
	if err != nil {
		return models.FileFilter{}, err
	}
	return models.FileFilter{
		CaseID:     chooseFirst(o.caseID),
		OrderID:    chooseFirst(o.orderID),
		UploadedBy: chooseFirst(o.uploadedBy),
		MimeType:   chooseFirst(o.mimeType),
		Tags:       o.tags,
		DateFrom:   from,
		DateTo:     to,
	}, nil
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	opts := &filterOptions{}
	var offset, limit int

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List files, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.filter()
			if err != nil {
				return err
			}
			filter.Offset = offset
			filter.Limit = limit

			return withStore(cmd.Context(), cfg, func(st *filestore.Store) error {
				files, err := st.QueryFiles(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if *jsonOutput {
					if files == nil {
						files = []models.FileMetadata{}
					}
					return writeJSON(files)
				}
				return writeFileList(files)
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many results")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (default: storage.default_query_limit)")
	return cmd
}
