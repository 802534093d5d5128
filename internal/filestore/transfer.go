package filestore

import (
	"context"
	"fmt"
	"io"
	"time"

	"lexvault/internal/format"
	"lexvault/internal/models"
	"lexvault/internal/store"
)

// ExportVersion is the document version written by ExportMetadata.
const ExportVersion = 1

// ExportDocument is the serialized form of a metadata dump. Blobs are not
// included.
type ExportDocument struct {
	Version    int                   `json:"version" yaml:"version"`
	ExportedAt time.Time             `json:"exportedAt" yaml:"exportedAt"`
	Files      []models.FileMetadata `json:"files" yaml:"files"`
}

// ExportMetadata writes every record matching filter to w and returns how
// many were written. Offset and limit are ignored.
func (s *Store) ExportMetadata(ctx context.Context, w io.Writer, filter models.FileFilter, f format.Format) (int, error) {
	formatter, err := format.For(f)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	filter.Offset = 0
	filter.Limit = 0
	files, err := s.meta.ListFiles(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	if files == nil {
		files = []models.FileMetadata{}
	}

	doc := ExportDocument{
		Version:    ExportVersion,
		ExportedAt: s.now().UTC(),
		Files:      files,
	}
	if err := formatter.Write(w, doc); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	s.logger.Info("metadata exported", "records", len(files), "format", string(f))
	return len(files), nil
}

// ImportMetadata reads a document written by ExportMetadata, plain or zstd
// compressed, JSON or YAML, and upserts every record. The whole document is
// validated before the first write. Blobs are not touched; records whose blob
// is missing read back as content not found.
func (s *Store) ImportMetadata(ctx context.Context, r io.Reader) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("import: read: %w", err)
	}
	data, err := format.Decompress(raw)
	if err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}

	var doc ExportDocument
	if err := format.Decode(data, &doc); err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	if doc.Version != ExportVersion {
		return 0, fmt.Errorf("import: unsupported document version %d", doc.Version)
	}

	for i := range doc.Files {
		if err := store.ValidateRecord(&doc.Files[i]); err != nil {
			return 0, fmt.Errorf("import: record %d: %w", i, err)
		}
	}

	count := 0
	for i := range doc.Files {
		rec := &doc.Files[i]
		previous, err := s.meta.GetFile(ctx, rec.ID)
		if err != nil {
			return count, fmt.Errorf("import: %w", err)
		}
		if err := s.meta.PutFile(ctx, rec); err != nil {
			return count, fmt.Errorf("import: record %s: %w", rec.ID, err)
		}
		count++
		if previous != nil && previous.Hash != rec.Hash {
			if err := s.indexRemove(ctx, previous.Hash, rec.ID); err != nil {
				s.markIndexStale(err)
			}
		}
		if err := s.indexAdd(ctx, rec.Hash, rec.ID); err != nil {
			s.markIndexStale(err)
		}
	}

	s.logger.Info("metadata imported", "records", count)
	return count, nil
}
