package store

import (
	"context"
	"errors"

	"lexvault/internal/models"
)

// ErrInvalidRecord reports a metadata record that cannot be persisted.
var ErrInvalidRecord = errors.New("invalid metadata record")

// MetadataStore is the persistence surface for file metadata records.
//
// Records are independent: there is no transaction spanning several records
// and no coordination with the blob tree.
type MetadataStore interface {
	// PutFile creates or replaces one record.
	PutFile(ctx context.Context, meta *models.FileMetadata) error
	// GetFile returns nil, nil when the record does not exist.
	GetFile(ctx context.Context, id string) (*models.FileMetadata, error)
	// DeleteFile reports whether a record was removed.
	DeleteFile(ctx context.Context, id string) (bool, error)
	// ListFiles returns matching records ordered by uploadedAt descending,
	// then id descending. A non-positive limit returns every match.
	ListFiles(ctx context.Context, filter models.FileFilter) ([]models.FileMetadata, error)
	// ListFilesByHash returns records sharing hash ordered by uploadedAt
	// ascending, then id ascending.
	ListFilesByHash(ctx context.Context, hash string) ([]models.FileMetadata, error)
	Close() error
}

var (
	_ MetadataStore = (*JSONStore)(nil)
	_ MetadataStore = (*SQLiteStore)(nil)
)
