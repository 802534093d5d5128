package store

import (
	"fmt"
	"sort"
	"strings"

	"lexvault/internal/blobstore"
	"lexvault/internal/models"
)

// ValidateRecord checks the fields every persisted record must carry and
// normalizes tags, mime type and timestamps in place.
func ValidateRecord(meta *models.FileMetadata) error {
	if meta == nil {
		return fmt.Errorf("metadata is required: %w", ErrInvalidRecord)
	}
	if !ValidID(meta.ID) {
		return fmt.Errorf("id %q: %w", meta.ID, ErrInvalidRecord)
	}
	meta.Hash = strings.ToLower(strings.TrimSpace(meta.Hash))
	if !blobstore.ValidDigest(meta.Hash) {
		return fmt.Errorf("record %s: hash %q: %w", meta.ID, meta.Hash, ErrInvalidRecord)
	}
	if meta.Size < 0 {
		return fmt.Errorf("record %s: negative size: %w", meta.ID, ErrInvalidRecord)
	}
	if meta.UploadedAt.IsZero() {
		return fmt.Errorf("record %s: uploadedAt is required: %w", meta.ID, ErrInvalidRecord)
	}
	meta.UploadedAt = meta.UploadedAt.UTC()
	meta.MimeType = models.NormalizeMimeType(meta.MimeType)
	meta.Tags = models.NormalizeTags(meta.Tags)
	return nil
}

func sortNewestFirst(files []models.FileMetadata) {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].UploadedAt.Equal(files[j].UploadedAt) {
			return files[i].UploadedAt.After(files[j].UploadedAt)
		}
		return files[i].ID > files[j].ID
	})
}

func sortOldestFirst(files []models.FileMetadata) {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].UploadedAt.Equal(files[j].UploadedAt) {
			return files[i].UploadedAt.Before(files[j].UploadedAt)
		}
		return files[i].ID < files[j].ID
	})
}

func page(files []models.FileMetadata, offset, limit int) []models.FileMetadata {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(files) {
		return []models.FileMetadata{}
	}
	files = files[offset:]
	if limit > 0 && limit < len(files) {
		files = files[:limit]
	}
	return files
}
