package filestore

import (
	"context"
	"fmt"
	"strings"

	"lexvault/internal/blobstore"
	"lexvault/internal/models"
)

// DeleteFile removes the record for id and, when no other record references
// its hash, the blob. It returns false when the record did not exist.
func (s *Store) DeleteFile(ctx context.Context, id string) (bool, error) {
	meta, err := s.GetFileByID(ctx, id)
	if err != nil || meta == nil {
		return false, err
	}

	deleted, err := s.meta.DeleteFile(ctx, meta.ID)
	if err != nil {
		return false, fmt.Errorf("delete file %s: %w", meta.ID, err)
	}
	if !deleted {
		return false, nil
	}
	if err := s.indexRemove(ctx, meta.Hash, meta.ID); err != nil {
		s.markIndexStale(err)
	}

	referenced, err := s.hashReferenced(ctx, meta.Hash)
	if err != nil {
		return true, err
	}
	if referenced {
		s.logger.Info("file deleted", "file_id", meta.ID, "hash", meta.Hash, "blob_removed", false)
		return true, nil
	}

	key, err := blobstore.KeyFromDigest(meta.Hash)
	if err != nil {
		return true, err
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		return true, fmt.Errorf("delete blob %s: %w", meta.Hash, err)
	}
	s.logger.Info("file deleted", "file_id", meta.ID, "hash", meta.Hash, "blob_removed", true)
	return true, nil
}

// UpdateFileMetadata merges the non-nil fields of update into the record for
// id. It returns false when the record does not exist.
func (s *Store) UpdateFileMetadata(ctx context.Context, id string, update models.FileUpdate) (bool, error) {
	meta, err := s.GetFileByID(ctx, id)
	if err != nil || meta == nil {
		return false, err
	}
	if update.Empty() {
		return true, nil
	}
	if update.OriginalName != nil {
		if err := validateName(*update.OriginalName); err != nil {
			return false, err
		}
	}
	if err := update.Apply(meta); err != nil {
		return false, validationErrorf(ConstraintName, "%s", err.Error())
	}
	if err := s.meta.PutFile(ctx, meta); err != nil {
		return false, fmt.Errorf("update file %s: %w", meta.ID, err)
	}

	s.logger.Info("file metadata updated", "file_id", meta.ID, "fields", updatedFields(update))
	return true, nil
}

func updatedFields(update models.FileUpdate) string {
	var fields []string
	if update.OriginalName != nil {
		fields = append(fields, "originalName")
	}
	if update.Description != nil {
		fields = append(fields, "description")
	}
	if update.CaseID != nil {
		fields = append(fields, "caseId")
	}
	if update.OrderID != nil {
		fields = append(fields, "orderId")
	}
	if update.Tags != nil {
		fields = append(fields, "tags")
	}
	return strings.Join(fields, ",")
}
