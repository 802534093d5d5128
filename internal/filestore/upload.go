package filestore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"lexvault/internal/blobstore"
	"lexvault/internal/models"
	"lexvault/internal/store"
)

// UploadInput is one logical upload. Content is hashed by the store; callers
// never supply a digest.
type UploadInput struct {
	Content      []byte
	OriginalName string
	MimeType     string
	UploadedBy   string
	CaseID       string
	OrderID      string
	Tags         []string
	Description  string
}

// UploadResult describes a stored upload.
type UploadResult struct {
	FileID   string               `json:"fileId"`
	Hash     string               `json:"hash"`
	Size     int64                `json:"size"`
	Path     string               `json:"path"`
	Metadata *models.FileMetadata `json:"metadata"`
	// Deduplicated is true when the content was already stored.
	Deduplicated bool `json:"deduplicated"`
}

// Upload validates, stores and records one upload. The blob is durable
// before its metadata record is written.
func (s *Store) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	var zero UploadResult
	mimeType, err := s.validateUpload(in)
	if err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	digest := blobstore.Digest(in.Content)
	key, err := blobstore.KeyFromDigest(digest)
	if err != nil {
		return zero, err
	}

	exists, err := s.blobs.Exists(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("check blob %s: %w", digest, err)
	}
	created := false
	if !exists {
		put, err := s.blobs.Put(ctx, bytes.NewReader(in.Content))
		if err != nil {
			return zero, fmt.Errorf("write blob %s: %w", digest, err)
		}
		if put.SHA256 != digest {
			return zero, fmt.Errorf("write blob: digest mismatch %s != %s", put.SHA256, digest)
		}
		created = put.Created
	}

	id, err := s.nextFileID(ctx)
	if err != nil {
		s.discardNewBlob(ctx, created, key)
		return zero, err
	}

	meta := &models.FileMetadata{
		ID:           id,
		OriginalName: strings.TrimSpace(in.OriginalName),
		MimeType:     mimeType,
		Size:         int64(len(in.Content)),
		Hash:         digest,
		UploadedAt:   s.now().UTC(),
		UploadedBy:   strings.TrimSpace(in.UploadedBy),
		CaseID:       strings.TrimSpace(in.CaseID),
		OrderID:      strings.TrimSpace(in.OrderID),
		Tags:         models.NormalizeTags(in.Tags),
		Description:  strings.TrimSpace(in.Description),
	}
	if err := s.meta.PutFile(ctx, meta); err != nil {
		s.discardNewBlob(ctx, created, key)
		return zero, fmt.Errorf("record upload: %w", err)
	}
	if err := s.indexAdd(ctx, digest, id); err != nil {
		if _, derr := s.meta.DeleteFile(ctx, id); derr != nil {
			s.logger.Warn("roll back record failed", "file_id", id, "error", derr)
		}
		s.discardNewBlob(ctx, created, key)
		return zero, err
	}

	path, err := s.blobs.Path(key)
	if err != nil {
		return zero, err
	}
	path, err = absPath(path)
	if err != nil {
		return zero, err
	}

	s.logger.Info("file uploaded",
		"file_id", id,
		"hash", digest,
		"size", meta.Size,
		"deduplicated", !created,
	)
	return UploadResult{
		FileID:       id,
		Hash:         digest,
		Size:         meta.Size,
		Path:         path,
		Metadata:     meta,
		Deduplicated: !created,
	}, nil
}

func (s *Store) nextFileID(ctx context.Context) (string, error) {
	exists := func(id string) (bool, error) {
		meta, err := s.meta.GetFile(ctx, id)
		if err != nil {
			return false, err
		}
		return meta != nil, nil
	}
	return store.GenerateFileID(exists)
}

// discardNewBlob removes a blob written by a failed upload. Blobs that
// existed before the upload are left for the orphan sweep.
func (s *Store) discardNewBlob(ctx context.Context, created bool, key string) {
	if !created {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("discard blob failed", "blob_key", key, "error", err)
	}
}
