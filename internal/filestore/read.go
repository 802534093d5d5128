package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lexvault/internal/blobstore"
	"lexvault/internal/index"
	"lexvault/internal/models"
)

// GetFileByHash returns the earliest record referencing hash, or nil when no
// record does. Malformed hashes are treated as not found.
func (s *Store) GetFileByHash(ctx context.Context, hash string) (*models.FileMetadata, error) {
	digest, ok := normalizeHash(hash)
	if !ok {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := s.activeIndex()
	if idx == nil {
		files, err := s.meta.ListFilesByHash(ctx, digest)
		if err != nil {
			return nil, fmt.Errorf("lookup hash %s: %w", digest, err)
		}
		if len(files) == 0 {
			return nil, nil
		}
		first := files[0]
		return &first, nil
	}

	ids, err := idx.Members(ctx, digest)
	if err != nil {
		return nil, err
	}
	var first *models.FileMetadata
	for _, id := range ids {
		meta, err := s.meta.GetFile(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lookup hash %s: %w", digest, err)
		}
		if meta == nil || meta.Hash != digest {
			continue
		}
		if first == nil || uploadedBefore(meta, first) {
			first = meta
		}
	}
	return first, nil
}

// GetFileByID returns the record for id, or nil when it does not exist.
func (s *Store) GetFileByID(ctx context.Context, id string) (*models.FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := s.meta.GetFile(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return meta, nil
}

// GetFileContent returns the bytes of the blob referenced by id. Nil means
// the record or its blob is missing.
func (s *Store) GetFileContent(ctx context.Context, id string) ([]byte, error) {
	meta, err := s.GetFileByID(ctx, id)
	if err != nil || meta == nil {
		return nil, err
	}
	return s.readBlob(ctx, meta.Hash)
}

// GetFileContentByHash returns the blob stored under hash without consulting
// metadata. Nil means no such blob.
func (s *Store) GetFileContentByHash(ctx context.Context, hash string) ([]byte, error) {
	digest, ok := normalizeHash(hash)
	if !ok {
		return nil, nil
	}
	return s.readBlob(ctx, digest)
}

// OpenContent streams the blob referenced by id. It returns nil, nil when the
// record or blob is missing; the caller closes the reader.
func (s *Store) OpenContent(ctx context.Context, id string) (io.ReadCloser, *models.FileMetadata, error) {
	meta, err := s.GetFileByID(ctx, id)
	if err != nil || meta == nil {
		return nil, nil, err
	}
	rc, err := s.openBlob(ctx, meta.Hash)
	if err != nil || rc == nil {
		return nil, nil, err
	}
	return rc, meta, nil
}

// QueryFiles returns records matching filter, newest first. A non-positive
// limit uses the configured default.
func (s *Store) QueryFiles(ctx context.Context, filter models.FileFilter) ([]models.FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = s.cfg.DefaultQueryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	files, err := s.meta.ListFiles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	return files, nil
}

func (s *Store) readBlob(ctx context.Context, digest string) ([]byte, error) {
	rc, err := s.openBlob(ctx, digest)
	if err != nil || rc == nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", digest, err)
	}
	return data, nil
}

func (s *Store) openBlob(ctx context.Context, digest string) (io.ReadCloser, error) {
	key, err := blobstore.KeyFromDigest(digest)
	if err != nil {
		return nil, nil
	}
	rc, err := s.blobs.Open(ctx, key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", digest, err)
	}
	return rc, nil
}

// hashReferenced reports whether any metadata record points at digest.
// Delete and the orphan sweep both decide through this one predicate. The
// index may only say yes; a zero count or an index error is settled by the
// metadata records.
func (s *Store) hashReferenced(ctx context.Context, digest string) (bool, error) {
	if idx := s.activeIndex(); idx != nil {
		n, err := idx.Count(ctx, digest)
		switch {
		case err != nil:
			s.logger.Warn("index count failed, checking metadata", "hash", digest, "error", err)
		case n > 0:
			return true, nil
		}
	}
	files, err := s.meta.ListFilesByHash(ctx, digest)
	if err != nil {
		return false, fmt.Errorf("check references for %s: %w", digest, err)
	}
	return len(files) > 0, nil
}

// activeIndex returns the index, or nil when none is configured or it has
// gone stale.
func (s *Store) activeIndex() index.HashIndex {
	if s.index == nil || s.indexStale.Load() {
		return nil
	}
	return s.index
}

func (s *Store) markIndexStale(err error) {
	if s.index == nil {
		return
	}
	if !s.indexStale.Swap(true) {
		s.logger.Warn("index out of date, using metadata until reopen", "error", err)
	}
}

func (s *Store) indexAdd(ctx context.Context, digest, id string) error {
	idx := s.activeIndex()
	if idx == nil {
		return nil
	}
	if err := idx.Add(ctx, digest, id); err != nil {
		return fmt.Errorf("update index: %w", err)
	}
	return nil
}

func (s *Store) indexRemove(ctx context.Context, digest, id string) error {
	idx := s.activeIndex()
	if idx == nil {
		return nil
	}
	if err := idx.Remove(ctx, digest, id); err != nil {
		return fmt.Errorf("update index: %w", err)
	}
	return nil
}

func normalizeHash(hash string) (string, bool) {
	digest := strings.ToLower(strings.TrimSpace(hash))
	return digest, blobstore.ValidDigest(digest)
}

func uploadedBefore(a, b *models.FileMetadata) bool {
	if !a.UploadedAt.Equal(b.UploadedAt) {
		return a.UploadedAt.Before(b.UploadedAt)
	}
	return a.ID < b.ID
}

func allRecords() models.FileFilter {
	return models.FileFilter{}
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	return abs, nil
}
