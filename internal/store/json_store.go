package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lexvault/internal/models"
)

const (
	jsonRecordExt = ".json"
	jsonTmpDir    = ".tmp"
)

// JSONStore keeps one JSON sidecar per record under a directory:
// <root>/<id>.json. Every lookup other than GetFile scans the directory.
type JSONStore struct {
	root string
}

// OpenJSON opens (and creates) a JSON metadata directory.
func OpenJSON(root string) (*JSONStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("metadata root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, jsonTmpDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating metadata directory: %w", err)
	}
	return &JSONStore{root: abs}, nil
}

// Close is a no-op.
func (s *JSONStore) Close() error {
	return nil
}

// PutFile writes one record through a temp file and a rename.
func (s *JSONStore) PutFile(ctx context.Context, meta *models.FileMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateRecord(meta); err != nil {
		return err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata %s: %w", meta.ID, err)
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, jsonTmpDir), "meta-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing metadata %s: %w", meta.ID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing metadata %s: %w", meta.ID, err)
	}
	if err := os.Rename(tmpPath, s.recordPath(meta.ID)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("committing metadata %s: %w", meta.ID, err)
	}
	return nil
}

// GetFile reads one record.
func (s *JSONStore) GetFile(ctx context.Context, id string) (*models.FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ValidID(id) {
		return nil, nil
	}
	meta, err := readRecord(s.recordPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return meta, err
}

// DeleteFile removes one record.
func (s *JSONStore) DeleteFile(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !ValidID(id) {
		return false, nil
	}
	err := os.Remove(s.recordPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete metadata %s: %w", id, err)
	}
	return true, nil
}

// ListFiles scans every record and applies filter.
func (s *JSONStore) ListFiles(ctx context.Context, filter models.FileFilter) ([]models.FileMetadata, error) {
	out := []models.FileMetadata{}
	err := s.each(ctx, func(meta *models.FileMetadata) {
		if filter.Matches(meta) {
			out = append(out, *meta)
		}
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return page(out, filter.Offset, filter.Limit), nil
}

// ListFilesByHash scans every record for hash.
func (s *JSONStore) ListFilesByHash(ctx context.Context, hash string) ([]models.FileMetadata, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	out := []models.FileMetadata{}
	err := s.each(ctx, func(meta *models.FileMetadata) {
		if meta.Hash == hash {
			out = append(out, *meta)
		}
	})
	if err != nil {
		return nil, err
	}
	sortOldestFirst(out)
	return out, nil
}

// each decodes every record in the directory. A record that cannot be
// decoded fails the scan: callers use scans to decide whether a blob is
// still referenced.
func (s *JSONStore) each(ctx context.Context, fn func(*models.FileMetadata)) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("reading metadata directory: %w", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, jsonRecordExt) {
			continue
		}
		meta, err := readRecord(filepath.Join(s.root, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		fn(meta)
	}
	return nil
}

func (s *JSONStore) recordPath(id string) string {
	return filepath.Join(s.root, id+jsonRecordExt)
}

func readRecord(path string) (*models.FileMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta models.FileMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata %s: %w", filepath.Base(path), err)
	}
	return &meta, nil
}
