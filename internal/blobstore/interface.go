package blobstore

import (
	"context"
	"io"
)

// BlobPutResult describes one persisted blob payload.
type BlobPutResult struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
	// Created is false when the digest was already stored and the write was skipped.
	Created bool
}

// BlobInfo describes one blob found while walking the tree.
type BlobInfo struct {
	SHA256    string
	SizeBytes int64
	BlobKey   string
	Path      string
}

// BlobStore is the byte-storage abstraction used by the file store.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader) (BlobPutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Walk(ctx context.Context, fn func(BlobInfo) error) error
	Path(key string) (string, error)
}

var _ BlobStore = (*LocalCAS)(nil)
