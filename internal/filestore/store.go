package filestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"lexvault/internal/blobstore"
	"lexvault/internal/index"
	"lexvault/internal/store"
)

// Store is one content-addressed document store rooted at Config.DataDir.
// Create it once with Open and pass it to whoever needs it.
type Store struct {
	cfg         Config
	blobs       blobstore.BlobStore
	meta        store.MetadataStore
	index       index.HashIndex
	allowedMime map[string]struct{}
	logger      *slog.Logger
	now         func() time.Time

	// indexStale is set once an index write fails after metadata changed.
	// The index is then bypassed until the store is reopened and rebuilt.
	indexStale atomic.Bool
}

// Option customizes Open.
type Option func(*Store)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the upload timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetadataStore replaces the configured metadata backend.
func WithMetadataStore(meta store.MetadataStore) Option {
	return func(s *Store) {
		s.meta = meta
	}
}

// WithIndex replaces the configured hash index.
func WithIndex(idx index.HashIndex) Option {
	return func(s *Store) {
		s.index = idx
	}
}

// Open prepares the data directory and opens the configured backends.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	cfg = cfg.withDefaults()
	s := &Store{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "filestore")

	s.allowedMime = make(map[string]struct{}, len(cfg.AllowedMimeTypes))
	for _, mt := range cfg.AllowedMimeTypes {
		s.allowedMime[mt] = struct{}{}
	}

	blobs, err := blobstore.NewLocalCAS(cfg.filesDir())
	if err != nil {
		return nil, fmt.Errorf("open blob tree: %w", err)
	}
	s.blobs = blobs

	if s.meta == nil {
		meta, err := openMetadataStore(cfg)
		if err != nil {
			return nil, err
		}
		s.meta = meta
	}

	if s.index == nil {
		idx, err := openIndex(cfg)
		if err != nil {
			_ = s.meta.Close()
			return nil, err
		}
		s.index = idx
	}
	if s.index != nil {
		if err := s.rebuildIndex(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	s.logger.Debug("store opened",
		"data_dir", cfg.DataDir,
		"metadata_backend", cfg.MetadataBackend,
		"index_backend", cfg.IndexBackend,
	)
	return s, nil
}

func openMetadataStore(cfg Config) (store.MetadataStore, error) {
	switch cfg.MetadataBackend {
	case MetadataBackendJSON:
		meta, err := store.OpenJSON(cfg.metadataDir())
		if err != nil {
			return nil, fmt.Errorf("open metadata tree: %w", err)
		}
		return meta, nil
	case MetadataBackendSQLite:
		if err := os.MkdirAll(cfg.metadataDir(), 0o755); err != nil {
			return nil, fmt.Errorf("create metadata dir: %w", err)
		}
		meta, err := store.OpenSQLite(cfg.MetadataDBPath())
		if err != nil {
			return nil, fmt.Errorf("open metadata database: %w", err)
		}
		return meta, nil
	default:
		return nil, fmt.Errorf("invalid metadata backend: %s", cfg.MetadataBackend)
	}
}

func openIndex(cfg Config) (index.HashIndex, error) {
	backend, err := index.ParseBackend(cfg.IndexBackend)
	if err != nil {
		return nil, err
	}
	switch backend {
	case index.BackendMemory:
		return index.NewMemory(), nil
	case index.BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("index backend redis requires a redis url")
		}
		idx, err := index.NewRedis(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, nil
	}
}

// rebuildIndex loads every record's hash into the index.
func (s *Store) rebuildIndex(ctx context.Context) error {
	files, err := s.meta.ListFiles(ctx, allRecords())
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	entries := make(map[string][]string)
	for _, f := range files {
		entries[f.Hash] = append(entries[f.Hash], f.ID)
	}
	if err := s.index.Reset(ctx, entries); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	s.logger.Debug("index rebuilt", "records", len(files), "hashes", len(entries))
	return nil
}

// Close releases the metadata backend and the index.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.meta != nil {
		errs = append(errs, s.meta.Close())
	}
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	return errors.Join(errs...)
}

// DataDir returns the resolved data directory.
func (s *Store) DataDir() string {
	return s.cfg.DataDir
}

// Config returns the effective configuration after defaults.
func (s *Store) Config() Config {
	return s.cfg
}
