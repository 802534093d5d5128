package main

import (
	"context"
	"fmt"
	"log/slog"

	"lexvault/internal/config"
	"lexvault/internal/filestore"
)

func storeConfig(cfg *config.Config) filestore.Config {
	return filestore.Config{
		DataDir:           cfg.DataDir,
		MaxFileSize:       cfg.Storage.MaxFileSize,
		AllowedMimeTypes:  cfg.Storage.AllowedMimeTypes,
		ChunkSize:         cfg.Storage.ChunkSize,
		DefaultQueryLimit: cfg.Storage.DefaultQueryLimit,
		MetadataBackend:   cfg.Metadata.Backend,
		IndexBackend:      cfg.Index.Backend,
		RedisURL:          cfg.Index.RedisURL,
		RedisPrefix:       cfg.Index.RedisPrefix,
	}
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, cfg *config.Config, fn func(*filestore.Store) error) error {
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := filestore.Open(ctx, storeConfig(cfg), filestore.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(st)
}
