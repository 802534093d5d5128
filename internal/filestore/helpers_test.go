package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"lexvault/internal/models"
)

type stepClock struct {
	t time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type storeMode struct {
	metadata string
	index    string
}

func (m storeMode) String() string {
	return m.metadata + "/" + m.index
}

var allModes = []storeMode{
	{metadata: MetadataBackendJSON, index: "scan"},
	{metadata: MetadataBackendJSON, index: "memory"},
	{metadata: MetadataBackendJSON, index: "redis"},
	{metadata: MetadataBackendSQLite, index: "scan"},
	{metadata: MetadataBackendSQLite, index: "memory"},
	{metadata: MetadataBackendSQLite, index: "redis"},
}

func forEachMode(t *testing.T, fn func(t *testing.T, cfg Config)) {
	t.Helper()
	for _, mode := range allModes {
		t.Run(mode.String(), func(t *testing.T) {
			cfg := Config{
				DataDir:         t.TempDir(),
				MetadataBackend: mode.metadata,
				IndexBackend:    mode.index,
			}
			if mode.index == "redis" {
				cfg = redisConfig(t, cfg)
			}
			fn(t, cfg)
		})
	}
}

func redisConfig(t *testing.T, cfg Config) Config {
	t.Helper()
	cfg, _ = redisServerConfig(t, cfg)
	return cfg
}

func redisServerConfig(t *testing.T, cfg Config) (Config, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg.IndexBackend = "redis"
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.RedisPrefix = "test:"
	return cfg, mr
}

func openTestStore(t *testing.T, cfg Config, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func textUpload(content, name, by string) UploadInput {
	return UploadInput{
		Content:      []byte(content),
		OriginalName: name,
		MimeType:     "text/plain",
		UploadedBy:   by,
	}
}

func mustUpload(t *testing.T, s *Store, in UploadInput) UploadResult {
	t.Helper()
	res, err := s.Upload(context.Background(), in)
	if err != nil {
		t.Fatalf("upload %s: %v", in.OriginalName, err)
	}
	return res
}

func blobPath(cfg Config, hash string) string {
	return filepath.Join(cfg.DataDir, "files", hash[0:2], hash[2:4], hash)
}

func fileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return false
}

func countBlobs(t *testing.T, s *Store) int {
	t.Helper()
	res, err := s.SweepOrphans(context.Background(), false)
	if err != nil {
		t.Fatalf("scan blobs: %v", err)
	}
	return res.ScannedCount
}

func ids(files []models.FileMetadata) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.ID)
	}
	return out
}
