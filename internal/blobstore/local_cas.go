package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	tmpDirName = ".tmp"
	digestLen  = sha256.Size * 2
)

// ErrInvalidDigest reports a string that is not a lowercase hex SHA-256 digest.
var ErrInvalidDigest = errors.New("invalid sha256 digest")

// LocalCAS stores blob bytes in a local content-addressed tree:
// <root>/<first2hex>/<next2hex>/<fullhex>.
type LocalCAS struct {
	root     string
	dirMode  os.FileMode
	fileMode os.FileMode
}

// NewLocalCAS creates a local CAS rooted at root.
func NewLocalCAS(root string) (*LocalCAS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local cas root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	c := &LocalCAS{root: abs, dirMode: 0o755, fileMode: 0o644}
	if err := os.MkdirAll(abs, c.dirMode); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, tmpDirName), c.dirMode); err != nil {
		return nil, err
	}
	return c, nil
}

// Digest returns the hex SHA-256 digest of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidDigest reports whether s is a lowercase hex SHA-256 digest.
func ValidDigest(s string) bool {
	if len(s) != digestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !(ch >= '0' && ch <= '9') && !(ch >= 'a' && ch <= 'f') {
			return false
		}
	}
	return true
}

// KeyFromDigest returns the slash-separated blob key for digest.
func KeyFromDigest(digest string) (string, error) {
	digest = strings.ToLower(strings.TrimSpace(digest))
	if !ValidDigest(digest) {
		return "", fmt.Errorf("%q: %w", digest, ErrInvalidDigest)
	}
	return fmt.Sprintf("%s/%s/%s", digest[0:2], digest[2:4], digest), nil
}

// Put streams bytes, computes SHA-256, and stores content by digest.
// The write goes through a temp file and a rename so a blob is either
// complete or absent.
func (c *LocalCAS) Put(ctx context.Context, r io.Reader) (BlobPutResult, error) {
	var zero BlobPutResult
	if c == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(c.root, tmpDirName), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}
	if err := os.Chmod(tmpPath, c.fileMode); err != nil {
		cleanup()
		return zero, err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	key, err := KeyFromDigest(digest)
	if err != nil {
		cleanup()
		return zero, err
	}
	result := BlobPutResult{SHA256: digest, SizeBytes: n, BlobKey: key}
	dst := filepath.Join(c.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), c.dirMode); err != nil {
		cleanup()
		return zero, err
	}

	if _, err := os.Stat(dst); err == nil {
		_ = os.Remove(tmpPath)
		return result, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		cleanup()
		return zero, err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(tmpPath)
			return result, nil
		}
		cleanup()
		return zero, err
	}

	result.Created = true
	return result, nil
}

// Open returns a reader for blob key content.
func (c *LocalCAS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if c == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := c.Path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Exists reports whether a blob is stored under key.
func (c *LocalCAS) Exists(ctx context.Context, key string) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := c.Path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Delete removes a blob object and prunes empty shard directories.
// Missing files are ignored.
func (c *LocalCAS) Delete(ctx context.Context, key string) error {
	if c == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	c.pruneEmptyDirs(filepath.Dir(path))
	return nil
}

// Walk calls fn for every blob file whose name is a digest stored at its
// sharded location. Temp files and foreign files are skipped.
func (c *LocalCAS) Walk(ctx context.Context, fn func(BlobInfo) error) error {
	if c == nil {
		return fmt.Errorf("blob store is not configured")
	}
	return filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == tmpDirName && filepath.Dir(path) == c.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		digest := d.Name()
		key, keyErr := KeyFromDigest(digest)
		if keyErr != nil || digest != strings.ToLower(digest) {
			return nil
		}
		if filepath.Join(c.root, filepath.FromSlash(key)) != path {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		return fn(BlobInfo{SHA256: digest, SizeBytes: info.Size(), BlobKey: key, Path: path})
	})
}

// Path resolves key to an absolute path inside the tree.
func (c *LocalCAS) Path(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || strings.Contains(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key")
	}
	return filepath.Join(c.root, clean), nil
}

// pruneEmptyDirs walks up from dir removing empty shard directories until it
// reaches the root or a non-empty directory.
func (c *LocalCAS) pruneEmptyDirs(dir string) {
	for dir != c.root && strings.HasPrefix(dir, c.root+string(filepath.Separator)) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
