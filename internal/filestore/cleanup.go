package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"lexvault/internal/blobstore"
)

// CleanupResult reports one orphan sweep.
type CleanupResult struct {
	ScannedCount   int   `json:"scannedCount"`
	CandidateCount int   `json:"candidateCount"`
	DeletedCount   int   `json:"deletedCount"`
	FailedCount    int   `json:"failedCount"`
	ReclaimedBytes int64 `json:"reclaimedBytes"`
	DryRun         bool  `json:"dryRun"`
}

// CleanupOrphanedFiles removes every blob no record references and returns
// how many were removed.
func (s *Store) CleanupOrphanedFiles(ctx context.Context) (int, error) {
	result, err := s.SweepOrphans(ctx, true)
	if err != nil {
		return result.DeletedCount, err
	}
	if result.FailedCount > 0 {
		return result.DeletedCount, fmt.Errorf("cleanup: %d orphaned blobs could not be removed", result.FailedCount)
	}
	return result.DeletedCount, nil
}

// SweepOrphans finds blobs no record references. With apply false nothing is
// removed and ReclaimedBytes is what a real sweep would free. Temp files and
// files not named by a digest are ignored.
func (s *Store) SweepOrphans(ctx context.Context, apply bool) (CleanupResult, error) {
	result := CleanupResult{DryRun: !apply}

	var blobs []blobstore.BlobInfo
	err := s.blobs.Walk(ctx, func(info blobstore.BlobInfo) error {
		blobs = append(blobs, info)
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk blobs: %w", err)
	}
	result.ScannedCount = len(blobs)

	for _, blob := range blobs {
		referenced, err := s.hashReferenced(ctx, blob.SHA256)
		if err != nil {
			return result, err
		}
		if referenced {
			continue
		}
		result.CandidateCount++
		if !apply {
			result.ReclaimedBytes += blob.SizeBytes
			continue
		}
		if err := s.blobs.Delete(ctx, blob.BlobKey); err != nil {
			result.FailedCount++
			s.logger.Warn("remove orphan failed", "hash", blob.SHA256, "error", err)
			continue
		}
		result.DeletedCount++
		result.ReclaimedBytes += blob.SizeBytes
	}

	s.logger.Info("orphan sweep finished",
		"scanned", result.ScannedCount,
		"orphans", result.CandidateCount,
		"deleted", result.DeletedCount,
		"failed", result.FailedCount,
		"dry_run", result.DryRun,
	)
	return result, nil
}

// MissingBlob is a record whose blob is absent from the tree.
type MissingBlob struct {
	FileID string `json:"fileId"`
	Hash   string `json:"hash"`
}

// VerifyResult reports an integrity check of the blob tree.
type VerifyResult struct {
	BlobsChecked   int           `json:"blobsChecked"`
	RecordsChecked int           `json:"recordsChecked"`
	Corrupt        []string      `json:"corrupt"`
	Missing        []MissingBlob `json:"missing"`
}

// OK reports whether verification found no problems.
func (r VerifyResult) OK() bool {
	return len(r.Corrupt) == 0 && len(r.Missing) == 0
}

// Verify rehashes every blob and checks that every record's blob exists.
// It never modifies the store.
func (s *Store) Verify(ctx context.Context) (VerifyResult, error) {
	result := VerifyResult{Corrupt: []string{}, Missing: []MissingBlob{}}

	err := s.blobs.Walk(ctx, func(info blobstore.BlobInfo) error {
		result.BlobsChecked++
		digest, err := s.hashBlob(ctx, info.BlobKey)
		if err != nil {
			return err
		}
		if digest != info.SHA256 {
			s.logger.Warn("blob content does not match digest", "hash", info.SHA256, "actual", digest)
			result.Corrupt = append(result.Corrupt, info.SHA256)
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("verify blobs: %w", err)
	}

	files, err := s.meta.ListFiles(ctx, allRecords())
	if err != nil {
		return result, fmt.Errorf("verify records: %w", err)
	}
	present := map[string]bool{}
	for _, f := range files {
		result.RecordsChecked++
		ok, seen := present[f.Hash]
		if !seen {
			key, err := blobstore.KeyFromDigest(f.Hash)
			if err != nil {
				return result, err
			}
			ok, err = s.blobs.Exists(ctx, key)
			if err != nil {
				return result, fmt.Errorf("verify records: %w", err)
			}
			present[f.Hash] = ok
		}
		if !ok {
			result.Missing = append(result.Missing, MissingBlob{FileID: f.ID, Hash: f.Hash})
		}
	}
	return result, nil
}

func (s *Store) hashBlob(ctx context.Context, key string) (string, error) {
	rc, err := s.blobs.Open(ctx, key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", fmt.Errorf("hash blob %s: %w", key, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
