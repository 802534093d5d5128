package filestore

import (
	"context"
	"fmt"

	"lexvault/internal/models"
)

// Statistics tallies every metadata record. Records without a case or order
// are not counted in the per-case or per-order maps.
func (s *Store) Statistics(ctx context.Context) (models.StorageStats, error) {
	stats := models.StorageStats{
		FilesByMimeType: map[string]int{},
		FilesByCase:     map[string]int{},
		FilesByOrder:    map[string]int{},
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	files, err := s.meta.ListFiles(ctx, allRecords())
	if err != nil {
		return stats, fmt.Errorf("statistics: %w", err)
	}

	hashes := make(map[string]int64, len(files))
	for _, f := range files {
		stats.TotalFiles++
		stats.TotalSize += f.Size
		hashes[f.Hash] = f.Size
		stats.FilesByMimeType[f.MimeType]++
		if f.CaseID != "" {
			stats.FilesByCase[f.CaseID]++
		}
		if f.OrderID != "" {
			stats.FilesByOrder[f.OrderID]++
		}
	}
	stats.UniqueFiles = len(hashes)
	stats.DuplicateFiles = stats.TotalFiles - stats.UniqueFiles
	for _, size := range hashes {
		stats.StoredBytes += size
	}
	return stats, nil
}
