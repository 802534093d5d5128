package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"lexvault/internal/format"
	"lexvault/internal/models"
)

var (
	stdout          io.Writer        = os.Stdout
	outputFormatter format.Formatter = format.JSONFormatter{}
)

func writeJSON(payload any) error {
	return outputFormatter.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func writeFileList(files []models.FileMetadata) error {
	for _, f := range files {
		if err := writePlain("%s\n", formatFileLine(f)); err != nil {
			return err
		}
	}
	return nil
}

func writeFileDetail(meta *models.FileMetadata) error {
	lines := []string{
		fmt.Sprintf("id: %s", meta.ID),
		fmt.Sprintf("name: %s", meta.OriginalName),
		fmt.Sprintf("mime_type: %s", meta.MimeType),
		fmt.Sprintf("size: %d (%s)", meta.Size, humanize.IBytes(uint64(meta.Size))),
		fmt.Sprintf("hash: %s", meta.Hash),
		fmt.Sprintf("uploaded_at: %s", formatTime(meta.UploadedAt)),
		fmt.Sprintf("uploaded_by: %s", meta.UploadedBy),
	}
	if meta.CaseID != "" {
		lines = append(lines, fmt.Sprintf("case_id: %s", meta.CaseID))
	}
	if meta.OrderID != "" {
		lines = append(lines, fmt.Sprintf("order_id: %s", meta.OrderID))
	}
	if len(meta.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("tags: %s", strings.Join(meta.Tags, ", ")))
	}
	if meta.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", meta.Description))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeStats(stats models.StorageStats) error {
	lines := []string{
		fmt.Sprintf("total_files: %d", stats.TotalFiles),
		fmt.Sprintf("unique_files: %d", stats.UniqueFiles),
		fmt.Sprintf("duplicate_files: %d", stats.DuplicateFiles),
		fmt.Sprintf("total_size: %s", humanize.IBytes(uint64(stats.TotalSize))),
		fmt.Sprintf("stored_bytes: %s", humanize.IBytes(uint64(stats.StoredBytes))),
	}
	lines = appendTally(lines, "by_mime_type", stats.FilesByMimeType)
	lines = appendTally(lines, "by_case", stats.FilesByCase)
	lines = appendTally(lines, "by_order", stats.FilesByOrder)
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func appendTally(lines []string, title string, counts map[string]int) []string {
	if len(counts) == 0 {
		return lines
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lines = append(lines, title+":")
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("  %s: %d", key, counts[key]))
	}
	return lines
}

func formatFileLine(f models.FileMetadata) string {
	line := fmt.Sprintf("%s  %s  %-9s  %s  %s", f.ID, formatTime(f.UploadedAt), humanize.IBytes(uint64(f.Size)), f.MimeType, f.OriginalName)
	if f.CaseID != "" {
		line += "  case=" + f.CaseID
	}
	return line
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
