package models

import (
	"fmt"
	"mime"
	"sort"
	"strings"
	"time"
)

// FileMetadata is one logical upload. Several records may share a Hash.
type FileMetadata struct {
	ID           string    `json:"id" yaml:"id"`
	OriginalName string    `json:"originalName" yaml:"originalName"`
	MimeType     string    `json:"mimeType" yaml:"mimeType"`
	Size         int64     `json:"size" yaml:"size"`
	Hash         string    `json:"hash" yaml:"hash"`
	UploadedAt   time.Time `json:"uploadedAt" yaml:"uploadedAt"`
	UploadedBy   string    `json:"uploadedBy" yaml:"uploadedBy"`
	CaseID       string    `json:"caseId,omitempty" yaml:"caseId,omitempty"`
	OrderID      string    `json:"orderId,omitempty" yaml:"orderId,omitempty"`
	Tags         []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// HasAnyTag reports whether the record carries at least one of tags. Tags
// that normalize to nothing do not filter.
func (m *FileMetadata) HasAnyTag(tags []string) bool {
	tags = NormalizeTags(tags)
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range m.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// FileFilter selects metadata records. Zero-valued fields do not filter.
type FileFilter struct {
	CaseID     string     `json:"caseId,omitempty"`
	OrderID    string     `json:"orderId,omitempty"`
	UploadedBy string     `json:"uploadedBy,omitempty"`
	MimeType   string     `json:"mimeType,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	DateFrom   *time.Time `json:"dateFrom,omitempty"`
	DateTo     *time.Time `json:"dateTo,omitempty"`
	Offset     int        `json:"offset,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// Matches reports whether m passes every non-paging criterion of f.
func (f FileFilter) Matches(m *FileMetadata) bool {
	if m == nil {
		return false
	}
	if f.CaseID != "" && m.CaseID != f.CaseID {
		return false
	}
	if f.OrderID != "" && m.OrderID != f.OrderID {
		return false
	}
	if f.UploadedBy != "" && m.UploadedBy != f.UploadedBy {
		return false
	}
	if f.MimeType != "" && m.MimeType != NormalizeMimeType(f.MimeType) {
		return false
	}
	if tags := NormalizeTags(f.Tags); len(tags) > 0 && !m.HasAnyTag(tags) {
		return false
	}
	if f.DateFrom != nil && m.UploadedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && m.UploadedAt.After(*f.DateTo) {
		return false
	}
	return true
}

// FileUpdate carries the caller-mutable metadata fields. Nil means unchanged.
type FileUpdate struct {
	OriginalName *string
	Description  *string
	CaseID       *string
	OrderID      *string
	Tags         *[]string
}

// Empty reports whether the update changes nothing.
func (u FileUpdate) Empty() bool {
	return u.OriginalName == nil && u.Description == nil && u.CaseID == nil && u.OrderID == nil && u.Tags == nil
}

// Apply merges u into m. Identity and content fields are never touched.
func (u FileUpdate) Apply(m *FileMetadata) error {
	if u.OriginalName != nil {
		name := strings.TrimSpace(*u.OriginalName)
		if name == "" {
			return fmt.Errorf("original name cannot be empty")
		}
		m.OriginalName = name
	}
	if u.Description != nil {
		m.Description = strings.TrimSpace(*u.Description)
	}
	if u.CaseID != nil {
		m.CaseID = strings.TrimSpace(*u.CaseID)
	}
	if u.OrderID != nil {
		m.OrderID = strings.TrimSpace(*u.OrderID)
	}
	if u.Tags != nil {
		m.Tags = NormalizeTags(*u.Tags)
	}
	return nil
}

// StorageStats summarizes the metadata collection.
type StorageStats struct {
	TotalFiles      int            `json:"totalFiles" yaml:"totalFiles"`
	TotalSize       int64          `json:"totalSize" yaml:"totalSize"`
	UniqueFiles     int            `json:"uniqueFiles" yaml:"uniqueFiles"`
	DuplicateFiles  int            `json:"duplicateFiles" yaml:"duplicateFiles"`
	StoredBytes     int64          `json:"storedBytes" yaml:"storedBytes"`
	FilesByMimeType map[string]int `json:"filesByMimeType" yaml:"filesByMimeType"`
	FilesByCase     map[string]int `json:"filesByCase" yaml:"filesByCase"`
	FilesByOrder    map[string]int `json:"filesByOrder" yaml:"filesByOrder"`
}

// NormalizeTags trims, lowercases, dedupes and sorts tags.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// NormalizeMimeType returns the lowercase media type without parameters.
// Unparseable input is returned trimmed and lowercased.
func NormalizeMimeType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return strings.ToLower(parsed)
}
