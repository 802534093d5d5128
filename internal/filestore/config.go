package filestore

import (
	"path/filepath"
	"sort"
	"strings"

	"lexvault/internal/index"
	"lexvault/internal/models"
)

const (
	DefaultMaxFileSize       int64 = 100 << 20
	DefaultChunkSize               = 1 << 20
	DefaultQueryLimit              = 100
	DefaultDataDir                 = ".lexvault"
	MetadataBackendJSON            = "json"
	MetadataBackendSQLite          = "sqlite"
	filesDirName                   = "files"
	metadataDirName                = "metadata"
	sqliteFileName                 = "metadata.db"
)

// DefaultAllowedMimeTypes is the upload allow-list used when none is configured.
var DefaultAllowedMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.oasis.opendocument.text",
	"application/rtf",
	"text/rtf",
	"text/plain",
	"text/markdown",
	"text/csv",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.oasis.opendocument.spreadsheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.oasis.opendocument.presentation",
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/webp",
	"image/heic",
	"message/rfc822",
	"application/vnd.ms-outlook",
	"application/xml",
	"text/xml",
	"application/json",
	"text/html",
	"application/zip",
	"application/x-7z-compressed",
}

// allowedExtensions is fixed; it is not configurable.
var allowedExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".odt": {}, ".rtf": {}, ".txt": {}, ".md": {},
	".csv": {}, ".xls": {}, ".xlsx": {}, ".ods": {}, ".ppt": {}, ".pptx": {}, ".odp": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".tif": {}, ".tiff": {},
	".webp": {}, ".heic": {}, ".eml": {}, ".msg": {}, ".xml": {}, ".json": {}, ".html": {},
	".htm": {}, ".zip": {}, ".7z": {},
}

// Config is the typed store configuration. Zero values take the defaults
// listed on each field.
type Config struct {
	// DataDir holds the files/ and metadata/ trees. Default ".lexvault".
	DataDir string
	// MaxFileSize is the largest accepted upload in bytes. Default 100 MiB.
	MaxFileSize int64
	// AllowedMimeTypes is the upload allow-list. Default DefaultAllowedMimeTypes.
	AllowedMimeTypes []string
	// ChunkSize is reserved for streamed uploads and not enforced. Default 1 MiB.
	ChunkSize int
	// DefaultQueryLimit applies to QueryFiles when the filter has no limit. Default 100.
	DefaultQueryLimit int
	// MetadataBackend is "json" (one sidecar file per record) or "sqlite". Default "json".
	MetadataBackend string
	// IndexBackend is "scan", "memory" or "redis". Default "scan".
	IndexBackend string
	RedisURL     string
	// RedisPrefix namespaces index keys. Default is derived from DataDir.
	RedisPrefix string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = DefaultDataDir
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.DefaultQueryLimit <= 0 {
		c.DefaultQueryLimit = DefaultQueryLimit
	}
	c.MetadataBackend = strings.ToLower(strings.TrimSpace(c.MetadataBackend))
	if c.MetadataBackend == "" {
		c.MetadataBackend = MetadataBackendJSON
	}
	c.IndexBackend = strings.ToLower(strings.TrimSpace(c.IndexBackend))
	if c.IndexBackend == "" {
		c.IndexBackend = index.BackendScan
	}
	if strings.TrimSpace(c.RedisPrefix) == "" {
		c.RedisPrefix = index.PrefixForDir(c.DataDir)
	}

	allowed := make([]string, 0, len(c.AllowedMimeTypes))
	for _, raw := range c.AllowedMimeTypes {
		if mt := models.NormalizeMimeType(raw); mt != "" {
			allowed = append(allowed, mt)
		}
	}
	if len(allowed) == 0 {
		allowed = append(allowed, DefaultAllowedMimeTypes...)
	}
	c.AllowedMimeTypes = allowed
	return c
}

func (c Config) filesDir() string {
	return filepath.Join(c.DataDir, filesDirName)
}

func (c Config) metadataDir() string {
	return filepath.Join(c.DataDir, metadataDirName)
}

// MetadataDBPath is where the sqlite metadata backend keeps its database.
func (c Config) MetadataDBPath() string {
	return filepath.Join(c.withDefaults().metadataDir(), sqliteFileName)
}

// AllowedExtensions returns the accepted file name extensions.
func AllowedExtensions() []string {
	out := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
