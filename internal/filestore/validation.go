package filestore

import (
	"path/filepath"
	"strings"

	"lexvault/internal/models"
)

func (s *Store) validateUpload(in UploadInput) (string, error) {
	size := int64(len(in.Content))
	if size > s.cfg.MaxFileSize {
		return "", validationErrorf(ConstraintSize, "file size %d exceeds maximum of %d bytes", size, s.cfg.MaxFileSize)
	}
	mimeType := models.NormalizeMimeType(in.MimeType)
	if _, ok := s.allowedMime[mimeType]; !ok {
		return "", validationErrorf(ConstraintMimeType, "mime type %q is not allowed", in.MimeType)
	}
	if err := validateName(in.OriginalName); err != nil {
		return "", err
	}
	return mimeType, nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validationErrorf(ConstraintName, "original name is required")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedExtensions[ext]; !ok {
		if ext == "" {
			return validationErrorf(ConstraintExtension, "file %q has no extension", name)
		}
		return validationErrorf(ConstraintExtension, "file extension %q is not allowed", ext)
	}
	return nil
}
