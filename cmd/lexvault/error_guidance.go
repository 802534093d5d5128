package main

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"

	"lexvault/internal/filestore"
	"lexvault/internal/store"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	if verr, ok := filestore.IsValidation(err); ok {
		switch verr.Constraint {
		case filestore.ConstraintSize:
			lines = append(lines, "hint: raise the limit with: lexvault config set storage.max_file_size <bytes>")
		case filestore.ConstraintMimeType:
			lines = append(lines,
				"hint: pass the correct type with --mime.",
				"hint: extend the allow-list with: lexvault config set storage.allowed_mime_types <type,...>",
			)
		case filestore.ConstraintExtension:
			lines = append(lines, "hint: allowed extensions: "+strings.Join(filestore.AllowedExtensions(), " "))
		case filestore.ConstraintName:
			lines = append(lines, "hint: pass a file name with --name.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, store.ErrInvalidRecord) {
		lines = append(lines, "hint: every imported record needs an id, a 64-character sha256 hash and uploadedAt.")
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: operation timed out; check that the redis index is reachable.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: check index.redis_url (LEXVAULT_REDIS_URL).",
			"hint: switch to the local index with: lexvault config set index.backend scan",
		)
		return uniqueLines(lines)
	}

	if errors.Is(err, os.ErrPermission) {
		lines = append(lines, "hint: check permissions on the data directory (data_dir or LEXVAULT_DATA_DIR).")
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
