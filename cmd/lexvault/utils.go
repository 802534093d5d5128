package main

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

func chooseFirst(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// parseOptionalTime accepts RFC3339 or YYYY-MM-DD. A bare date used as an
// upper bound covers the whole day.
func parseOptionalTime(flag, raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		t = t.UTC()
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	return nil, fmt.Errorf("invalid --%s %q (expected RFC3339 or YYYY-MM-DD)", flag, raw)
}

// detectMimeType guesses a media type from the file name, then the content.
func detectMimeType(name string, content []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(content)
}
