package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a serialization accepted by export and import.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// Formatter abstracts output formatting.
type Formatter interface {
	Write(w io.Writer, payload any) error
}

// JSONFormatter writes JSON output.
type JSONFormatter struct {
	Indent bool
}

// Write writes JSON payload to a writer.
func (f JSONFormatter) Write(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(payload)
}

// YAMLFormatter writes a YAML document.
type YAMLFormatter struct{}

// Write writes payload as one YAML document.
func (f YAMLFormatter) Write(w io.Writer, payload any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(payload); err != nil {
		return err
	}
	return enc.Close()
}

// ParseFormat normalizes a user-supplied format name. Empty means JSON.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected json or yaml)", raw)
	}
}

// For returns the formatter writing f.
func For(f Format) (Formatter, error) {
	switch f {
	case JSON, "":
		return JSONFormatter{Indent: true}, nil
	case YAML:
		return YAMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// Detect guesses the format of an uncompressed document.
func Detect(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return JSON
	}
	return YAML
}

// Decode unmarshals data into v using the detected format.
func Decode(data []byte, v any) error {
	switch Detect(data) {
	case JSON:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
	}
	return nil
}
