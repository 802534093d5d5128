package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDataDirName = ".lexvault"
	DefaultLogLevel    = "info"

	DefaultMaxFileSize       int64 = 100 * 1024 * 1024
	DefaultChunkSize               = 1024 * 1024
	DefaultQueryLimit              = 100
	DefaultMetadataBackend         = "json"
	DefaultIndexBackend            = "scan"

	configFileName           = ".lexvault.toml"
	configDirEnvKey          = "LEXVAULT_CONFIG_DIR"
	trustProjectConfigEnvKey = "LEXVAULT_TRUST_PROJECT_CONFIG"

	dataDirEnvKey          = "LEXVAULT_DATA_DIR"
	allowedMimeTypesEnvKey = "LEXVAULT_ALLOWED_MIME_TYPES"
	maxFileSizeEnvKey      = "LEXVAULT_MAX_FILE_SIZE"
	metadataBackendEnvKey  = "LEXVAULT_METADATA_BACKEND"
	indexBackendEnvKey     = "LEXVAULT_INDEX_BACKEND"
	redisURLEnvKey         = "LEXVAULT_REDIS_URL"
)

// StorageConfig controls upload validation and query paging.
type StorageConfig struct {
	MaxFileSize       int64    `toml:"max_file_size"`
	AllowedMimeTypes  []string `toml:"allowed_mime_types"`
	ChunkSize         int      `toml:"chunk_size"`
	DefaultQueryLimit int      `toml:"default_query_limit"`
}

// MetadataConfig selects where metadata records live.
type MetadataConfig struct {
	Backend string `toml:"backend"`
}

// IndexConfig selects the hash reference index.
type IndexConfig struct {
	Backend     string `toml:"backend"`
	RedisURL    string `toml:"redis_url"`
	RedisPrefix string `toml:"redis_prefix"`
}

// Config defines runtime configuration for lexvault.
type Config struct {
	DataDir                  string         `toml:"data_dir"`
	LogLevel                 string         `toml:"log_level"`
	Storage                  StorageConfig  `toml:"storage"`
	Metadata                 MetadataConfig `toml:"metadata"`
	Index                    IndexConfig    `toml:"index"`
	TrustedProjectConfigPath string         `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		DataDir:  "",
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			MaxFileSize:       DefaultMaxFileSize,
			AllowedMimeTypes:  nil,
			ChunkSize:         DefaultChunkSize,
			DefaultQueryLimit: DefaultQueryLimit,
		},
		Metadata: MetadataConfig{Backend: DefaultMetadataBackend},
		Index: IndexConfig{
			Backend: DefaultIndexBackend,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"data_dir",
	"log_level",
	"storage.max_file_size",
	"storage.allowed_mime_types",
	"storage.chunk_size",
	"storage.default_query_limit",
	"metadata.backend",
	"index.backend",
	"index.redis_url",
	"index.redis_prefix",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "data_dir":
		return c.DataDir, nil
	case "log_level":
		return c.LogLevel, nil
	case "storage.max_file_size":
		return strconv.FormatInt(c.Storage.MaxFileSize, 10), nil
	case "storage.allowed_mime_types":
		return strings.Join(c.Storage.AllowedMimeTypes, ","), nil
	case "storage.chunk_size":
		return strconv.Itoa(c.Storage.ChunkSize), nil
	case "storage.default_query_limit":
		return strconv.Itoa(c.Storage.DefaultQueryLimit), nil
	case "metadata.backend":
		return c.Metadata.Backend, nil
	case "index.backend":
		return c.Index.Backend, nil
	case "index.redis_url":
		return c.Index.RedisURL, nil
	case "index.redis_prefix":
		return c.Index.RedisPrefix, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
// Precedence: defaults < global file < trusted project file < env.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if dataDir := strings.TrimSpace(os.Getenv(dataDirEnvKey)); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if raw := strings.TrimSpace(os.Getenv(allowedMimeTypesEnvKey)); raw != "" {
		cfg.Storage.AllowedMimeTypes = splitCSV(raw)
	}
	if raw := strings.TrimSpace(os.Getenv(maxFileSizeEnvKey)); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			cfg.Storage.MaxFileSize = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv(metadataBackendEnvKey)); raw != "" {
		cfg.Metadata.Backend = raw
	}
	if raw := strings.TrimSpace(os.Getenv(indexBackendEnvKey)); raw != "" {
		cfg.Index.Backend = raw
	}
	if raw := strings.TrimSpace(os.Getenv(redisURLEnvKey)); raw != "" {
		cfg.Index.RedisURL = raw
	}

	if cfg.DataDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DataDir = filepath.Join(cwd, DefaultDataDirName)
		}
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "storage.max_file_size":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "storage.chunk_size", "storage.default_query_limit":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "storage.allowed_mime_types":
		return splitCSV(value), nil
	case "metadata.backend":
		value = strings.ToLower(value)
		if value != "json" && value != "sqlite" {
			return nil, fmt.Errorf("%s must be json or sqlite", key)
		}
		return value, nil
	case "index.backend":
		value = strings.ToLower(value)
		if value != "scan" && value != "memory" && value != "redis" {
			return nil, fmt.Errorf("%s must be scan, memory or redis", key)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Storage.MaxFileSize <= 0 {
		c.Storage.MaxFileSize = DefaultMaxFileSize
	}
	if c.Storage.ChunkSize <= 0 {
		c.Storage.ChunkSize = DefaultChunkSize
	}
	if c.Storage.DefaultQueryLimit <= 0 {
		c.Storage.DefaultQueryLimit = DefaultQueryLimit
	}
	c.Metadata.Backend = strings.ToLower(strings.TrimSpace(c.Metadata.Backend))
	if c.Metadata.Backend == "" {
		c.Metadata.Backend = DefaultMetadataBackend
	}
	c.Index.Backend = strings.ToLower(strings.TrimSpace(c.Index.Backend))
	if c.Index.Backend == "" {
		c.Index.Backend = DefaultIndexBackend
	}
	c.Storage.AllowedMimeTypes = normalizeConfiguredMimeTypes(c.Storage.AllowedMimeTypes)
}

func normalizeConfiguredMimeTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
