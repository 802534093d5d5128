// Package index maintains a hash -> file id reverse index so that "is this
// blob still referenced" does not need a scan of every metadata record.
//
// An index is derived state: it is rebuilt from the metadata store when the
// file store opens, and updated after every metadata write or delete.
package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Backend names accepted by configuration.
const (
	BackendScan   = "scan"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// HashIndex maps content hashes to the ids of the records referencing them.
type HashIndex interface {
	Add(ctx context.Context, hash, fileID string) error
	Remove(ctx context.Context, hash, fileID string) error
	Members(ctx context.Context, hash string) ([]string, error)
	Count(ctx context.Context, hash string) (int, error)
	// Reset replaces the whole index with entries (hash -> file ids).
	Reset(ctx context.Context, entries map[string][]string) error
	Close() error
}

var (
	_ HashIndex = (*Memory)(nil)
	_ HashIndex = (*Redis)(nil)
)

// ParseBackend normalizes a configured backend name.
func ParseBackend(raw string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return BackendScan, nil
	case BackendScan, BackendMemory, BackendRedis:
		return value, nil
	default:
		return "", fmt.Errorf("invalid index backend: %s", raw)
	}
}

// Memory is an in-process index.
type Memory struct {
	mu     sync.RWMutex
	hashes map[string]map[string]struct{}
}

// NewMemory returns an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{hashes: map[string]map[string]struct{}{}}
}

func (m *Memory) Add(_ context.Context, hash, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.hashes[hash]
	if !ok {
		ids = map[string]struct{}{}
		m.hashes[hash] = ids
	}
	ids[fileID] = struct{}{}
	return nil
}

func (m *Memory) Remove(_ context.Context, hash, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.hashes[hash]
	if !ok {
		return nil
	}
	delete(ids, fileID)
	if len(ids) == 0 {
		delete(m.hashes, hash)
	}
	return nil
}

func (m *Memory) Members(_ context.Context, hash string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.hashes[hash]
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Count(_ context.Context, hash string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hashes[hash]), nil
}

func (m *Memory) Reset(_ context.Context, entries map[string][]string) error {
	next := make(map[string]map[string]struct{}, len(entries))
	for hash, ids := range entries {
		if len(ids) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		next[hash] = set
	}
	m.mu.Lock()
	m.hashes = next
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}
