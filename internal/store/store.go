// Package store is the key-value persistence collaborator: provider
// credentials and user filter defaults live here, nothing else.
package store

import (
	"context"
	"strings"
	"sync"
)

const (
	// APIKeyPrefix namespaces catalog provider credentials,
	// e.g. "apikeys:kinopoisk".
	APIKeyPrefix = "apikeys:"
	// FilterDefaultsKey holds the serialized user filter defaults.
	FilterDefaultsKey = "filters:defaults"
)

// KeyValue is a generic get/set contract. Get returns only the keys that
// exist; absent keys are simply missing from the result map.
type KeyValue interface {
	Get(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, entries map[string]string) error
}

func APIKeyName(provider string) string {
	return APIKeyPrefix + strings.ToLower(strings.TrimSpace(provider))
}

// Memory is an in-process KeyValue, used when Redis is not configured
// and throughout the test suite.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		if value, ok := m.values[name]; ok {
			out[name] = value
		}
	}
	return out, nil
}

func (m *Memory) Set(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range entries {
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		m.values[name] = value
	}
	return nil
}
