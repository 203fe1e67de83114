// Package storage holds the blob store, the key-value store, and the
// repositories built on top of them. The blob store is the source of truth
// for articles; everything in the KV store is derived or ephemeral.
package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when a key has no stored object or value.
var ErrNotFound = errors.New("storage: not found")

// Blob is the minimal object-store surface the repositories need. It is an
// interface so tests and credential-less local runs can use MemoryBlob.
type Blob interface {
	Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// MemoryBlob is an in-memory Blob used by tests and when no S3 bucket is
// configured. Contents do not survive a restart.
type MemoryBlob struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryBlob creates an empty in-memory blob store.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{objects: make(map[string][]byte)}
}

func (m *MemoryBlob) Put(_ context.Context, key string, data []byte, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = buf
	return nil
}

func (m *MemoryBlob) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (m *MemoryBlob) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryBlob) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryBlob) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}
