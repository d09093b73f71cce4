package services

import (
	"context"
	"fmt"
	"sync"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/models"
)

// KeyValueStore is the persistent store mirrored by PhotoStore.
// Set is all-or-nothing: when it fails nothing was written. A write that would
// push the store past its capacity returns an error wrapping ErrQuotaExceeded.
// Get returns ErrNotFound for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// UsageReporter is implemented by backends that can measure their footprint.
type UsageReporter interface {
	Usage(ctx context.Context) (models.StorageUsage, error)
}

// MemoryStore is an in-process KeyValueStore with an optional byte quota.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string][]byte
	maxBytes int64
}

// NewMemoryStore creates a store holding at most maxBytes of values (0 = unlimited).
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		values:   make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var others int64
	for k, v := range m.values {
		if k != key {
			others += int64(len(v))
		}
	}
	if exceedsQuota(m.maxBytes, others, int64(len(value))) {
		return fmt.Errorf("set %q (%d bytes): %w", key, len(value), apperrors.ErrQuotaExceeded)
	}

	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Usage(_ context.Context) (models.StorageUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var used int64
	for _, v := range m.values {
		used += int64(len(v))
	}
	return newStorageUsage(used, m.maxBytes), nil
}

func (m *MemoryStore) Close() error { return nil }

func exceedsQuota(limit, others, incoming int64) bool {
	return limit > 0 && others+incoming > limit
}

func newStorageUsage(used, limit int64) models.StorageUsage {
	u := models.StorageUsage{UsedBytes: used, LimitBytes: limit}
	if limit > 0 {
		u.Percent = int(used * 100 / limit)
	}
	return u
}
