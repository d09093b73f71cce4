package services

import (
	"sync"
	"time"
)

type cacheEntry struct {
	Data        []byte
	ContentType string
	Expires     time.Time
}

// CacheService is a TTL cache for rendered image variants (thumbnails).
type CacheService struct {
	cache           map[string]*cacheEntry
	mu              sync.RWMutex
	ttl             time.Duration
	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

func NewCacheService(ttl, cleanupInterval time.Duration) *CacheService {
	cs := &CacheService{
		cache:           make(map[string]*cacheEntry),
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		stop:            make(chan struct{}),
	}

	go cs.cleanupExpired()

	return cs
}

// Retrieves cached data by key, returning false if not found or expired.
func (cs *CacheService) Get(key string) ([]byte, string, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, ok := cs.cache[key]
	if !ok || entry.Expires.Before(time.Now()) {
		return nil, "", false
	}

	return entry.Data, entry.ContentType, true
}

// Stores data under key until the configured TTL elapses.
func (cs *CacheService) Set(key string, data []byte, contentType string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		Data:        data,
		ContentType: contentType,
		Expires:     time.Now().Add(cs.ttl),
	}
}

// Close stops the cleanup goroutine.
func (cs *CacheService) Close() {
	cs.stopOnce.Do(func() { close(cs.stop) })
}

// Periodically removes expired entries from the cache.
// This runs in a background goroutine started by NewCacheService.
func (cs *CacheService) cleanupExpired() {
	ticker := time.NewTicker(cs.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cs.stop:
			return
		case <-ticker.C:
			now := time.Now()
			cs.mu.Lock()
			for k, v := range cs.cache {
				if v.Expires.Before(now) {
					delete(cs.cache, k)
				}
			}
			cs.mu.Unlock()
		}
	}
}
