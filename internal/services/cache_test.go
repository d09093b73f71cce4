package services

import (
	"testing"
	"time"
)

func TestCacheService(t *testing.T) {
	cs := NewCacheService(50*time.Millisecond, 10*time.Millisecond)
	defer cs.Close()

	cs.Set("thumb:1", []byte("data"), "image/jpeg")

	data, contentType, ok := cs.Get("thumb:1")
	if !ok || string(data) != "data" || contentType != "image/jpeg" {
		t.Fatalf("Get() = %q, %q, %v", data, contentType, ok)
	}
	if _, _, ok := cs.Get("thumb:2"); ok {
		t.Error("Get() found a key that was never set")
	}

	time.Sleep(100 * time.Millisecond)
	if _, _, ok := cs.Get("thumb:1"); ok {
		t.Error("Get() returned an expired entry")
	}

	cs.mu.RLock()
	remaining := len(cs.cache)
	cs.mu.RUnlock()
	if remaining != 0 {
		t.Errorf("cleanup left %d entries", remaining)
	}
}

func TestCacheServiceCloseIsIdempotent(t *testing.T) {
	cs := NewCacheService(time.Minute, time.Minute)
	cs.Close()
	cs.Close()
}
