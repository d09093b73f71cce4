package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/models"
)

// faultKV wraps a MemoryStore and fails the next N writes with a quota error.
type faultKV struct {
	*MemoryStore
	mu        sync.Mutex
	failNext  int
	failWith  error
	setCalls  int
	lastWrite []byte
}

func newFaultKV() *faultKV {
	return &faultKV{MemoryStore: NewMemoryStore(0), failWith: apperrors.ErrQuotaExceeded}
}

func (f *faultKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.setCalls++
	if f.failNext > 0 {
		f.failNext--
		err := f.failWith
		f.mu.Unlock()
		return err
	}
	if key == PhotosKey {
		f.lastWrite = append([]byte(nil), value...)
	}
	f.mu.Unlock()
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *faultKV) failNextWrites(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
	f.failWith = err
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.Notification
}

func (n *recordingNotifier) Notify(level models.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, models.Notification{Level: level, Message: message})
}

func (n *recordingNotifier) has(level models.Level, message string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, notice := range n.notices {
		if notice.Level == level && notice.Message == message {
			return true
		}
	}
	return false
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 10, 30, 10, 15, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// imageURI returns a JPEG-typed data URI with n payload bytes.
func imageURI(n int) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xAB}, n))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestStore(t *testing.T, kv KeyValueStore, notifier Notifier, clock *fakeClock, limits UsageLimits, originalCapacity int) *PhotoStore {
	t.Helper()
	if clock == nil {
		clock = newFakeClock()
	}
	store, err := NewPhotoStore(kv, notifier, PhotoStoreConfig{
		Collections: DefaultCollections(originalCapacity, 3),
		Limits:      limits,
		Now:         clock.Now,
	})
	if err != nil {
		t.Fatalf("NewPhotoStore() error = %v", err)
	}
	return store
}

func ids(photos []models.PhotoSummary) []int64 {
	out := make([]int64, len(photos))
	for i, p := range photos {
		out[i] = p.Id
	}
	return out
}

func view(t *testing.T, s *PhotoStore, name string) models.CollectionView {
	t.Helper()
	for _, c := range s.Collections() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("collection %q not found", name)
	return models.CollectionView{}
}

func selection(t *testing.T, s *PhotoStore, name string) int {
	t.Helper()
	if sel := view(t, s, name).Selection; sel != nil {
		return *sel
	}
	return noSelection
}

// insertN inserts n captured photos into original, returning their ids oldest first.
func insertN(t *testing.T, s *PhotoStore, n, size int) []int64 {
	t.Helper()
	var out []int64
	for i := 0; i < n; i++ {
		p := s.NewPhoto(imageURI(size), time.Time{}, models.OriginCaptured)
		if err := s.Insert(context.Background(), CollectionOriginal, p); err != nil {
			t.Fatalf("Insert() #%d error = %v", i, err)
		}
		out = append(out, p.Id)
	}
	return out
}
