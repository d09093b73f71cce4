package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/models"
)

const (
	PhotosKey = "photos"
	UsageKey  = "usage_window"

	// Collections are cut to this length before the single persist retry.
	degradedCapacity = 2
	// Usage above this share of the backend capacity triggers a warning notice.
	storageWarnPercent = 80
)

const noSelection = -1

type CollectionConfig struct {
	Name       string
	Capacity   int
	Selectable bool
}

type PhotoStoreConfig struct {
	Collections []CollectionConfig
	Limits      UsageLimits
	Now         func() time.Time // defaults to time.Now
}

// DefaultCollections mirrors the two rows of the booth UI.
func DefaultCollections(originalCapacity, photoboothCapacity int) []CollectionConfig {
	return []CollectionConfig{
		{Name: CollectionOriginal, Capacity: originalCapacity, Selectable: true},
		{Name: CollectionPhotobooth, Capacity: photoboothCapacity},
	}
}

type collection struct {
	name       string
	capacity   int
	selectable bool
	photos     []models.Photo
	selection  int
}

func (c *collection) reset() {
	c.photos = nil
	c.selection = noSelection
}

// PhotoStore owns the bounded photo collections, their selections and the usage
// counters. Persisted state is a mirror; the in-memory state is authoritative.
// Every method runs to completion under one lock.
type PhotoStore struct {
	mu          sync.Mutex
	kv          KeyValueStore
	notifier    Notifier
	collections []*collection
	byName      map[string]*collection
	limits      UsageLimits
	usage       models.UsageWindow
	now         func() time.Time
	lastID      int64
	logger      *log.Logger
}

func NewPhotoStore(kv KeyValueStore, notifier Notifier, cfg PhotoStoreConfig) (*PhotoStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("photo store: key-value store is nil")
	}
	if len(cfg.Collections) == 0 {
		return nil, fmt.Errorf("photo store: no collections configured")
	}
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &PhotoStore{
		kv:       kv,
		notifier: notifier,
		byName:   make(map[string]*collection),
		limits:   cfg.Limits,
		now:      now,
		logger:   log.New(os.Stdout, "[PhotoStore] ", log.LstdFlags),
	}

	for _, cc := range cfg.Collections {
		if cc.Capacity <= 0 {
			return nil, fmt.Errorf("photo store: collection %q capacity must be positive", cc.Name)
		}
		if _, dup := s.byName[cc.Name]; dup {
			return nil, fmt.Errorf("photo store: duplicate collection %q", cc.Name)
		}
		c := &collection{name: cc.Name, capacity: cc.Capacity, selectable: cc.Selectable, selection: noSelection}
		s.collections = append(s.collections, c)
		s.byName[cc.Name] = c
	}

	return s, nil
}

func (s *PhotoStore) lookup(name string) (*collection, error) {
	c, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, apperrors.ErrUnknownCollection)
	}
	return c, nil
}

// NewPhoto builds a photo record with a fresh, strictly increasing id.
// A zero capturedAt is replaced with the current time.
func (s *PhotoStore) NewPhoto(imageData string, capturedAt time.Time, origin models.Origin) models.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	if capturedAt.IsZero() {
		capturedAt = now
	}

	return models.Photo{
		Id:         id,
		ImageData:  imageData,
		CapturedAt: capturedAt,
		Origin:     origin,
	}
}

// Insert prepends photo to the named collection, evicting from the tail past
// capacity, shifts the selection to keep pointing at the same photo, and persists.
// Usage limits are not checked here; callers check before inserting.
func (s *PhotoStore) Insert(ctx context.Context, name string, photo models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(name)
	if err != nil {
		return err
	}

	c.photos = append([]models.Photo{photo}, c.photos...)
	if len(c.photos) > c.capacity {
		evicted := c.photos[c.capacity:]
		c.photos = c.photos[:c.capacity:c.capacity]
		s.logger.Printf("Evicted %d photo(s) from %s", len(evicted), c.name)
	}

	if c.selection != noSelection {
		c.selection++
		if c.selection >= len(c.photos) {
			c.selection = noSelection
		}
	}

	if photo.Id > s.lastID {
		s.lastID = photo.Id
	}

	return s.persistLocked(ctx)
}

// Select toggles the selection of a selectable collection. Selecting the
// current index clears it. Returns whether a photo is selected afterwards.
func (s *PhotoStore) Select(name string, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(name)
	if err != nil {
		return false, err
	}
	if !c.selectable {
		return false, fmt.Errorf("%q: %w", name, apperrors.ErrNotSelectable)
	}
	if index < 0 || index >= len(c.photos) {
		return false, fmt.Errorf("index %d of %d: %w", index, len(c.photos), apperrors.ErrInvalidIndex)
	}

	if c.selection == index {
		c.selection = noSelection
		return false, nil
	}

	c.selection = index
	return true, nil
}

// Selected returns the selected photo and its index.
func (s *PhotoStore) Selected(name string) (models.Photo, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byName[name]
	if !ok || c.selection == noSelection {
		return models.Photo{}, noSelection, false
	}
	return c.photos[c.selection], c.selection, true
}

// Deselect clears the selection if it still points at the photo with id.
func (s *PhotoStore) Deselect(name string, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byName[name]
	if !ok || c.selection == noSelection || c.photos[c.selection].Id != id {
		return false
	}
	c.selection = noSelection
	return true
}

// Photo returns the photo at index.
func (s *PhotoStore) Photo(name string, index int) (models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(name)
	if err != nil {
		return models.Photo{}, err
	}
	if index < 0 || index >= len(c.photos) {
		return models.Photo{}, fmt.Errorf("index %d of %d: %w", index, len(c.photos), apperrors.ErrInvalidIndex)
	}
	return c.photos[index], nil
}

// Delete removes the photo at index and re-derives the selection.
func (s *PhotoStore) Delete(ctx context.Context, name string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(c.photos) {
		return fmt.Errorf("index %d of %d: %w", index, len(c.photos), apperrors.ErrInvalidIndex)
	}

	c.photos = append(c.photos[:index:index], c.photos[index+1:]...)
	switch {
	case c.selection == index:
		c.selection = noSelection
	case c.selection > index:
		c.selection--
	}

	return s.persistLocked(ctx)
}

// Clear empties the named collection and its selection.
func (s *PhotoStore) Clear(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(name)
	if err != nil {
		return err
	}
	c.reset()

	return s.persistLocked(ctx)
}

// ClearAll empties every collection.
func (s *PhotoStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.collections {
		c.reset()
	}

	return s.persistLocked(ctx)
}

// Count returns the total number of photos held.
func (s *PhotoStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.collections {
		n += len(c.photos)
	}
	return n
}

// Collections returns a listing of every collection without image data.
func (s *PhotoStore) Collections() []models.CollectionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]models.CollectionView, 0, len(s.collections))
	for _, c := range s.collections {
		v := models.CollectionView{
			Name:       c.name,
			Capacity:   c.capacity,
			Selectable: c.selectable,
			Photos:     make([]models.PhotoSummary, 0, len(c.photos)),
		}
		if c.selection != noSelection {
			sel := c.selection
			v.Selection = &sel
		}
		for i, p := range c.photos {
			v.Photos = append(v.Photos, models.PhotoSummary{
				Id:         p.Id,
				Index:      i,
				CapturedAt: p.CapturedAt,
				Origin:     p.Origin,
				FileName:   p.FileName(),
				Selected:   i == c.selection,
			})
		}
		views = append(views, v)
	}
	return views
}

// Snapshot returns the current state in persisted shape.
func (s *PhotoStore) Snapshot() models.PhotoSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *PhotoStore) snapshotLocked() models.PhotoSnapshot {
	snap := models.PhotoSnapshot{Version: SnapshotVersion}
	for _, c := range s.collections {
		photos := make([]models.Photo, len(c.photos))
		copy(photos, c.photos)
		snap.Collections = append(snap.Collections, models.CollectionSnapshot{
			Name:     c.name,
			Capacity: c.capacity,
			Photos:   photos,
		})
	}
	return snap
}

// Persist writes every collection to the key-value store.
func (s *PhotoStore) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.persistLocked(ctx)
}

// persistLocked runs the recovery ladder: full save, then on a quota failure
// truncate every collection to degradedCapacity and retry once, then wipe all
// photos and the persisted key and report ErrStorageExhausted.
func (s *PhotoStore) persistLocked(ctx context.Context) error {
	err := s.writeLocked(ctx)
	if err == nil {
		s.checkStorageUsage(ctx)
		return nil
	}
	if !errors.Is(err, apperrors.ErrQuotaExceeded) {
		s.logger.Printf("Failed to save photos: %v", err)
		s.notifier.Notify(models.LevelError, "Failed to save photos")
		return fmt.Errorf("persist photos: %w", err)
	}

	s.logger.Printf("Storage full, truncating collections to %d: %v", degradedCapacity, err)
	for _, c := range s.collections {
		if len(c.photos) > degradedCapacity {
			c.photos = c.photos[:degradedCapacity:degradedCapacity]
		}
		if c.selection >= len(c.photos) {
			c.selection = noSelection
		}
	}

	retryErr := s.writeLocked(ctx)
	if retryErr == nil {
		s.notifier.Notify(models.LevelWarning, "Storage full - older photos removed")
		s.checkStorageUsage(ctx)
		return nil
	}

	s.logger.Printf("Failed to save even after cleanup: %v", retryErr)
	for _, c := range s.collections {
		c.reset()
	}
	if err := s.kv.Delete(ctx, PhotosKey); err != nil {
		s.logger.Printf("Failed to remove persisted photos: %v", err)
	}
	s.notifier.Notify(models.LevelError, "Storage overflow - all photos cleared")

	return fmt.Errorf("persist photos: %v: %w", retryErr, apperrors.ErrStorageExhausted)
}

func (s *PhotoStore) writeLocked(ctx context.Context) error {
	data, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		return fmt.Errorf("failed to encode photos: %w", err)
	}
	return s.kv.Set(ctx, PhotosKey, data)
}

func (s *PhotoStore) checkStorageUsage(ctx context.Context) {
	reporter, ok := s.kv.(UsageReporter)
	if !ok {
		return
	}

	usage, err := reporter.Usage(ctx)
	if err != nil {
		s.logger.Printf("Failed to check storage usage: %v", err)
		return
	}
	if usage.LimitBytes > 0 && usage.Percent > storageWarnPercent {
		s.logger.Printf("Warning: storage usage %dKB / %dKB (%d%%)", usage.UsedBytes/1024, usage.LimitBytes/1024, usage.Percent)
		s.notifier.Notify(models.LevelWarning, fmt.Sprintf("Storage almost full: %d%%", usage.Percent))
	}
}

// StorageUsage reports the backend footprint when the backend can measure it.
func (s *PhotoStore) StorageUsage(ctx context.Context) (*models.StorageUsage, error) {
	reporter, ok := s.kv.(UsageReporter)
	if !ok {
		return nil, nil
	}
	usage, err := reporter.Usage(ctx)
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// Reload replaces the in-memory state with the persisted snapshot, migrating
// older shapes and dropping records whose image data is unusable. A snapshot
// that cannot be parsed is deleted and every collection starts empty.
// Selections never survive a reload.
func (s *PhotoStore) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.collections {
		c.reset()
	}

	if err := s.reloadPhotosLocked(ctx); err != nil {
		return err
	}
	return s.reloadUsageLocked(ctx)
}

func (s *PhotoStore) reloadPhotosLocked(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, PhotosKey)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Println("No photos found in storage")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload photos: %w", err)
	}

	snap, shape, err := MigrateSnapshot(raw)
	if err != nil {
		s.logger.Printf("Warning: clearing corrupted photo snapshot: %v", err)
		if err := s.kv.Delete(ctx, PhotosKey); err != nil {
			s.logger.Printf("Failed to remove corrupted snapshot: %v", err)
		}
		return nil
	}

	rewrite := shape != ShapeCurrent
	for _, cs := range snap.Collections {
		c, ok := s.byName[cs.Name]
		if !ok {
			s.logger.Printf("Warning: dropping %d photo(s) of unknown collection %q", len(cs.Photos), cs.Name)
			rewrite = true
			continue
		}

		kept, dropped := splitValid(cs.Photos)
		for _, p := range dropped {
			s.logger.Printf("Warning: removing invalid %s photo: %d", c.name, p.Id)
		}
		if len(kept) > c.capacity {
			kept = kept[:c.capacity]
		}
		if len(kept) != len(cs.Photos) {
			rewrite = true
		}

		c.photos = kept
		for _, p := range kept {
			if p.Id > s.lastID {
				s.lastID = p.Id
			}
		}
	}

	s.logger.Printf("Loaded %s snapshot: %s", shape, s.countsLocked())

	if rewrite {
		if err := s.persistLocked(ctx); err != nil {
			s.logger.Printf("Failed to rewrite migrated snapshot: %v", err)
		}
	}
	return nil
}

func (s *PhotoStore) countsLocked() string {
	out := ""
	for i, c := range s.collections {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d %s", len(c.photos), c.name)
	}
	return out
}

// Close flushes the current state. The key-value store is owned by the caller.
func (s *PhotoStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	if s.limits.Enabled {
		return s.persistUsageLocked(ctx)
	}
	return nil
}
