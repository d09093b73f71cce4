package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/models"
)

// UsageLimits caps captures and transforms per window when Enabled.
type UsageLimits struct {
	Enabled       bool
	MaxPhotos     int
	MaxTransforms int
}

// WindowKey buckets t into its calendar hour.
func WindowKey(t time.Time) string {
	return t.Format("2006-01-02-15")
}

// rolloverLocked resets the counters when the current window differs from
// the stored one. Returns true if a reset happened.
func (s *PhotoStore) rolloverLocked() bool {
	key := WindowKey(s.now())
	if s.usage.WindowKey == key {
		return false
	}
	s.usage = models.UsageWindow{WindowKey: key}
	return true
}

func (s *PhotoStore) reloadUsageLocked(ctx context.Context) error {
	s.usage = models.UsageWindow{}
	if !s.limits.Enabled {
		return nil
	}

	raw, err := s.kv.Get(ctx, UsageKey)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
	case err != nil:
		return fmt.Errorf("reload usage: %w", err)
	default:
		if err := json.Unmarshal(raw, &s.usage); err != nil {
			s.logger.Printf("Warning: clearing corrupted usage window: %v", err)
			s.usage = models.UsageWindow{}
		}
	}

	if s.rolloverLocked() {
		if err := s.persistUsageLocked(ctx); err != nil {
			s.logger.Printf("Failed to save usage window: %v", err)
		}
	}

	s.logger.Printf("Hourly limits enabled for %s: photos %d/%d, transforms %d/%d",
		s.usage.WindowKey, s.usage.PhotosUsed, s.limits.MaxPhotos, s.usage.TransformsUsed, s.limits.MaxTransforms)
	return nil
}

func (s *PhotoStore) persistUsageLocked(ctx context.Context) error {
	data, err := json.Marshal(s.usage)
	if err != nil {
		return fmt.Errorf("failed to encode usage window: %w", err)
	}
	if err := s.kv.Set(ctx, UsageKey, data); err != nil {
		return fmt.Errorf("persist usage window: %w", err)
	}
	return nil
}

type usageCounter int

const (
	photoCounter usageCounter = iota
	transformCounter
)

func (s *PhotoStore) counterLocked(k usageCounter) (used *int, limit int, label string) {
	if k == transformCounter {
		return &s.usage.TransformsUsed, s.limits.MaxTransforms, "transforms"
	}
	return &s.usage.PhotosUsed, s.limits.MaxPhotos, "photos"
}

// ReservePhoto takes one capture slot of the current window, failing with
// ErrRateLimited when none is left. Check and increment happen under one lock.
// The returned refund hands the slot back if the capture does not land; it is
// safe to call more than once and does nothing after the window rolled over.
func (s *PhotoStore) ReservePhoto(ctx context.Context) (func(), error) {
	return s.reserve(ctx, photoCounter)
}

// ReserveTransform is ReservePhoto for photobooth transforms.
func (s *PhotoStore) ReserveTransform(ctx context.Context) (func(), error) {
	return s.reserve(ctx, transformCounter)
}

func (s *PhotoStore) reserve(ctx context.Context, k usageCounter) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.limits.Enabled {
		return func() {}, nil
	}
	s.rolloverLocked()

	used, limit, label := s.counterLocked(k)
	if *used >= limit {
		return nil, fmt.Errorf("%w: %d/%d %s this hour", apperrors.ErrRateLimited, *used, limit, label)
	}
	*used++
	if err := s.persistUsageLocked(ctx); err != nil {
		s.logger.Printf("Failed to save usage window: %v", err)
	}

	window := s.usage.WindowKey
	var refunded atomic.Bool
	return func() {
		if !refunded.CompareAndSwap(false, true) {
			return
		}
		s.refund(context.WithoutCancel(ctx), k, window)
	}, nil
}

func (s *PhotoStore) refund(ctx context.Context, k usageCounter, window string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usage.WindowKey != window {
		return
	}
	used, _, label := s.counterLocked(k)
	if *used == 0 {
		return
	}
	*used--
	s.logger.Printf("Refunded one %s slot of %s", label, window)
	if err := s.persistUsageLocked(ctx); err != nil {
		s.logger.Printf("Failed to save usage window: %v", err)
	}
}

// UsageReport returns the counters of the current window.
func (s *PhotoStore) UsageReport(ctx context.Context) models.UsageReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := models.UsageReport{
		LimitsEnabled: s.limits.Enabled,
		MaxPhotos:     s.limits.MaxPhotos,
		MaxTransforms: s.limits.MaxTransforms,
	}
	if s.limits.Enabled {
		if s.rolloverLocked() {
			if err := s.persistUsageLocked(ctx); err != nil {
				s.logger.Printf("Failed to save usage window: %v", err)
			}
		}
		report.WindowKey = s.usage.WindowKey
		report.PhotosUsed = s.usage.PhotosUsed
		report.TransformsUsed = s.usage.TransformsUsed
	}
	return report
}
