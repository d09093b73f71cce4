package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/models"
	"photobooth-api/internal/utils"
)

// SnapshotVersion is the version written into every persisted snapshot.
const SnapshotVersion = 2

const (
	CollectionOriginal   = "original"
	CollectionPhotobooth = "photobooth"
)

// SnapshotShape identifies which historical layout a persisted value uses.
type SnapshotShape int

const (
	ShapeUnknown SnapshotShape = iota
	ShapeLegacy                // flat list of {id, data, timestamp, aiPrompt?}
	ShapeNamed                 // {"original": [...], "photobooth": [...]}
	ShapeCurrent               // {"version": 2, "collections": [...]}
)

func (s SnapshotShape) String() string {
	switch s {
	case ShapeLegacy:
		return "legacy"
	case ShapeNamed:
		return "named"
	case ShapeCurrent:
		return "current"
	default:
		return "unknown"
	}
}

type legacyPhoto struct {
	Id        int64  `json:"id"`
	Data      string `json:"data"`
	Timestamp string `json:"timestamp"`
	AIPrompt  string `json:"aiPrompt,omitempty"`
}

type namedSnapshot struct {
	Original   []json.RawMessage `json:"original"`
	Photobooth []json.RawMessage `json:"photobooth"`
}

// Photos are decoded one by one so a single malformed record surfaces as an
// empty photo (dropped later by validation) instead of failing the snapshot.
type rawCollection struct {
	Name     string            `json:"name"`
	Capacity int               `json:"capacity"`
	Photos   []json.RawMessage `json:"photos"`
}

type rawSnapshot struct {
	Version     int             `json:"version"`
	Collections []rawCollection `json:"collections"`
}

// DetectShape inspects a persisted value without fully decoding it.
func DetectShape(raw []byte) (SnapshotShape, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ShapeUnknown, fmt.Errorf("empty snapshot: %w", apperrors.ErrCorruptPersistedState)
	}

	switch trimmed[0] {
	case '[':
		return ShapeLegacy, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return ShapeUnknown, fmt.Errorf("%v: %w", err, apperrors.ErrCorruptPersistedState)
		}
		if _, ok := fields["collections"]; ok {
			return ShapeCurrent, nil
		}
		_, hasOriginal := fields[CollectionOriginal]
		_, hasPhotobooth := fields[CollectionPhotobooth]
		if hasOriginal || hasPhotobooth || len(fields) == 0 {
			return ShapeNamed, nil
		}
	}

	return ShapeUnknown, fmt.Errorf("unrecognised snapshot layout: %w", apperrors.ErrCorruptPersistedState)
}

// MigrateSnapshot decodes a persisted value of any known shape into the current
// shape. It is pure: it neither validates image data nor touches storage.
func MigrateSnapshot(raw []byte) (models.PhotoSnapshot, SnapshotShape, error) {
	shape, err := DetectShape(raw)
	if err != nil {
		return models.PhotoSnapshot{}, shape, err
	}

	var snap models.PhotoSnapshot
	switch shape {
	case ShapeLegacy:
		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return snap, shape, fmt.Errorf("%v: %w", err, apperrors.ErrCorruptPersistedState)
		}
		var original, photobooth []models.Photo
		for _, rec := range records {
			var p legacyPhoto
			if err := json.Unmarshal(rec, &p); err != nil {
				original = append(original, models.Photo{})
				continue
			}
			if p.AIPrompt != "" {
				photobooth = append(photobooth, migratePhoto(p, models.OriginTransformed))
			} else {
				original = append(original, migratePhoto(p, models.OriginCaptured))
			}
		}
		snap.Collections = []models.CollectionSnapshot{
			{Name: CollectionOriginal, Photos: original},
			{Name: CollectionPhotobooth, Photos: photobooth},
		}

	case ShapeNamed:
		var named namedSnapshot
		if err := json.Unmarshal(raw, &named); err != nil {
			return snap, shape, fmt.Errorf("%v: %w", err, apperrors.ErrCorruptPersistedState)
		}
		snap.Collections = []models.CollectionSnapshot{
			{Name: CollectionOriginal, Photos: migratePhotos(named.Original, models.OriginCaptured)},
			{Name: CollectionPhotobooth, Photos: migratePhotos(named.Photobooth, models.OriginTransformed)},
		}

	case ShapeCurrent:
		var current rawSnapshot
		if err := json.Unmarshal(raw, &current); err != nil {
			return snap, shape, fmt.Errorf("%v: %w", err, apperrors.ErrCorruptPersistedState)
		}
		for _, rc := range current.Collections {
			c := models.CollectionSnapshot{Name: rc.Name, Capacity: rc.Capacity}
			for _, rec := range rc.Photos {
				var p models.Photo
				if err := json.Unmarshal(rec, &p); err != nil {
					p = models.Photo{}
				}
				c.Photos = append(c.Photos, p)
			}
			fillDefaults(&c)
			snap.Collections = append(snap.Collections, c)
		}
	}

	snap.Version = SnapshotVersion
	return snap, shape, nil
}

func migratePhotos(records []json.RawMessage, origin models.Origin) []models.Photo {
	out := make([]models.Photo, 0, len(records))
	for _, rec := range records {
		var p legacyPhoto
		if err := json.Unmarshal(rec, &p); err != nil {
			out = append(out, models.Photo{})
			continue
		}
		out = append(out, migratePhoto(p, origin))
	}
	return out
}

// Legacy ids are wall-clock milliseconds, so they stand in for an
// unparseable timestamp.
func migratePhoto(p legacyPhoto, origin models.Origin) models.Photo {
	capturedAt, err := utils.ParseTimestamp(p.Timestamp)
	if err != nil {
		capturedAt = time.UnixMilli(p.Id)
	}
	return models.Photo{
		Id:         p.Id,
		ImageData:  p.Data,
		CapturedAt: capturedAt,
		Origin:     origin,
	}
}

func fillDefaults(c *models.CollectionSnapshot) {
	origin := models.OriginCaptured
	if c.Name == CollectionPhotobooth {
		origin = models.OriginTransformed
	}
	for i := range c.Photos {
		if c.Photos[i].Origin == "" {
			c.Photos[i].Origin = origin
		}
		if c.Photos[i].CapturedAt.IsZero() {
			c.Photos[i].CapturedAt = time.UnixMilli(c.Photos[i].Id)
		}
	}
}

// splitValid separates photos whose image data is recognisable from the rest.
func splitValid(photos []models.Photo) (kept, dropped []models.Photo) {
	for _, p := range photos {
		if utils.IsImageDataURI(p.ImageData) {
			kept = append(kept, p)
		} else {
			dropped = append(dropped, p)
		}
	}
	return kept, dropped
}
