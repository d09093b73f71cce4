package models

import "time"

// Origin distinguishes photos taken by the camera from photobooth results.
type Origin string

const (
	OriginCaptured    Origin = "captured"
	OriginTransformed Origin = "transformed"
)

// Photo is a captured or generated image record.
type Photo struct {
	Id         int64     `json:"id"`
	ImageData  string    `json:"imageData"`  // data:image/...;base64,...
	CapturedAt time.Time `json:"capturedAt"` // set at creation, never mutated
	Origin     Origin    `json:"origin"`
}

// FileName is the download name used for the photo.
func (p Photo) FileName() string {
	return "ilovemarketing_" + itoa(p.Id) + ".jpg"
}

// CollectionSnapshot is the persisted form of one bounded collection.
type CollectionSnapshot struct {
	Name     string  `json:"name"`
	Capacity int     `json:"capacity"`
	Photos   []Photo `json:"photos"`
}

// PhotoSnapshot is the current persisted shape stored under the "photos" key.
type PhotoSnapshot struct {
	Version     int                  `json:"version"`
	Collections []CollectionSnapshot `json:"collections"`
}

// UsageWindow is stored under the "usage_window" key.
type UsageWindow struct {
	WindowKey      string `json:"windowKey"`
	PhotosUsed     int    `json:"photosUsed"`
	TransformsUsed int    `json:"transformsUsed"`
}

// PhotoSummary is the listing form of a photo; image bytes are served separately.
type PhotoSummary struct {
	Id         int64     `json:"id"`
	Index      int       `json:"index"`
	CapturedAt time.Time `json:"capturedAt"`
	Origin     Origin    `json:"origin"`
	FileName   string    `json:"fileName"`
	Selected   bool      `json:"selected"`
}

// CollectionView is a read-only listing of one collection.
type CollectionView struct {
	Name       string         `json:"name"`
	Capacity   int            `json:"capacity"`
	Selectable bool           `json:"selectable"`
	Selection  *int           `json:"selection,omitempty"`
	Photos     []PhotoSummary `json:"photos"`
}

// StorageUsage reports how much of the backend capacity is in use.
type StorageUsage struct {
	UsedBytes  int64 `json:"usedBytes"`
	LimitBytes int64 `json:"limitBytes"`
	Percent    int   `json:"percent"`
}

// UsageReport is returned by the usage endpoint.
type UsageReport struct {
	LimitsEnabled  bool          `json:"limitsEnabled"`
	WindowKey      string        `json:"windowKey,omitempty"`
	PhotosUsed     int           `json:"photosUsed"`
	MaxPhotos      int           `json:"maxPhotos"`
	TransformsUsed int           `json:"transformsUsed"`
	MaxTransforms  int           `json:"maxTransforms"`
	Storage        *StorageUsage `json:"storage,omitempty"`
}
