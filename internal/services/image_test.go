package services

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"strings"
	"testing"
	"time"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/utils"
)

func TestNormalizeCapture(t *testing.T) {
	svc := NewImageService(ImageOptions{CaptureMaxWidth: 100, CaptureQuality: 80}, nil)

	tests := []struct {
		name      string
		width     int
		height    int
		wantWidth int
	}{
		{name: "wide frame is bounded", width: 400, height: 200, wantWidth: 100},
		{name: "small frame is kept", width: 60, height: 40, wantWidth: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, capturedAt, err := svc.NormalizeCapture(pngBytes(t, tt.width, tt.height), "image/png")
			if err != nil {
				t.Fatalf("NormalizeCapture() error = %v", err)
			}
			if !capturedAt.IsZero() {
				t.Errorf("capturedAt = %v, want zero for an image without EXIF", capturedAt)
			}

			mime, data, err := utils.DecodeDataURI(uri)
			if err != nil {
				t.Fatalf("DecodeDataURI() error = %v", err)
			}
			if mime != "image/jpeg" {
				t.Errorf("mime = %q, want image/jpeg", mime)
			}
			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("output is not a JPEG: %v", err)
			}
			if got := img.Bounds().Dx(); got != tt.wantWidth {
				t.Errorf("width = %d, want %d", got, tt.wantWidth)
			}
		})
	}
}

func TestNormalizeCaptureRejectsGarbage(t *testing.T) {
	svc := NewImageService(ImageOptions{CaptureMaxWidth: 100, CaptureQuality: 80}, nil)

	_, _, err := svc.NormalizeCapture([]byte("definitely not an image"), "image/jpeg")
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("NormalizeCapture() error = %v, want ErrInvalidInput", err)
	}
}

func TestRecompress(t *testing.T) {
	svc := NewImageService(ImageOptions{ResultMaxWidth: 50, ResultQuality: 60}, nil)

	out, err := svc.Recompress(pngBytes(t, 200, 100))
	if err != nil {
		t.Fatalf("Recompress() error = %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	if format != "jpeg" || cfg.Width != 50 || cfg.Height != 25 {
		t.Errorf("got %s %dx%d, want jpeg 50x25", format, cfg.Width, cfg.Height)
	}

	if _, err := svc.Recompress([]byte("nope")); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Recompress(garbage) error = %v", err)
	}
}

func TestThumbnailIsCached(t *testing.T) {
	cache := NewCacheService(time.Minute, time.Minute)
	defer cache.Close()
	svc := NewImageService(ImageOptions{}, cache)

	first, err := svc.Thumbnail(42, pngBytes(t, 600, 400))
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("thumbnail is not a JPEG: %v", err)
	}
	if cfg.Width > thumbnailSize || cfg.Height > thumbnailSize {
		t.Errorf("thumbnail %dx%d exceeds %d", cfg.Width, cfg.Height, thumbnailSize)
	}

	// Cached entry is served even when the source can no longer be decoded.
	second, err := svc.Thumbnail(42, []byte("gone"))
	if err != nil {
		t.Fatalf("cached Thumbnail() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("second call did not return the cached thumbnail")
	}

	if _, err := svc.Thumbnail(43, []byte("gone")); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("uncached garbage error = %v", err)
	}
}
