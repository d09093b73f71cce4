package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"log"
	"net/http"

	"github.com/disintegration/imaging"

	apperrors "photobooth-api/internal/errors"
)

//go:embed all:assets
var embeddedAssets embed.FS

const embeddedAwardPath = "assets/award.png"

// ObjectFetcher reads a named object from a bucket.
type ObjectFetcher interface {
	FetchFile(ctx context.Context, filePath string) ([]byte, error)
}

// AwardAsset is the reference image sent alongside every transform.
type AwardAsset struct {
	data     []byte
	mimeType string
	source   string
}

// LoadAwardAsset resolves the asset once: the bucket object when configured,
// then the embedded file, then a generated placeholder.
func LoadAwardAsset(ctx context.Context, fetcher ObjectFetcher, object string) (*AwardAsset, error) {
	if fetcher != nil && object != "" {
		data, err := fetcher.FetchFile(ctx, object)
		switch {
		case err == nil && len(data) > 0:
			return newAwardAsset(data, "bucket:"+object), nil
		case err != nil && !errors.Is(err, apperrors.ErrNotFound):
			log.Printf("[Award] Failed to fetch %s, falling back: %v", object, err)
		default:
			log.Printf("[Award] Object %s not found, falling back", object)
		}
	}

	if data, err := fs.ReadFile(embeddedAssets, embeddedAwardPath); err == nil && len(data) > 0 {
		return newAwardAsset(data, "embedded"), nil
	}

	data, err := PlaceholderAward()
	if err != nil {
		return nil, fmt.Errorf("generate placeholder award: %w", err)
	}
	log.Println("[Award] Using generated placeholder")
	return newAwardAsset(data, "placeholder"), nil
}

// NewAwardAsset wraps already loaded bytes.
func NewAwardAsset(data []byte) *AwardAsset {
	return newAwardAsset(data, "memory")
}

func newAwardAsset(data []byte, source string) *AwardAsset {
	mimeType := http.DetectContentType(data)
	if mimeType == "application/octet-stream" {
		mimeType = "image/png"
	}
	log.Printf("[Award] Loaded %s asset (%s, %d bytes)", source, mimeType, len(data))
	return &AwardAsset{data: data, mimeType: mimeType, source: source}
}

func (a *AwardAsset) Loaded() bool {
	return a != nil && len(a.data) > 0
}

func (a *AwardAsset) Bytes() []byte    { return a.data }
func (a *AwardAsset) MimeType() string { return a.mimeType }
func (a *AwardAsset) Source() string   { return a.source }

// PlaceholderAward draws a 200x200 gold trophy on a transparent background.
func PlaceholderAward() ([]byte, error) {
	const size = 200
	gold := color.NRGBA{R: 255, G: 215, B: 0, A: 255}
	dark := color.NRGBA{R: 184, G: 134, B: 11, A: 255}

	img := imaging.New(size, size, color.NRGBA{})

	// cup
	fillCircle(img, 100, 70, 50, gold)
	fillRect(img, image.Rect(50, 30, 151, 70), gold)
	// handles
	ring(img, 45, 65, 18, 6, dark)
	ring(img, 155, 65, 18, 6, dark)
	// stem and base
	fillRect(img, image.Rect(92, 118, 109, 150), dark)
	fillRect(img, image.Rect(65, 150, 136, 170), gold)
	fillRect(img, image.Rect(55, 170, 146, 185), dark)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func fillCircle(img *image.NRGBA, cx, cy, radius int, c color.NRGBA) {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius && image.Pt(x, y).In(img.Bounds()) {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}

func ring(img *image.NRGBA, cx, cy, radius, width int, c color.NRGBA) {
	inner := (radius - width) * (radius - width)
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			d := dx*dx + dy*dy
			if d <= radius*radius && d >= inner && image.Pt(x, y).In(img.Bounds()) {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}

var _ ObjectFetcher = (*StorageService)(nil)
