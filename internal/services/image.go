package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/utils"
)

const thumbnailSize = 300

type ImageOptions struct {
	CaptureMaxWidth int
	CaptureQuality  int
	ResultMaxWidth  int
	ResultQuality   int
}

// ImageService normalises captured uploads, shrinks generated results and
// renders cached thumbnails.
type ImageService struct {
	opts  ImageOptions
	cache *CacheService
}

func NewImageService(opts ImageOptions, cache *CacheService) *ImageService {
	return &ImageService{
		opts:  opts,
		cache: cache,
	}
}

// NormalizeCapture converts an uploaded frame into a JPEG data URI bounded to
// the capture width. HEIC input is converted and EXIF orientation applied.
// The EXIF capture time is returned when present, otherwise the zero time.
func (s *ImageService) NormalizeCapture(data []byte, mimeType string) (string, time.Time, error) {
	capturedAt, err := utils.ExtractCaptureTime(data)
	if err != nil {
		capturedAt = time.Time{}
	}

	_, data = utils.ConvertIfHeic(mimeType, data, s.opts.CaptureQuality)

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("decode capture: %v: %w", err, apperrors.ErrInvalidInput)
	}

	out, err := encodeJPEG(fitWidth(img, s.opts.CaptureMaxWidth), s.opts.CaptureQuality)
	if err != nil {
		return "", time.Time{}, err
	}

	return utils.EncodeDataURI("image/jpeg", out), capturedAt, nil
}

// Recompress shrinks a generated image to the result width and quality.
func (s *ImageService) Recompress(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode result: %v: %w", err, apperrors.ErrInvalidInput)
	}
	return encodeJPEG(fitWidth(img, s.opts.ResultMaxWidth), s.opts.ResultQuality)
}

// Thumbnail returns a cached 300x300 JPEG thumbnail for the photo with id.
func (s *ImageService) Thumbnail(id int64, data []byte) ([]byte, error) {
	key := "thumb:" + strconv.FormatInt(id, 10)
	if s.cache != nil {
		if cached, _, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail source: %v: %w", err, apperrors.ErrInvalidInput)
	}

	thumb := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(key, buf.Bytes(), "image/jpeg")
	}
	log.Printf("[Image] Rendered thumbnail for %d (%d bytes)", id, buf.Len())
	return buf.Bytes(), nil
}

func fitWidth(img image.Image, maxWidth int) image.Image {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	return img
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
