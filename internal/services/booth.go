package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/models"
	"photobooth-api/internal/utils"
)

// DefaultPrompt is the composite instruction sent with every transform.
const DefaultPrompt = "Edit this photo so it looks like a photobooth picture taken at the I ❤️  Marketing & Technology conference. " +
	"Add a professional backdrop with the I ❤️  Marketing & Technology white text, hearts are red, on black background repeated like on an event step-and-repeat wall. " +
	"Realistic style, high-quality event photography. Studio-like lighting, polished look, authentic conference vibe. " +
	"Provided person keeps the heart statue in hand. " +
	"Add a small white caption on the bottom with black text \"📍Poznan, 30.10.2025\" next to the following hashtags as white text on red background: " +
	"\"#ilovemtk\", \"#iloveai\", \"#marketerprogramista\"."

// FlightState is the state of a FlightGuard.
type FlightState int32

const (
	Idle FlightState = iota
	InFlight
)

func (s FlightState) String() string {
	if s == InFlight {
		return "in-flight"
	}
	return "idle"
}

// FlightGuard admits at most one outstanding request.
type FlightGuard struct {
	state atomic.Int32
}

// TryStart moves the guard to InFlight. The returned release moves it back to
// Idle and is safe to call more than once.
func (g *FlightGuard) TryStart() (func(), error) {
	if !g.state.CompareAndSwap(int32(Idle), int32(InFlight)) {
		return nil, apperrors.ErrAlreadyInFlight
	}
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			g.state.Store(int32(Idle))
		}
	}, nil
}

func (g *FlightGuard) State() FlightState {
	return FlightState(g.state.Load())
}

type BoothConfig struct {
	Prompt      string
	Source      string // selectable collection the input photo comes from
	Destination string // collection results are inserted into
}

// BoothCoordinator turns the selected photo into a photobooth composite.
type BoothCoordinator struct {
	store     *PhotoStore
	generator ImageGenerator
	images    *ImageService
	award     *AwardAsset
	notifier  Notifier
	cfg       BoothConfig
	guard     FlightGuard
	logger    *log.Logger
}

func NewBoothCoordinator(store *PhotoStore, generator ImageGenerator, images *ImageService, award *AwardAsset, notifier Notifier, cfg BoothConfig) *BoothCoordinator {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Source == "" {
		cfg.Source = CollectionOriginal
	}
	if cfg.Destination == "" {
		cfg.Destination = CollectionPhotobooth
	}
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	return &BoothCoordinator{
		store:     store,
		generator: generator,
		images:    images,
		award:     award,
		notifier:  notifier,
		cfg:       cfg,
		logger:    log.New(os.Stdout, "[Booth] ", log.LstdFlags),
	}
}

// State reports whether a transform is outstanding.
func (b *BoothCoordinator) State() FlightState {
	return b.guard.State()
}

// Transform sends the selected photo and the award asset to the generator and
// inserts the first returned image into the destination collection.
// A call made while another is outstanding fails with ErrAlreadyInFlight.
// Once started a transform runs to completion; cancelling ctx does not abort it.
func (b *BoothCoordinator) Transform(ctx context.Context) (models.Photo, error) {
	ctx = context.WithoutCancel(ctx)

	selected, _, ok := b.store.Selected(b.cfg.Source)
	if !ok {
		return models.Photo{}, apperrors.ErrNoSelection
	}
	if !b.award.Loaded() {
		return models.Photo{}, apperrors.ErrAssetMissing
	}

	release, err := b.guard.TryStart()
	if err != nil {
		return models.Photo{}, err
	}
	defer release()

	refund, err := b.store.ReserveTransform(ctx)
	if err != nil {
		return models.Photo{}, err
	}

	photo, err := b.run(ctx, selected)
	if err != nil {
		refund()
		b.logger.Printf("Transform of %d failed: %v", selected.Id, err)
		b.notifier.Notify(models.LevelError, "Photobooth failed: "+err.Error())
		return models.Photo{}, err
	}

	b.notifier.Notify(models.LevelSuccess, "Photobooth photo ready")
	return photo, nil
}

func (b *BoothCoordinator) run(ctx context.Context, selected models.Photo) (models.Photo, error) {
	userMime, userData, err := utils.DecodeDataURI(selected.ImageData)
	if err != nil {
		return models.Photo{}, fmt.Errorf("selected photo %d: %v: %w", selected.Id, err, apperrors.ErrInvalidInput)
	}

	req := models.GenerateRequest{
		Contents: []models.Content{{
			Parts: []models.Part{
				{InlineData: &models.Blob{MimeType: userMime, Data: userData}},
				{InlineData: &models.Blob{MimeType: b.award.MimeType(), Data: b.award.Bytes()}},
				{Text: b.cfg.Prompt},
			},
		}},
	}

	start := time.Now()
	resp, err := b.generator.Generate(ctx, req)
	if err != nil {
		return models.Photo{}, err
	}

	mime, data, err := ExtractImage(resp)
	if err != nil {
		return models.Photo{}, err
	}
	b.logger.Printf("Generated %s (%d bytes) in %v", mime, len(data), time.Since(start))

	if b.images != nil {
		if compressed, err := b.images.Recompress(data); err == nil {
			mime, data = "image/jpeg", compressed
		} else {
			b.logger.Printf("Keeping uncompressed result: %v", err)
		}
	}

	result := b.store.NewPhoto(utils.EncodeDataURI(mime, data), time.Time{}, models.OriginTransformed)
	if err := b.store.Insert(ctx, b.cfg.Destination, result); err != nil {
		if errors.Is(err, apperrors.ErrStorageExhausted) || errors.Is(err, apperrors.ErrUnknownCollection) {
			return models.Photo{}, err
		}
		// The result is held in memory; the next successful persist mirrors it.
		b.logger.Printf("Warning: photo %d kept in memory only: %v", result.Id, err)
	}
	b.store.Deselect(b.cfg.Source, selected.Id)

	return result, nil
}
