package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/models"
	"photobooth-api/internal/services"
	"photobooth-api/internal/utils"
)

const maxUploadBytes = 20 << 20

// HandlePhotos lists every collection without image data.
func (h *Handler) HandlePhotos(w http.ResponseWriter, r *http.Request) {
	// Only allow GET requests
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.store.Collections())
}

// HandleCapture stores an uploaded frame in the original collection.
// The body is either raw image bytes or JSON {"imageData": "data:image/..."}.
func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, mimeType, err := readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	// Persist even if the client goes away once the upload is read.
	ctx := context.WithoutCancel(r.Context())
	refund, err := h.store.ReservePhoto(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	imageData, capturedAt, err := h.images.NormalizeCapture(data, mimeType)
	if err != nil {
		refund()
		log.Printf("[Capture] Failed to normalise upload: %v", err)
		writeError(w, err)
		return
	}

	photo := h.store.NewPhoto(imageData, capturedAt, models.OriginCaptured)
	if err := h.store.Insert(ctx, services.CollectionOriginal, photo); err != nil {
		if errors.Is(err, apperrors.ErrStorageExhausted) {
			refund()
			log.Printf("[Capture] Failed to store photo %d: %v", photo.Id, err)
			h.photosChanged()
			writeError(w, err)
			return
		}
		log.Printf("[Capture] Warning: photo %d kept in memory only: %v", photo.Id, err)
	}

	log.Printf("[Capture] Stored photo %d (%d bytes in) in %v", photo.Id, len(data), time.Since(start))
	h.photosChanged()

	writeJSON(w, http.StatusCreated, models.PhotoSummary{
		Id:         photo.Id,
		Index:      0,
		CapturedAt: photo.CapturedAt,
		Origin:     photo.Origin,
		FileName:   photo.FileName(),
	})
}

// HandleSelect toggles the selection on a selectable collection.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := collectionParam(r, services.CollectionOriginal)
	index, err := indexParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	selected, err := h.store.Select(name, index)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"collection": name, "selected": selected}
	if selected {
		resp["index"] = index
	}
	h.photosChanged()
	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete removes one photo.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := collectionParam(r, services.CollectionOriginal)
	index, err := indexParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.Delete(r.Context(), name, index); err != nil {
		writeError(w, err)
		return
	}

	h.photosChanged()
	w.WriteHeader(http.StatusNoContent)
}

// HandleClear empties one collection, or all of them without a collection parameter.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var err error
	if name := strings.TrimSpace(r.URL.Query().Get("collection")); name != "" {
		err = h.store.Clear(r.Context(), name)
	} else {
		err = h.store.ClearAll(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	h.photosChanged()
	w.WriteHeader(http.StatusNoContent)
}

// HandleDownload serves the image bytes as an attachment.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	photo, ok := h.photoFromQuery(w, r)
	if !ok {
		return
	}

	mimeType, data, err := utils.DecodeDataURI(photo.ImageData)
	if err != nil {
		log.Printf("[Download] Photo %d has unreadable image data: %v", photo.Id, err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": photo.FileName()}))
	w.Header().Set("Cache-Control", "private, max-age=900")
	w.Write(data)
}

// HandleThumbnail serves a 300x300 JPEG preview.
func (h *Handler) HandleThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	photo, ok := h.photoFromQuery(w, r)
	if !ok {
		return
	}

	_, data, err := utils.DecodeDataURI(photo.ImageData)
	if err != nil {
		writeError(w, err)
		return
	}

	thumb, err := h.images.Thumbnail(photo.Id, data)
	if err != nil {
		log.Printf("[Thumbnail] Failed for photo %d: %v", photo.Id, err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=900")
	w.Write(thumb)
}

func (h *Handler) photoFromQuery(w http.ResponseWriter, r *http.Request) (models.Photo, bool) {
	name := collectionParam(r, services.CollectionOriginal)
	index, err := indexParam(r)
	if err != nil {
		writeError(w, err)
		return models.Photo{}, false
	}

	photo, err := h.store.Photo(name, index)
	if err != nil {
		writeError(w, err)
		return models.Photo{}, false
	}
	return photo, true
}

func collectionParam(r *http.Request, fallback string) string {
	if name := strings.TrimSpace(r.URL.Query().Get("collection")); name != "" {
		return name
	}
	return fallback
}

func indexParam(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("index"))
	if raw == "" {
		return 0, fmt.Errorf("missing index parameter: %w", apperrors.ErrInvalidInput)
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid index parameter %q: %w", raw, apperrors.ErrInvalidInput)
	}
	return index, nil
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %v: %w", err, apperrors.ErrInvalidInput)
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("empty upload: %w", apperrors.ErrInvalidInput)
	}

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType != "application/json" {
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(body)
		}
		return body, contentType, nil
	}

	var payload struct {
		ImageData string `json:"imageData"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, "", fmt.Errorf("invalid JSON body: %v: %w", err, apperrors.ErrInvalidInput)
	}
	mimeType, data, err := utils.DecodeDataURI(payload.ImageData)
	if err != nil {
		return nil, "", fmt.Errorf("imageData: %v: %w", err, apperrors.ErrInvalidInput)
	}
	return data, mimeType, nil
}
