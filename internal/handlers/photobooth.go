package handlers

import (
	"log"
	"net/http"
	"time"

	"photobooth-api/internal/models"
)

// HandlePhotobooth transforms the selected photo.
func (h *Handler) HandlePhotobooth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	photo, err := h.booth.Transform(r.Context())
	if err != nil {
		log.Printf("[Photobooth] Transform failed after %v: %v", time.Since(start), err)
		writeError(w, err)
		return
	}

	log.Printf("[Photobooth] Created photo %d in %v", photo.Id, time.Since(start))
	h.photosChanged()

	writeJSON(w, http.StatusCreated, models.PhotoSummary{
		Id:         photo.Id,
		Index:      0,
		CapturedAt: photo.CapturedAt,
		Origin:     photo.Origin,
		FileName:   photo.FileName(),
	})
}

// HandleUsage reports window counters and backend storage usage.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := h.store.UsageReport(r.Context())
	storage, err := h.store.StorageUsage(r.Context())
	if err != nil {
		log.Printf("[Usage] Failed to measure storage: %v", err)
	}
	report.Storage = storage

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, report)
}
