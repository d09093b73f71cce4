package router

import (
	"net/http"

	"photobooth-api/internal/handlers"
	"photobooth-api/internal/middleware"
)

// Setup configures and returns the HTTP router with all application routes.
// The limiter guards the routes that reach the generation endpoint.
func Setup(h *handlers.Handler, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", h.HandleHealth)

	// Photo collections
	mux.HandleFunc("/photos", h.HandlePhotos)
	mux.HandleFunc("/photos/capture", h.HandleCapture)
	mux.HandleFunc("/photos/select", h.HandleSelect)
	mux.HandleFunc("/photos/delete", h.HandleDelete)
	mux.HandleFunc("/photos/clear", h.HandleClear)
	mux.HandleFunc("/photos/download", h.HandleDownload)
	mux.HandleFunc("/photos/thumbnail", h.HandleThumbnail)
	mux.HandleFunc("/usage", h.HandleUsage)

	// Generation
	mux.Handle("/photobooth", limiter.Limit(http.HandlerFunc(h.HandlePhotobooth)))
	mux.Handle("/api/photobooth", limiter.Limit(http.HandlerFunc(h.HandleGenerationProxy)))

	// Notifications
	mux.HandleFunc("/ws", h.HandleWebSocket)

	return mux
}
