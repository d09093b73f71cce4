package handlers

import (
	"context"

	gorillaws "github.com/gorilla/websocket"

	"photobooth-api/internal/services"
	"photobooth-api/internal/websocket"
)

// Forwarder relays a raw generation request upstream.
type Forwarder interface {
	Forward(ctx context.Context, body []byte) (int, []byte, error)
}

type Handler struct {
	store     *services.PhotoStore
	booth     *services.BoothCoordinator
	images    *services.ImageService
	forwarder Forwarder
	hub       *websocket.Hub
	upgrader  *gorillaws.Upgrader
}

type Deps struct {
	Store          *services.PhotoStore
	Booth          *services.BoothCoordinator
	Images         *services.ImageService
	Forwarder      Forwarder // nil disables the generation proxy
	Hub            *websocket.Hub
	AllowedOrigins []string
}

func New(d Deps) *Handler {
	return &Handler{
		store:     d.Store,
		booth:     d.Booth,
		images:    d.Images,
		forwarder: d.Forwarder,
		hub:       d.Hub,
		upgrader:  websocket.NewUpgrader(d.AllowedOrigins),
	}
}

// photosChanged tells connected clients to refresh their listing.
func (h *Handler) photosChanged() {
	if h.hub != nil {
		h.hub.Publish(websocket.MSG_PHOTOS_CHANGED, h.store.Collections())
	}
}
