package handler

import (
	"context"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"photobooth-api/internal/config"
	"photobooth-api/internal/server"
)

var (
	handler http.Handler
	mu      sync.Mutex
	ready   atomic.Bool
)

// initHandler initializes the HTTP handler once and reuses it across invocations.
// Uses double-checked locking for optimal performance in serverless environments.
// Returns an error if initialization fails, allowing retry on next request.
//
// Note: backend clients are not explicitly closed as Vercel's serverless
// runtime handles resource cleanup on function termination. Every mutation
// persists synchronously, so nothing is lost without a final flush.
func initHandler() error {
	// Fast path: handler is only read after ready is observed
	if ready.Load() {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring lock
	if ready.Load() {
		return nil
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return err
	}

	svcs, err := server.InitServices(context.Background(), cfg)
	if err != nil {
		log.Printf("Failed to initialize services: %v", err)
		return err
	}

	// Only publish the handler after full successful initialization
	handler = server.CreateHandler(svcs, cfg)
	ready.Store(true)

	log.Println("Handler initialized successfully")
	return nil
}

// Handler is the Vercel serverless function entry point
func Handler(w http.ResponseWriter, r *http.Request) {
	// Attempt initialization (will succeed immediately if already initialized)
	if err := initHandler(); err != nil {
		log.Printf("Handler initialization failed: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Delegate to the initialized handler
	handler.ServeHTTP(w, r)
}
