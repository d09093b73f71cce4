package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"
)

// HandleGenerationProxy forwards a generation request upstream with the
// server-held key. Rate limiting is applied by the router.
func (h *Handler) HandleGenerationProxy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.forwarder == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Generation proxy is not configured"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
		return
	}
	if len(body) == 0 || !json.Valid(body) || string(body) == "null" || string(body) == "{}" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No data provided"})
		return
	}

	log.Printf("[Proxy] Forwarding request (%d bytes)", len(body))

	status, respBody, err := h.forwarder.Forward(r.Context(), body)
	if err != nil {
		if isTimeout(err) {
			log.Printf("[Proxy] Upstream timed out after %v", time.Since(start))
			writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "Request timeout"})
			return
		}
		log.Printf("[Proxy] Upstream request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("Request failed: %v", err)})
		return
	}

	log.Printf("[Proxy] Upstream responded %d in %v", status, time.Since(start))

	if status != http.StatusOK {
		writeJSON(w, status, map[string]string{
			"error":   fmt.Sprintf("Gemini API error: %d", status),
			"details": string(respBody),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(respBody)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
