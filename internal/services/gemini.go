package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/models"
)

// DefaultGeminiEndpoint is the image-capable generateContent model.
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-image-preview:generateContent"

// ImageGenerator issues one generation request and returns the decoded envelope.
type ImageGenerator interface {
	Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error)
}

// GeminiClient talks to the generateContent endpoint, either directly with an
// API key or through a proxy that holds the key.
type GeminiClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

func NewGeminiClient(endpoint, apiKey string, timeout time.Duration) *GeminiClient {
	if endpoint == "" {
		endpoint = DefaultGeminiEndpoint
	}
	return &GeminiClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.New(os.Stdout, "[Gemini] ", log.LstdFlags),
	}
}

// Generate sends req and decodes the result. Every failure wraps ErrTransportFailure
// with a human-readable reason.
func (g *GeminiClient) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", apperrors.ErrTransportFailure, err)
	}

	status, respBody, err := g.Forward(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransportFailure, err)
	}

	if msg := errorMessage(respBody); msg != "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTransportFailure, msg)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", apperrors.ErrTransportFailure, status)
	}

	var resp models.GenerateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", apperrors.ErrTransportFailure, err)
	}

	return &resp, nil
}

// Forward posts a raw JSON body upstream and returns the status and body unchanged.
func (g *GeminiClient) Forward(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("x-goog-api-key", g.apiKey)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	g.logger.Printf("Upstream responded %d (%d bytes) in %v", resp.StatusCode, len(respBody), time.Since(start))
	return resp.StatusCode, respBody, nil
}

// errorMessage extracts the message of an error envelope. Upstream errors are
// objects ({"error": {"code", "message", "status"}}); the proxy writes a plain
// string ({"error": "...", "details": "..."}).
func errorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Details string          `json:"details"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 || string(envelope.Error) == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Error, &text); err == nil {
		if envelope.Details != "" {
			return text + ": " + envelope.Details
		}
		return text
	}

	var structured models.ResponseError
	if err := json.Unmarshal(envelope.Error, &structured); err == nil {
		switch {
		case structured.Message != "":
			return structured.Message
		case structured.Code != 0:
			return fmt.Sprintf("HTTP %d", structured.Code)
		}
	}
	return string(envelope.Error)
}

// imageExtractor pulls an inline image out of a response part.
type imageExtractor struct {
	name    string
	extract func(models.ResponsePart) *models.ResponseBlob
}

// imageExtractors are tried in order on every part; the first match wins.
var imageExtractors = []imageExtractor{
	{name: "inline_data", extract: func(p models.ResponsePart) *models.ResponseBlob { return p.InlineDataSnake }},
	{name: "inlineData", extract: func(p models.ResponsePart) *models.ResponseBlob { return p.InlineData }},
}

// ExtractImage returns the first image payload in resp, walking candidates and
// their parts in order. Returns ErrNoImageReturned if there is none.
func ExtractImage(resp *models.GenerateResponse) (string, []byte, error) {
	if resp == nil {
		return "", nil, apperrors.ErrNoImageReturned
	}

	var decodeErr error
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			for _, ex := range imageExtractors {
				blob := ex.extract(part)
				if blob == nil || blob.Data == "" {
					continue
				}
				data, err := base64.StdEncoding.DecodeString(blob.Data)
				if err != nil {
					decodeErr = errors.Join(decodeErr, fmt.Errorf("%s: %w", ex.name, err))
					continue
				}
				mime := blob.Mime()
				if mime == "" {
					mime = "image/png"
				}
				return mime, data, nil
			}
		}
	}

	if decodeErr != nil {
		return "", nil, fmt.Errorf("%w: %v", apperrors.ErrNoImageReturned, decodeErr)
	}
	return "", nil, apperrors.ErrNoImageReturned
}
