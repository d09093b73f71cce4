package utils

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const dataURIPrefix = "data:image/"

// EncodeDataURI builds a base64 data URI for image bytes.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits an image data URI into its mime type and raw bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return "", nil, fmt.Errorf("not an image data URI")
	}

	header, payload, ok := strings.Cut(uri, ",")
	if !ok || payload == "" {
		return "", nil, fmt.Errorf("data URI has no payload")
	}

	mimeType, isBase64 := strings.CutSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI payload: %w", err)
	}

	return mimeType, data, nil
}

// IsImageDataURI reports whether s looks like encoded image content.
func IsImageDataURI(s string) bool {
	_, data, err := DecodeDataURI(s)
	return err == nil && len(data) > 0
}
