package models

import "encoding/json"

// Request body of the generateContent call. Field names follow the
// snake_case convention the upstream REST API accepts.
type GenerateRequest struct {
	Contents []Content `json:"contents"`
}

type Content struct {
	Parts []Part `json:"parts"`
}

type Part struct {
	InlineData *Blob  `json:"inline_data,omitempty"`
	Text       string `json:"text,omitempty"`
}

// Blob carries raw bytes; encoding/json writes them as standard base64.
type Blob struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// GenerateResponse is the result envelope. Image parts may use either the
// snake_case or the camelCase field names.
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content      ResponseContent `json:"content"`
	FinishReason string          `json:"finishReason,omitempty"`
}

type ResponseContent struct {
	Parts []ResponsePart `json:"parts"`
}

type ResponsePart struct {
	Text            string        `json:"text,omitempty"`
	InlineDataSnake *ResponseBlob `json:"inline_data,omitempty"`
	InlineData      *ResponseBlob `json:"inlineData,omitempty"`
}

type ResponseBlob struct {
	MimeType      string `json:"mimeType,omitempty"`
	MimeTypeSnake string `json:"mime_type,omitempty"`
	Data          string `json:"data"`
}

// Mime returns whichever mime type field was populated.
func (b *ResponseBlob) Mime() string {
	if b.MimeType != "" {
		return b.MimeType
	}
	return b.MimeTypeSnake
}

// ResponseError is the structured error of an error envelope.
type ResponseError struct {
	Code    int             `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Status  string          `json:"status,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}
