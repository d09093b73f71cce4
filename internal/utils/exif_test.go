package utils

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:  "ISO 8601 UTC format",
			input: "2025-01-15T14:30:00Z",
		},
		{
			name:  "EXIF format",
			input: "2025:01:15 14:30:00",
		},
		{
			name:  "ISO format without Z",
			input: "2025-01-15T14:30:00",
		},
		{
			name:  "Polish locale",
			input: "30.10.2025, 09:15:00",
		},
		{
			name:  "Polish locale single digit day",
			input: "3.10.2025, 09:15:00",
		},
		{
			name:      "Invalid format",
			input:     "not a timestamp",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseTimestamp(tt.input)
			if tt.wantError {
				if err == nil {
					t.Errorf("ParseTimestamp(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseTimestamp(%q) unexpected error: %v", tt.input, err)
			}
			if result.IsZero() {
				t.Errorf("ParseTimestamp(%q) returned zero time", tt.input)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2025, time.January, 15, 14, 30, 0, 0, time.UTC)
	got := FormatTimestamp(ts)
	want := "Wednesday, 15 January 2025, 14:30"
	if got != want {
		t.Errorf("FormatTimestamp() = %q, want %q", got, want)
	}
}
