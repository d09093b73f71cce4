package utils

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// timestampFormats lists accepted capture-time layouts in order of likelihood.
// The last one is the pl-PL locale string written by older clients.
var timestampFormats = []string{
	time.RFC3339,
	"2006:01:02 15:04:05",
	"2006-01-02T15:04:05",
	"2.01.2006, 15:04:05",
}

// ExtractCaptureTime reads the EXIF capture time of an image, if any.
func ExtractCaptureTime(imageData []byte) (time.Time, error) {
	x, err := exif.Decode(bytes.NewReader(imageData))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	if dt, err := x.DateTime(); err == nil {
		return dt, nil
	}

	dateTag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return time.Time{}, fmt.Errorf("no capture time in EXIF: %w", err)
	}
	dateStr, err := dateTag.StringVal()
	if err != nil {
		return time.Time{}, err
	}

	return ParseTimestamp(dateStr)
}

// ParseTimestamp parses any of the supported capture-time layouts.
func ParseTimestamp(timestamp string) (time.Time, error) {
	var t time.Time
	var err error

	for _, format := range timestampFormats {
		t, err = time.ParseInLocation(format, timestamp, time.Local)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", timestamp, err)
}

// FormatTimestamp renders a capture time as "Wednesday, 15 January 2025, 14:30".
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%s, %d %s %d, %02d:%02d",
		t.Weekday(), t.Day(), t.Month(), t.Year(), t.Hour(), t.Minute())
}
