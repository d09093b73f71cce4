package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"testing"

	apperrors "photobooth-api/internal/errors"
)

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) FetchFile(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func TestLoadAwardAsset(t *testing.T) {
	pngData := pngBytes(t, 8, 8)

	tests := []struct {
		name       string
		fetcher    *fakeFetcher
		object     string
		wantBucket bool
		wantCalls  int
	}{
		{name: "bucket object", fetcher: &fakeFetcher{data: pngData}, object: "award.png", wantBucket: true, wantCalls: 1},
		{name: "missing object falls back", fetcher: &fakeFetcher{err: fmt.Errorf("award.png: %w", apperrors.ErrNotFound)}, object: "award.png", wantCalls: 1},
		{name: "fetch failure falls back", fetcher: &fakeFetcher{err: errors.New("connection reset")}, object: "award.png", wantCalls: 1},
		{name: "empty object falls back", fetcher: &fakeFetcher{data: []byte{}}, object: "award.png", wantCalls: 1},
		{name: "no object name", fetcher: &fakeFetcher{data: pngData}, object: "", wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := LoadAwardAsset(context.Background(), tt.fetcher, tt.object)
			if err != nil {
				t.Fatalf("LoadAwardAsset() error = %v", err)
			}
			if !asset.Loaded() {
				t.Fatal("asset not loaded")
			}
			if got := strings.HasPrefix(asset.Source(), "bucket:"); got != tt.wantBucket {
				t.Errorf("source = %q, wantBucket %v", asset.Source(), tt.wantBucket)
			}
			if tt.fetcher.calls != tt.wantCalls {
				t.Errorf("fetch calls = %d, want %d", tt.fetcher.calls, tt.wantCalls)
			}
			if asset.MimeType() != "image/png" {
				t.Errorf("mime = %q, want image/png", asset.MimeType())
			}
		})
	}
}

func TestLoadAwardAssetWithoutBucket(t *testing.T) {
	asset, err := LoadAwardAsset(context.Background(), nil, "award.png")
	if err != nil {
		t.Fatalf("LoadAwardAsset() error = %v", err)
	}
	if !asset.Loaded() || asset.Source() == "" {
		t.Fatalf("asset = %+v", asset)
	}
}

func TestPlaceholderAward(t *testing.T) {
	data, err := PlaceholderAward()
	if err != nil {
		t.Fatalf("PlaceholderAward() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("placeholder is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Errorf("bounds = %v, want 200x200", b)
	}
	if _, _, _, a := img.At(100, 160).RGBA(); a == 0 {
		t.Error("trophy base is transparent")
	}
	if _, _, _, a := img.At(2, 2).RGBA(); a != 0 {
		t.Error("corner should be transparent")
	}
}

func TestAwardAssetNilSafe(t *testing.T) {
	var asset *AwardAsset
	if asset.Loaded() {
		t.Error("nil asset reports loaded")
	}
	if NewAwardAsset(nil).Loaded() {
		t.Error("empty asset reports loaded")
	}
}
