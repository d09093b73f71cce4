package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_BACKEND", "HOURLY_LIMITS_ENABLED", "MAX_TRANSFORMS_PER_WINDOW", "GEMINI_TIMEOUT", "API_KEYS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StorageBackend != BackendSQLite {
		t.Errorf("StorageBackend = %q, want %q", cfg.StorageBackend, BackendSQLite)
	}
	if cfg.HourlyLimitsEnabled {
		t.Error("HourlyLimitsEnabled should default to false")
	}
	if cfg.MaxTransformsPerWindow != 3 {
		t.Errorf("MaxTransformsPerWindow = %d, want 3", cfg.MaxTransformsPerWindow)
	}
	if cfg.GeminiTimeout != 60*time.Second {
		t.Errorf("GeminiTimeout = %v, want 60s", cfg.GeminiTimeout)
	}
	if len(cfg.APIKeys) != 0 {
		t.Errorf("APIKeys = %v, want empty", cfg.APIKeys)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Memory")
	t.Setenv("HOURLY_LIMITS_ENABLED", "true")
	t.Setenv("MAX_PHOTOS_PER_WINDOW", "7")
	t.Setenv("API_KEYS", "one, two,,")
	t.Setenv("THUMBNAIL_CACHE_TTL", "30")

	cfg := FromEnv()

	if cfg.StorageBackend != BackendMemory {
		t.Errorf("StorageBackend = %q, want memory", cfg.StorageBackend)
	}
	if !cfg.HourlyLimitsEnabled || cfg.MaxPhotosPerWindow != 7 {
		t.Errorf("limits = %v/%d, want true/7", cfg.HourlyLimitsEnabled, cfg.MaxPhotosPerWindow)
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[1] != "two" {
		t.Errorf("APIKeys = %v, want [one two]", cfg.APIKeys)
	}
	if cfg.ThumbnailCacheTTL != 30*time.Minute {
		t.Errorf("ThumbnailCacheTTL = %v, want 30m", cfg.ThumbnailCacheTTL)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		t.Setenv("STORAGE_BACKEND", "memory")
		return FromEnv()
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.StorageBackend = "redis" }, "STORAGE_BACKEND"},
		{"firestore without project", func(c *Config) { c.StorageBackend = BackendFirestore; c.FirebaseProjectID = "" }, "FIREBASE_PROJECT_ID"},
		{"gcs without bucket", func(c *Config) {
			c.StorageBackend = BackendGCS
			c.FirebaseProjectID = "p"
			c.FirebaseBucketName = ""
		}, "FIREBASE_BUCKET_NAME"},
		{"zero capacity", func(c *Config) { c.OriginalCapacity = 0 }, "CAPACITY"},
		{"limits enabled with zero ceiling", func(c *Config) {
			c.HourlyLimitsEnabled = true
			c.MaxTransformsPerWindow = 0
		}, "MAX_TRANSFORMS_PER_WINDOW"},
		{"quality out of range", func(c *Config) { c.ResultJPEGQuality = 101 }, "QUALITY"},
		{"zero quota", func(c *Config) { c.StorageQuotaBytes = 0 }, "STORAGE_QUOTA_BYTES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
