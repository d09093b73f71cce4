package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendGCS       = "gcs"
)

// DefaultQuotaBytes matches the browser localStorage limit the booth was sized for.
const DefaultQuotaBytes = 5 * 1024 * 1024

type Config struct {
	Port           string
	AllowedOrigins []string
	APIKeys        []string // API keys for authentication (comma-separated, optional)

	StorageBackend          string
	StorageQuotaBytes       int64
	SQLitePath              string
	FirebaseProjectID       string
	FirebaseBucketName      string
	FirebaseCredentialsPath string
	FirebaseCredentialsJSON string // For Vercel: raw JSON string
	FirestoreCollection     string
	GCSKeyPrefix            string

	GeminiAPIKey     string
	GeminiEndpoint   string
	GeminiTimeout    time.Duration
	PhotoboothPrompt string
	AwardAssetObject string // optional bucket object overriding the embedded award image

	HourlyLimitsEnabled    bool
	MaxPhotosPerWindow     int
	MaxTransformsPerWindow int
	OriginalCapacity       int
	PhotoboothCapacity     int

	CaptureMaxWidth    int
	CaptureJPEGQuality int
	ResultMaxWidth     int
	ResultJPEGQuality  int

	ThumbnailCacheTTL      time.Duration
	CacheCleanupInterval   time.Duration
	ProxyRequestsPerMinute int

	IsVercel bool // Detected via VERCEL env var
}

// Load reads configuration from environment variables and .env file.
// It loads the .env file if present, then populates the Config struct.
// Returns an error if required configuration is missing.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv populates a Config from the process environment without validating it.
func FromEnv() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"*"}),
		APIKeys:        getList("API_KEYS", []string{}),

		StorageBackend:          strings.ToLower(getEnv("STORAGE_BACKEND", BackendSQLite)),
		StorageQuotaBytes:       int64(getIntEnv("STORAGE_QUOTA_BYTES", DefaultQuotaBytes)),
		SQLitePath:              getEnv("SQLITE_PATH", "photobooth.db"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseBucketName:      getEnv("FIREBASE_BUCKET_NAME", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		FirestoreCollection:     getEnv("FIRESTORE_COLLECTION", "photobooth_kv"),
		GCSKeyPrefix:            getEnv("GCS_KEY_PREFIX", "photobooth"),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiEndpoint:   getEnv("GEMINI_ENDPOINT", ""),
		GeminiTimeout:    getDurationEnv("GEMINI_TIMEOUT", 60*time.Second),
		PhotoboothPrompt: getEnv("PHOTOBOOTH_PROMPT", ""),
		AwardAssetObject: getEnv("AWARD_ASSET_OBJECT", ""),

		HourlyLimitsEnabled:    getBoolEnv("HOURLY_LIMITS_ENABLED", false),
		MaxPhotosPerWindow:     getIntEnv("MAX_PHOTOS_PER_WINDOW", 3),
		MaxTransformsPerWindow: getIntEnv("MAX_TRANSFORMS_PER_WINDOW", 3),
		OriginalCapacity:       getIntEnv("ORIGINAL_CAPACITY", 3),
		PhotoboothCapacity:     getIntEnv("PHOTOBOOTH_CAPACITY", 3),

		CaptureMaxWidth:    getIntEnv("CAPTURE_MAX_WIDTH", 1920),
		CaptureJPEGQuality: getIntEnv("CAPTURE_JPEG_QUALITY", 85),
		ResultMaxWidth:     getIntEnv("RESULT_MAX_WIDTH", 1024),
		ResultJPEGQuality:  getIntEnv("RESULT_JPEG_QUALITY", 80),

		ThumbnailCacheTTL:      getDurationEnv("THUMBNAIL_CACHE_TTL", 15*time.Minute),
		CacheCleanupInterval:   getDurationEnv("CACHE_CLEANUP_INTERVAL", 10*time.Minute),
		ProxyRequestsPerMinute: getIntEnv("PROXY_REQUESTS_PER_MINUTE", 10),

		IsVercel: getEnv("VERCEL", "") != "",
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendFirestore, BackendGCS:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the %s backend", c.StorageBackend)
		}
		if c.StorageBackend == BackendFirestore && c.FirestoreCollection == "" {
			return fmt.Errorf("FIRESTORE_COLLECTION is required")
		}
		if c.StorageBackend == BackendGCS && c.FirebaseBucketName == "" {
			return fmt.Errorf("FIREBASE_BUCKET_NAME is required for the gcs backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, sqlite, firestore, gcs (got %q)", c.StorageBackend)
	}

	if c.StorageQuotaBytes <= 0 {
		return fmt.Errorf("STORAGE_QUOTA_BYTES must be positive")
	}
	if c.OriginalCapacity <= 0 || c.PhotoboothCapacity <= 0 {
		return fmt.Errorf("ORIGINAL_CAPACITY and PHOTOBOOTH_CAPACITY must be positive")
	}
	if c.HourlyLimitsEnabled && (c.MaxPhotosPerWindow <= 0 || c.MaxTransformsPerWindow <= 0) {
		return fmt.Errorf("MAX_PHOTOS_PER_WINDOW and MAX_TRANSFORMS_PER_WINDOW must be positive when HOURLY_LIMITS_ENABLED is set")
	}
	if !validQuality(c.CaptureJPEGQuality) || !validQuality(c.ResultJPEGQuality) {
		return fmt.Errorf("CAPTURE_JPEG_QUALITY and RESULT_JPEG_QUALITY must be between 1 and 100")
	}
	if c.CaptureMaxWidth <= 0 || c.ResultMaxWidth <= 0 {
		return fmt.Errorf("CAPTURE_MAX_WIDTH and RESULT_MAX_WIDTH must be positive")
	}
	if c.GeminiTimeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive")
	}
	if c.ThumbnailCacheTTL <= 0 {
		return fmt.Errorf("THUMBNAIL_CACHE_TTL must be positive")
	}
	if c.CacheCleanupInterval <= 0 {
		return fmt.Errorf("CACHE_CLEANUP_INTERVAL must be positive")
	}
	if c.ProxyRequestsPerMinute <= 0 {
		return fmt.Errorf("PROXY_REQUESTS_PER_MINUTE must be positive")
	}
	return nil
}

// HasBucket reports whether object storage is configured.
func (c *Config) HasBucket() bool {
	return c.FirebaseProjectID != "" && c.FirebaseBucketName != ""
}

func validQuality(q int) bool {
	return q >= 1 && q <= 100
}

// Retrieves an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// Retrieves an integer from environment variable or returns a default value.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s: %q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

// Retrieves a duration from environment variable or returns a default value.
// It supports both time.Duration format (e.g., "10m", "12h") and integer minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

// Retrieves a comma-separated list from environment variable or returns a default value.
func getList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return defaultValue
}

// Retrieves a boolean from environment variable or returns a default value.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
