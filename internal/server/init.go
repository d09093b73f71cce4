package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"photobooth-api/internal/config"
	"photobooth-api/internal/handlers"
	"photobooth-api/internal/middleware"
	"photobooth-api/internal/router"
	"photobooth-api/internal/services"
	"photobooth-api/internal/websocket"
)

// Services holds all initialized services for the application
type Services struct {
	KV      services.KeyValueStore
	Storage *services.StorageService // May be nil when no bucket is configured
	Cache   *services.CacheService
	Images  *services.ImageService
	Store   *services.PhotoStore
	Gemini  *services.GeminiClient
	Award   *services.AwardAsset
	Booth   *services.BoothCoordinator
	Hub     *websocket.Hub

	stopHub     context.CancelFunc
	closeBucket bool // bucket opened only for the award asset
}

// clientOptions configures Firebase credentials. Without explicit credentials
// the clients fall back to application default credentials.
func clientOptions(cfg *config.Config) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsJSON != "" {
		// Use JSON credentials from environment variable (preferred for Vercel)
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
	} else if cfg.FirebaseCredentialsPath != "" {
		// Use credentials file (for local development)
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsPath))
	}
	return opts
}

// OpenBackend builds the key-value store selected by STORAGE_BACKEND. The
// bucket service is returned as well when one was created for it.
func OpenBackend(ctx context.Context, cfg *config.Config) (services.KeyValueStore, *services.StorageService, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		log.Printf("[Init] Using in-memory storage (%d bytes)", cfg.StorageQuotaBytes)
		return services.NewMemoryStore(cfg.StorageQuotaBytes), nil, nil

	case config.BackendSQLite:
		kv, err := services.NewSQLiteStore(cfg.SQLitePath, cfg.StorageQuotaBytes)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[Init] Using SQLite storage at %s", cfg.SQLitePath)
		return kv, nil, nil

	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirebaseProjectID, clientOptions(cfg)...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		log.Printf("[Init] Using Firestore collection %s", cfg.FirestoreCollection)
		return services.NewFirestoreStore(client, cfg.FirestoreCollection, cfg.StorageQuotaBytes), nil, nil

	case config.BackendGCS:
		svc, err := openBucket(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[Init] Using bucket %s/%s", cfg.FirebaseBucketName, cfg.GCSKeyPrefix)
		return services.NewBucketStore(svc, cfg.GCSKeyPrefix, cfg.StorageQuotaBytes), svc, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func openBucket(ctx context.Context, cfg *config.Config) (*services.StorageService, error) {
	client, err := storage.NewClient(ctx, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firebase Storage client: %w", err)
	}
	return services.NewStorageService(client, cfg.FirebaseBucketName), nil
}

// StoreConfig derives the photo store layout and limits from cfg.
func StoreConfig(cfg *config.Config) services.PhotoStoreConfig {
	return services.PhotoStoreConfig{
		Collections: services.DefaultCollections(cfg.OriginalCapacity, cfg.PhotoboothCapacity),
		Limits: services.UsageLimits{
			Enabled:       cfg.HourlyLimitsEnabled,
			MaxPhotos:     cfg.MaxPhotosPerWindow,
			MaxTransforms: cfg.MaxTransformsPerWindow,
		},
	}
}

// InitServices initializes all application services based on configuration,
// reloads persisted photos and loads the award asset.
// Returns the initialized services or an error if initialization fails.
func InitServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	kv, bucket, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// The award override may live in a bucket even when photos do not
	closeBucket := false
	if bucket == nil && cfg.AwardAssetObject != "" && cfg.HasBucket() {
		if bucket, err = openBucket(ctx, cfg); err != nil {
			log.Printf("[Init] Award bucket unavailable, using embedded asset: %v", err)
			bucket = nil
		} else {
			closeBucket = true
		}
	}

	hub := websocket.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	store, err := services.NewPhotoStore(kv, hub, StoreConfig(cfg))
	if err != nil {
		stopHub()
		kv.Close()
		return nil, err
	}

	if err := store.Reload(ctx); err != nil {
		stopHub()
		kv.Close()
		return nil, err
	}

	var fetcher services.ObjectFetcher
	if bucket != nil {
		fetcher = bucket
	}
	award, err := services.LoadAwardAsset(ctx, fetcher, cfg.AwardAssetObject)
	if err != nil {
		// Transforms report ErrAssetMissing until restart
		log.Printf("[Init] Award asset unavailable: %v", err)
	}

	cache := services.NewCacheService(cfg.ThumbnailCacheTTL, cfg.CacheCleanupInterval)
	images := services.NewImageService(services.ImageOptions{
		CaptureMaxWidth: cfg.CaptureMaxWidth,
		CaptureQuality:  cfg.CaptureJPEGQuality,
		ResultMaxWidth:  cfg.ResultMaxWidth,
		ResultQuality:   cfg.ResultJPEGQuality,
	}, cache)
	gemini := services.NewGeminiClient(cfg.GeminiEndpoint, cfg.GeminiAPIKey, cfg.GeminiTimeout)
	booth := services.NewBoothCoordinator(store, gemini, images, award, hub, services.BoothConfig{
		Prompt: cfg.PhotoboothPrompt,
	})

	if cfg.GeminiAPIKey == "" {
		log.Println("[Init] GEMINI_API_KEY not set, generation requests are sent without a key")
	}

	return &Services{
		KV:          kv,
		Storage:     bucket,
		Cache:       cache,
		Images:      images,
		Store:       store,
		Gemini:      gemini,
		Award:       award,
		Booth:       booth,
		Hub:         hub,
		stopHub:     stopHub,
		closeBucket: closeBucket,
	}, nil
}

// Close flushes the photo store and releases the backend.
func (s *Services) Close(ctx context.Context) error {
	var firstErr error
	if err := s.Store.Close(ctx); err != nil {
		log.Printf("[Shutdown] Failed to flush photos: %v", err)
		firstErr = err
	}

	s.Cache.Close()
	s.stopHub()

	if err := s.KV.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if s.closeBucket && s.Storage != nil {
		s.Storage.Close()
	}
	return firstErr
}

// CreateHandler creates an HTTP handler with all middleware applied
func CreateHandler(svcs *Services, cfg *config.Config) http.Handler {
	// Initialize handlers
	h := handlers.New(handlers.Deps{
		Store:          svcs.Store,
		Booth:          svcs.Booth,
		Images:         svcs.Images,
		Forwarder:      svcs.Gemini,
		Hub:            svcs.Hub,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Setup router with middleware
	mux := router.Setup(h, middleware.PerMinute(cfg.ProxyRequestsPerMinute))

	// Apply global middleware
	wrappedHandler := middleware.APIKeyAuth(cfg.APIKeys)(mux)
	wrappedHandler = middleware.Logger(wrappedHandler)
	wrappedHandler = middleware.RequestID(wrappedHandler)
	wrappedHandler = middleware.CORS(wrappedHandler, cfg.AllowedOrigins)

	return wrappedHandler
}
