package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "photobooth-api/internal/errors"
)

func TestFirestoreError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantNF    bool
		wantQuota bool
	}{
		{name: "not found", err: status.Error(codes.NotFound, "no document"), wantNF: true},
		{name: "resource exhausted", err: status.Error(codes.ResourceExhausted, "quota"), wantQuota: true},
		{name: "document too large", err: status.Error(codes.InvalidArgument, "exceeds the maximum allowed size"), wantQuota: true},
		{name: "unavailable", err: status.Error(codes.Unavailable, "down")},
		{name: "plain", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := firestoreError("failed to set document", tt.err)
			if got := errors.Is(err, apperrors.ErrNotFound); got != tt.wantNF {
				t.Errorf("ErrNotFound = %v, want %v (%v)", got, tt.wantNF, err)
			}
			if got := errors.Is(err, apperrors.ErrQuotaExceeded); got != tt.wantQuota {
				t.Errorf("ErrQuotaExceeded = %v, want %v (%v)", got, tt.wantQuota, err)
			}
		})
	}
}

func TestStorageError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantNF    bool
		wantQuota bool
	}{
		{name: "missing object", err: storage.ErrObjectNotExist, wantNF: true},
		{name: "wrapped missing object", err: fmt.Errorf("reader: %w", storage.ErrObjectNotExist), wantNF: true},
		{name: "entity too large", err: &googleapi.Error{Code: http.StatusRequestEntityTooLarge}, wantQuota: true},
		{name: "insufficient storage", err: &googleapi.Error{Code: http.StatusInsufficientStorage}, wantQuota: true},
		{name: "server error", err: &googleapi.Error{Code: http.StatusInternalServerError}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storageError("failed to upload photos.json", tt.err)
			if got := errors.Is(err, apperrors.ErrNotFound); got != tt.wantNF {
				t.Errorf("ErrNotFound = %v, want %v (%v)", got, tt.wantNF, err)
			}
			if got := errors.Is(err, apperrors.ErrQuotaExceeded); got != tt.wantQuota {
				t.Errorf("ErrQuotaExceeded = %v, want %v (%v)", got, tt.wantQuota, err)
			}
		})
	}
}

// uniqueName keeps runs against a shared emulator apart.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

// Runs against the Firestore emulator when FIRESTORE_EMULATOR_HOST is set.
func TestFirestoreStoreEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()

	client, err := firestore.NewClient(ctx, "demo-photobooth")
	if err != nil {
		t.Fatalf("firestore.NewClient() error = %v", err)
	}
	defer client.Close()

	t.Run("contract", func(t *testing.T) {
		exerciseKV(t, NewFirestoreStore(client, uniqueName("kv"), 100))
	})
	t.Run("quota ladder", func(t *testing.T) {
		exerciseQuotaLadder(t, NewFirestoreStore(client, uniqueName("ladder"), 3000))
	})
}

// Runs against a GCS emulator when STORAGE_EMULATOR_HOST is set.
func TestBucketStoreEmulator(t *testing.T) {
	if os.Getenv("STORAGE_EMULATOR_HOST") == "" {
		t.Skip("STORAGE_EMULATOR_HOST not set")
	}
	ctx := context.Background()

	client, err := storage.NewClient(ctx, option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("storage.NewClient() error = %v", err)
	}
	bucket := "photobooth-test"
	if err := client.Bucket(bucket).Create(ctx, "demo-photobooth", nil); err != nil {
		t.Logf("bucket create: %v", err)
	}
	svc := NewStorageService(client, bucket)
	defer svc.Close()

	if _, err := svc.FetchFile(ctx, uniqueName("missing")); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("FetchFile(missing) error = %v, want ErrNotFound", err)
	}
	t.Run("contract", func(t *testing.T) {
		exerciseKV(t, NewBucketStore(svc, uniqueName("kv"), 100))
	})
	t.Run("quota ladder", func(t *testing.T) {
		exerciseQuotaLadder(t, NewBucketStore(svc, uniqueName("ladder"), 3000))
	})
}
