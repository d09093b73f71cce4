package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	apperrors "photobooth-api/internal/errors"
	"photobooth-api/internal/models"
)

type StorageService struct {
	client     *storage.Client
	bucketName string
}

func NewStorageService(client *storage.Client, bucketName string) *StorageService {
	return &StorageService{
		client:     client,
		bucketName: bucketName,
	}
}

// Retrieves a file from Google Cloud Storage by its path.
// Returns ErrNotFound when the object does not exist.
func (s *StorageService) FetchFile(ctx context.Context, filePath string) ([]byte, error) {
	var data []byte
	err := withRetry(ctx, func() error {
		reader, err := s.client.Bucket(s.bucketName).Object(filePath).NewReader(ctx)
		if err != nil {
			return err
		}
		defer reader.Close()

		data, err = io.ReadAll(reader)
		return err
	})
	if err != nil {
		return nil, storageError("failed to fetch "+filePath, err)
	}

	return data, nil
}

// Uploads data to the given path. The object only becomes visible once the
// upload completes, so a failed upload leaves any previous version in place.
func (s *StorageService) UploadFile(ctx context.Context, filePath string, data []byte, contentType string) error {
	err := withRetry(ctx, func() error {
		w := s.client.Bucket(s.bucketName).Object(filePath).NewWriter(ctx)
		w.ContentType = contentType
		if _, err := w.Write(data); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})
	if err != nil {
		return storageError("failed to upload "+filePath, err)
	}

	return nil
}

// Deletes the object at path. A missing object is not an error.
func (s *StorageService) DeleteFile(ctx context.Context, filePath string) error {
	err := withRetry(ctx, func() error {
		return s.client.Bucket(s.bucketName).Object(filePath).Delete(ctx)
	})
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", filePath, err)
	}
	return nil
}

// Returns the size of every object under prefix, keyed by object name.
func (s *StorageService) ObjectSizes(ctx context.Context, prefix string) (map[string]int64, error) {
	it := s.client.Bucket(s.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})

	sizes := make(map[string]int64)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		sizes[attrs.Name] = attrs.Size
	}

	return sizes, nil
}

func (s *StorageService) Close() error {
	return s.client.Close()
}

// storageError maps bucket errors onto the store sentinels.
func storageError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
		return fmt.Errorf("%s: %w", op, apperrors.ErrNotFound)
	case isQuotaStatus(err):
		return fmt.Errorf("%s: %v: %w", op, err, apperrors.ErrQuotaExceeded)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// BucketStore is a KeyValueStore keeping one JSON object per key under a prefix.
type BucketStore struct {
	storage  *StorageService
	prefix   string
	maxBytes int64
}

func NewBucketStore(svc *StorageService, prefix string, maxBytes int64) *BucketStore {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &BucketStore{
		storage:  svc,
		prefix:   prefix,
		maxBytes: maxBytes,
	}
}

func (b *BucketStore) objectPath(key string) string {
	return b.prefix + key + ".json"
}

func (b *BucketStore) Get(ctx context.Context, key string) ([]byte, error) {
	return b.storage.FetchFile(ctx, b.objectPath(key))
}

func (b *BucketStore) Set(ctx context.Context, key string, value []byte) error {
	sizes, err := b.storage.ObjectSizes(ctx, b.prefix)
	if err != nil {
		return err
	}

	var others int64
	for name, size := range sizes {
		if name != b.objectPath(key) {
			others += size
		}
	}
	if exceedsQuota(b.maxBytes, others, int64(len(value))) {
		return fmt.Errorf("set %q (%d bytes): %w", key, len(value), apperrors.ErrQuotaExceeded)
	}

	return b.storage.UploadFile(ctx, b.objectPath(key), value, "application/json")
}

func (b *BucketStore) Delete(ctx context.Context, key string) error {
	return b.storage.DeleteFile(ctx, b.objectPath(key))
}

func (b *BucketStore) Usage(ctx context.Context) (models.StorageUsage, error) {
	sizes, err := b.storage.ObjectSizes(ctx, b.prefix)
	if err != nil {
		return models.StorageUsage{}, err
	}

	var used int64
	for _, size := range sizes {
		used += size
	}
	return newStorageUsage(used, b.maxBytes), nil
}

func (b *BucketStore) Close() error {
	return b.storage.Close()
}
