package services

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"photobooth-api/internal/errors"
	"photobooth-api/internal/models"
)

// kvDocument is the Firestore document stored for each key.
type kvDocument struct {
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// FirestoreStore keeps each key as a document in one collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	maxBytes   int64
}

func NewFirestoreStore(client *firestore.Client, collection string, maxBytes int64) *FirestoreStore {
	return &FirestoreStore{
		client:     client,
		collection: collection,
		maxBytes:   maxBytes,
	}
}

// Retrieves the value stored under key.
func (fs *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc *firestore.DocumentSnapshot
	err := withRetry(ctx, func() error {
		var err error
		doc, err = fs.client.Collection(fs.collection).Doc(key).Get(ctx)
		return err
	})
	if err != nil {
		return nil, firestoreError("failed to get document", err)
	}

	var data kvDocument
	if err := doc.DataTo(&data); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	return data.Value, nil
}

// Writes value under key after checking the collection-wide quota.
func (fs *FirestoreStore) Set(ctx context.Context, key string, value []byte) error {
	others, err := fs.sumValues(ctx, key)
	if err != nil {
		return err
	}
	if exceedsQuota(fs.maxBytes, others, int64(len(value))) {
		return fmt.Errorf("set %q (%d bytes): %w", key, len(value), errors.ErrQuotaExceeded)
	}

	doc := kvDocument{Value: value, UpdatedAt: time.Now()}
	err = withRetry(ctx, func() error {
		_, err := fs.client.Collection(fs.collection).Doc(key).Set(ctx, doc)
		return err
	})
	if err != nil {
		return firestoreError(fmt.Sprintf("failed to set document %q", key), err)
	}

	return nil
}

// Deletes the document for key. Deleting a missing key is not an error.
func (fs *FirestoreStore) Delete(ctx context.Context, key string) error {
	err := withRetry(ctx, func() error {
		_, err := fs.client.Collection(fs.collection).Doc(key).Delete(ctx)
		return err
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return firestoreError("failed to delete document", err)
	}

	return nil
}

func (fs *FirestoreStore) Usage(ctx context.Context) (models.StorageUsage, error) {
	used, err := fs.sumValues(ctx, "")
	if err != nil {
		return models.StorageUsage{}, err
	}
	return newStorageUsage(used, fs.maxBytes), nil
}

func (fs *FirestoreStore) Close() error {
	return fs.client.Close()
}

// Sums the stored value sizes of every document except the one named skip.
func (fs *FirestoreStore) sumValues(ctx context.Context, skip string) (int64, error) {
	iter := fs.client.Collection(fs.collection).Documents(ctx)
	defer iter.Stop()

	var total int64
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to iterate documents: %w", err)
		}
		if doc.Ref.ID == skip {
			continue
		}

		var data kvDocument
		if err := doc.DataTo(&data); err != nil {
			// Foreign documents in the collection do not count against the quota
			continue
		}
		total += int64(len(data.Value))
	}

	return total, nil
}

// firestoreError maps gRPC statuses onto the store sentinels.
func firestoreError(op string, err error) error {
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s: %w", op, errors.ErrNotFound)
	case isQuotaStatus(err):
		return fmt.Errorf("%s: %v: %w", op, err, errors.ErrQuotaExceeded)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
