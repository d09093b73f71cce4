package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "photobooth-api/internal/errors"
)

// withRetry retries transient backend failures with exponential backoff.
// Quota errors are never retried; the persist ladder handles them.
func withRetry(ctx context.Context, op func() error) error {
	return retry.Do(op,
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
}

func isTransient(err error) bool {
	if errors.Is(err, apperrors.ErrQuotaExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}

// isQuotaStatus reports backend responses that mean "value too large / store full".
func isQuotaStatus(err error) bool {
	switch status.Code(err) {
	case codes.ResourceExhausted, codes.InvalidArgument:
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusRequestEntityTooLarge || apiErr.Code == http.StatusInsufficientStorage
	}
	return false
}
