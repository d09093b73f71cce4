package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "photobooth-api/internal/errors"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", status.Error(codes.Unavailable, "down"), true},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), true},
		{"not found", status.Error(codes.NotFound, "gone"), false},
		{"resource exhausted", status.Error(codes.ResourceExhausted, "full"), false},
		{"googleapi 503", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"googleapi 429", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"googleapi 404", &googleapi.Error{Code: http.StatusNotFound}, false},
		{"quota", fmt.Errorf("write: %w", apperrors.ErrQuotaExceeded), false},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsQuotaStatus(t *testing.T) {
	if !isQuotaStatus(status.Error(codes.ResourceExhausted, "too big")) {
		t.Error("ResourceExhausted should be a quota status")
	}
	if !isQuotaStatus(&googleapi.Error{Code: http.StatusRequestEntityTooLarge}) {
		t.Error("413 should be a quota status")
	}
	if isQuotaStatus(status.Error(codes.Unavailable, "down")) {
		t.Error("Unavailable is not a quota status")
	}
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return status.Error(codes.Unavailable, "flaky")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("withRetry() = %v after %d calls, want success after 3", err, calls)
	}

	calls = 0
	err = withRetry(context.Background(), func() error {
		calls++
		return apperrors.ErrQuotaExceeded
	})
	if !errors.Is(err, apperrors.ErrQuotaExceeded) || calls != 1 {
		t.Errorf("quota error retried: %v after %d calls", err, calls)
	}
}
