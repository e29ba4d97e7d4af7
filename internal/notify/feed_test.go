package notify

import (
	"context"
	"errors"
	"testing"

	"resale-escrow-go/internal/models"
)

type limitReader struct {
	limit int
	rows  []models.Notification
	err   error
}

func (r *limitReader) ListNotifications(_ context.Context, _ string, limit int) ([]models.Notification, error) {
	r.limit = limit
	return r.rows, r.err
}

func TestRecentClampsLimit(t *testing.T) {
	tests := []struct {
		asked int
		want  int
	}{
		{0, DefaultFeedLimit},
		{-3, DefaultFeedLimit},
		{5, 5},
		{500, MaxFeedLimit},
	}
	for _, tt := range tests {
		r := &limitReader{}
		got, err := Recent(context.Background(), r, "u1", tt.asked)
		if err != nil {
			t.Fatalf("Recent(%d): %v", tt.asked, err)
		}
		if r.limit != tt.want {
			t.Errorf("Recent(%d) used limit %d, want %d", tt.asked, r.limit, tt.want)
		}
		if got == nil {
			t.Errorf("Recent(%d) returned nil, want empty slice", tt.asked)
		}
	}
}

func TestRecentWrapsStoreError(t *testing.T) {
	boom := errors.New("db down")
	if _, err := Recent(context.Background(), &limitReader{err: boom}, "u1", 10); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
}
