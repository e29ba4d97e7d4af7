package transport

import (
	"testing"
	"time"
)

func TestNewHTTPClientTimeouts(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"explicit", 5 * time.Second, 5 * time.Second},
		{"default", 0, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewHTTPClient(tt.timeout)
			if err != nil {
				t.Fatalf("NewHTTPClient: %v", err)
			}
			if client.Timeout != tt.want {
				t.Errorf("Expected timeout %v, got %v", tt.want, client.Timeout)
			}
		})
	}
}
