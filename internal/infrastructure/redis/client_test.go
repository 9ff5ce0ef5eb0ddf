package redis

import (
	"context"
	"fmt"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)

	ctx := context.Background()
	client, err := NewClient(ctx, fmt.Sprintf("redis://%s/2", s.Addr()))
	if err != nil {
		t.Fatalf("expected client, got error: %v", err)
	}
	defer client.Close()

	if got := client.Options().DB; got != 2 {
		t.Fatalf("expected database 2 from the url, got %d", got)
	}

	// Idempotency keys and the score cache share this client.
	if err := client.Set(ctx, "idem:req-1", "pending", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Select(2)
	if got, _ := s.Get("idem:req-1"); got != "pending" {
		t.Fatalf("expected key written to database 2, got %q", got)
	}
}

func TestNewClientErrors(t *testing.T) {
	down := miniredis.RunT(t)
	downURL := fmt.Sprintf("redis://%s", down.Addr())
	down.Close()

	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{name: "malformed url", url: "://bad-url", wantErr: "parse redis URL"},
		{name: "server down", url: downURL, wantErr: "ping redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tt.url)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
