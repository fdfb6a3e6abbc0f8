// internal/server/timeouts_test.go
//
// Run: go test ./internal/server -v

package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNew_WriteTimeoutFollowsAPI(t *testing.T) {
	if got := New(":0", http.NotFoundHandler(), time.Second).WriteTimeout; got != 15*time.Second {
		t.Fatalf("WriteTimeout = %s, want floor 15s", got)
	}
	if got := New(":0", http.NotFoundHandler(), 10*time.Second).WriteTimeout; got != 35*time.Second {
		t.Fatalf("WriteTimeout = %s, want 35s", got)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := New("127.0.0.1:0", http.NotFoundHandler(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, zap.NewNop().Sugar()) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
