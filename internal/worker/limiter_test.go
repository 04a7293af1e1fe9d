package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://localhost:8000/v1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different endpoint has its own bucket
	if err := limiter.Wait(ctx, "https://api.anthropic.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(0.5, 1)
	endpoint := "http://vlm.internal:8000/v1"

	if err := limiter.Wait(context.Background(), endpoint); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, endpoint); err == nil {
		t.Error("expected wait to fail once the context expires")
	}
}

// tryWait reports whether a token is available without blocking for it
func tryWait(l *Limiter, endpoint string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	return l.Wait(ctx, endpoint) == nil
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	endpoint := "http://localhost:8000/v1"

	if err := limiter.Wait(context.Background(), endpoint); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst 1 is consumed; paths on the same host share the bucket
	if tryWait(limiter, endpoint+"/chat/completions") {
		t.Errorf("expected wait to fail (exhausted tokens)")
	}

	if !tryWait(limiter, "http://localhost:11434") {
		t.Errorf("expected wait to pass for another endpoint")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !tryWait(limiter, "http://localhost:8000") {
			t.Fatalf("request %d throttled by an unlimited limiter", i)
		}
	}
}

func TestEndpointKey(t *testing.T) {
	key, err := endpointKey("http://localhost:8000/v1")
	if err != nil {
		t.Fatalf("endpointKey failed: %v", err)
	}
	if key != "localhost:8000" {
		t.Errorf("expected localhost:8000, got %s", key)
	}

	if _, err := endpointKey("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
