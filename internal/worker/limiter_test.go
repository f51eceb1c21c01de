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

	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different key has its own bucket
	if err := limiter.Wait(ctx, "ollama"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	if len(limiter.limiters) != 2 {
		t.Errorf("expected 2 keyed limiters, got %d", len(limiter.limiters))
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("mock") {
			t.Fatalf("call %d denied by unlimited limiter", i)
		}
	}
}

func TestLimiter_NilIsNoop(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "any"); err != nil {
		t.Errorf("nil limiter wait failed: %v", err)
	}
	if !limiter.Allow("any") {
		t.Error("nil limiter should allow")
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	limiter.Allow("slow") // drain the single token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "slow"); err == nil {
		t.Error("expected wait to fail on expired context")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.WaitWithDelay(ctx, "example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected at least 50ms delay, got %v", elapsed)
	}
}

func TestHostKey(t *testing.T) {
	host, err := HostKey("https://example.com:8080/story.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com:8080" {
		t.Errorf("expected example.com:8080, got %q", host)
	}
}
