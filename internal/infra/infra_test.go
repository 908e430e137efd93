package infra

import (
	"context"
	"testing"
	"time"
)

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2025, 1, 14, 9, 30, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("balance", "CNY 110.00")
	if v, ok := c.Get("balance"); !ok || v.(string) != "CNY 110.00" {
		t.Fatalf("Get = %v, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("balance"); ok {
		t.Error("entry should have expired")
	}
	c.Cleanup()
	if c.Len() != 0 {
		t.Errorf("Len after Cleanup = %d", c.Len())
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.SetWithTTL("b", 2, time.Hour)
	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("invalidated key still present")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("other key should survive, got %v %v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len after Invalidate = %d", c.Len())
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(3)
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow() {
		t.Error("fourth request within the minute should be limited")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait should fail when the deadline is shorter than the refill")
	}
}

func TestNilRateLimiterNeverLimits(t *testing.T) {
	rl := NewRateLimiter(0)
	if rl != nil {
		t.Fatal("zero rate should disable limiting")
	}
	for i := 0; i < 100; i++ {
		if !rl.Allow() {
			t.Fatal("nil limiter should always allow")
		}
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v", err)
	}
}
