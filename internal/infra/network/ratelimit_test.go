package network

import (
	"testing"
	"time"
)

func TestTokenBucketBurstAndRefill(t *testing.T) {
	b := NewTokenBucket(2, 10) // 10 tokens/s
	now := time.Now()

	if !b.Allow(now) || !b.Allow(now) {
		t.Fatalf("burst capacity should allow 2 immediate attempts")
	}
	if b.Allow(now) {
		t.Fatalf("empty bucket must deny")
	}
	if !b.Allow(now.Add(200 * time.Millisecond)) {
		t.Fatalf("bucket should refill over time")
	}
}

func TestTokenBucketCapsAtCapacity(t *testing.T) {
	b := NewTokenBucket(1, 100)
	now := time.Now()
	_ = b.Allow(now)

	// a long idle period must not accumulate more than capacity
	later := now.Add(time.Hour)
	if !b.Allow(later) {
		t.Fatalf("refilled bucket must allow")
	}
	if b.Allow(later) {
		t.Fatalf("capacity 1 bucket allowed twice in the same instant")
	}
}
