package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheService_Remember(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cs := NewCacheService()
	cs.now = func() time.Time { return now }

	assert.True(t, cs.Remember("k", time.Minute))
	assert.False(t, cs.Remember("k", time.Minute))

	now = now.Add(time.Minute)
	assert.True(t, cs.Remember("k", time.Minute), "expired key is new again")

	cs.Delete("k")
	assert.True(t, cs.Remember("k", time.Minute))
}

func TestCacheService_EvictExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cs := NewCacheService()
	cs.now = func() time.Time { return now }

	cs.Remember("short", time.Second)
	cs.Remember("long", time.Hour)

	now = now.Add(time.Minute)
	cs.evictExpired()

	assert.Equal(t, 1, cs.Len())
	assert.False(t, cs.Remember("long", time.Hour))
}

func TestCacheService_RunStopsOnCancel(t *testing.T) {
	cs := NewCacheService()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		cs.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
