package redis

import (
	"context"
	"testing"
	"time"

	"quiz-pipeline-service/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

func TestProfileCacheRoundTripAndExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	cache := NewProfileCache(newClient(mr), time.Minute, zerolog.Nop())
	profile := domain.PreferenceProfile{
		UserID:              "u1",
		PreferredCategories: []string{"go"},
		PreferredLevel:      domain.Advanced,
		TimeAvailability:    4,
		Version:             3,
	}
	cache.Set(ctx, profile)

	got, ok := cache.Get(ctx, "u1")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.Version != 3 || got.PreferredLevel != domain.Advanced || !got.HasCategory("go") {
		t.Fatalf("unexpected cached profile %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok := cache.Get(ctx, "u1"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestProfileCacheIgnoresOlderVersion(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	cache := NewProfileCache(newClient(mr), time.Minute, zerolog.Nop())

	// A save publishes version 5, then a reader that loaded version 4 earlier writes late.
	cache.Set(ctx, domain.PreferenceProfile{UserID: "u1", Version: 5, PreferredCategories: []string{"go"}})
	cache.Set(ctx, domain.PreferenceProfile{UserID: "u1", Version: 4})

	got, ok := cache.Get(ctx, "u1")
	if !ok || got.Version != 5 || !got.HasCategory("go") {
		t.Fatalf("stale write replaced cached profile: %+v", got)
	}

	cache.Set(ctx, domain.PreferenceProfile{UserID: "u1", Version: 6})
	if got, _ := cache.Get(ctx, "u1"); got.Version != 6 {
		t.Fatalf("expected version 6, got %d", got.Version)
	}
	if ttl := mr.TTL("profile:u1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl set, got %v", ttl)
	}
}
