package dialog

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, nil), mr
}

func TestRedisStore_LoadReturnsFreshStateWhenMissing(t *testing.T) {
	store, _ := newRedisStore(t)

	state, err := store.Load(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.ConversationID != "conv-1" || !state.IsEmpty() {
		t.Fatalf("expected fresh empty state, got %+v", state)
	}
}

func TestRedisStore_RoundTripWithTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	state := NewConversationState("conv-1")
	if err := state.Push("purchase", nil, 0); err != nil {
		t.Fatalf("push: %v", err)
	}
	state.Top().Status = FrameAwaitingReply
	state.Top().Prompt = PromptLocation

	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Top() == nil || loaded.Top().Prompt != PromptLocation {
		t.Fatalf("state did not survive the round trip: %+v", loaded)
	}

	if ttl := mr.TTL("dialog_state:conv-1"); ttl != stateTTL {
		t.Fatalf("expected state TTL %v, got %v", stateTTL, ttl)
	}
}

func TestRedisStore_ProfileRoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	profile, err := store.LoadProfile(ctx, "u-1")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil for unknown user, got %+v", profile)
	}

	if err := store.SaveProfile(ctx, &UserProfile{UserID: "u-1", Name: "Rafaela", Greeted: true}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	profile, err = store.LoadProfile(ctx, "u-1")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile == nil || !profile.Greeted {
		t.Fatalf("profile did not survive the round trip: %+v", profile)
	}

	// Profiles are durable.
	if ttl := mr.TTL("user_profile:u-1"); ttl != 0 {
		t.Fatalf("expected no TTL on profiles, got %v", ttl)
	}
}
