package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// stateTTL is storage hygiene, not a conversation timeout: an untouched
// prompt stays resumable until eviction.
const stateTTL = 30 * 24 * time.Hour

// RedisStore persists dialog state and user profiles as JSON blobs in Redis.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

var _ Store = (*RedisStore)(nil)
var _ ProfileStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("dialog: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("medy.internal.dialog.store")
	}
	return &RedisStore{
		redis:  client,
		tracer: tracer,
	}
}

func stateKey(conversationID string) string {
	return fmt.Sprintf("dialog_state:%s", conversationID)
}

func profileKey(userID string) string {
	return fmt.Sprintf("user_profile:%s", userID)
}

func (s *RedisStore) Load(ctx context.Context, conversationID string) (*ConversationState, error) {
	ctx, span := s.tracer.Start(ctx, "dialog.load_state")
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(conversationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return NewConversationState(conversationID), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("dialog: failed to load state: %w", err)
	}

	var state ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("dialog: failed to decode state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, state *ConversationState) error {
	ctx, span := s.tracer.Start(ctx, "dialog.save_state")
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("dialog: failed to encode state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(state.ConversationID), data, stateTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("dialog: failed to persist state: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadProfile(ctx context.Context, userID string) (*UserProfile, error) {
	ctx, span := s.tracer.Start(ctx, "dialog.load_profile")
	defer span.End()

	data, err := s.redis.Get(ctx, profileKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("dialog: failed to load profile: %w", err)
	}

	var profile UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("dialog: failed to decode profile: %w", err)
	}
	return &profile, nil
}

func (s *RedisStore) SaveProfile(ctx context.Context, profile *UserProfile) error {
	ctx, span := s.tracer.Start(ctx, "dialog.save_profile")
	defer span.End()

	data, err := json.Marshal(profile)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("dialog: failed to encode profile: %w", err)
	}
	// Profiles are durable; no TTL.
	if err := s.redis.Set(ctx, profileKey(profile.UserID), data, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("dialog: failed to persist profile: %w", err)
	}
	return nil
}
