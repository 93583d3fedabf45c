package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists conversation contexts in Redis so that a process
// restart does not silently drop every in-flight dialogue. Entries expire
// after ttl; an expired entry reads back as idle.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(actorID int64) string {
	return fmt.Sprintf("session:%d", actorID)
}

func (r *RedisStore) Get(ctx context.Context, actorID int64) (*State, error) {
	raw, err := r.client.Get(ctx, sessionKey(actorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &State{Mode: ModeIdle}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt entry is treated as absent rather than wedging the actor.
		return &State{Mode: ModeIdle}, nil
	}
	return &state, nil
}

func (r *RedisStore) Put(ctx context.Context, actorID int64, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(actorID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, actorID int64) error {
	if err := r.client.Del(ctx, sessionKey(actorID)).Err(); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}
