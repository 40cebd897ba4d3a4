// Package session keeps login tokens in the secondary key-value store.
// Tokens are opaque, expire on their own, and are rebuildable by logging in
// again — nothing in the inventory core reads them for correctness.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homecrate/homecrate/internal/circuitbreaker"
	"github.com/homecrate/homecrate/internal/ident"
)

const keyPrefix = "session:"

// Store issues and verifies session tokens backed by Redis. All calls go
// through a circuit breaker so a dead Redis fails fast instead of stalling
// every request on dial timeouts.
type Store struct {
	client  *redis.Client
	breaker *circuitbreaker.Breaker
	ttl     time.Duration
}

func NewStore(client *redis.Client, breaker *circuitbreaker.Breaker, ttl time.Duration) *Store {
	return &Store{client: client, breaker: breaker, ttl: ttl}
}

// Create issues a fresh token valid for the configured TTL.
func (s *Store) Create(ctx context.Context) (string, error) {
	token := ident.New().String()
	err := s.breaker.Execute(func() error {
		return s.client.Set(ctx, keyPrefix+token, 1, s.ttl).Err()
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Verify reports whether the token names a live session. Each successful
// verification refreshes the TTL, giving browser-session semantics.
func (s *Store) Verify(ctx context.Context, token string) (bool, error) {
	var ok bool
	err := s.breaker.Execute(func() error {
		found, err := s.client.Expire(ctx, keyPrefix+token, s.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		ok = found
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("verify session: %w", err)
	}
	return ok, nil
}

// Delete revokes the token. Deleting an unknown token is not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	err := s.breaker.Execute(func() error {
		return s.client.Del(ctx, keyPrefix+token).Err()
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
