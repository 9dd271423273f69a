// Package repository contains the repository layer for the Marketplace API
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionNetIDKeyPrefix = "session:netid:"

// SessionStateRepository records the netid of a logged-in user in Redis.
// This is a secondary, non-authoritative signal; the bearer token is what
// gates API access.
type SessionStateRepository struct {
	redisClient *redis.Client
}

// NewSessionStateRepository creates a new session state repository
func NewSessionStateRepository(redisClient *redis.Client) *SessionStateRepository {
	return &SessionStateRepository{redisClient: redisClient}
}

// SetNetID stores the netid for a user id with the given TTL
func (r *SessionStateRepository) SetNetID(ctx context.Context, userID uint, netid string, ttl time.Duration) error {
	key := fmt.Sprintf("%s%d", sessionNetIDKeyPrefix, userID)
	return r.redisClient.Set(ctx, key, netid, ttl).Err()
}

// GetNetID returns the stored netid for a user id, or "" when absent
func (r *SessionStateRepository) GetNetID(ctx context.Context, userID uint) (string, error) {
	key := fmt.Sprintf("%s%d", sessionNetIDKeyPrefix, userID)
	netid, err := r.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return netid, nil
}

// ClearNetID removes the stored netid for a user id
func (r *SessionStateRepository) ClearNetID(ctx context.Context, userID uint) error {
	key := fmt.Sprintf("%s%d", sessionNetIDKeyPrefix, userID)
	return r.redisClient.Del(ctx, key).Err()
}
