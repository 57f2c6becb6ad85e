package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const preferencesNamespace = "notif:prefs"

// NewRedisClient creates a redis client for a single node
func NewRedisClient(addr, password string, db int) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// PreferenceCache keeps effective user preferences in redis so detector
// sweeps do not hit Mongo once per candidate
type PreferenceCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewPreferenceCache creates a new preference cache
func NewPreferenceCache(client redis.UniversalClient, ttl time.Duration) *PreferenceCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PreferenceCache{client: client, ttl: ttl}
}

func preferencesKey(userID primitive.ObjectID) string {
	return preferencesNamespace + ":" + userID.Hex()
}

// Get returns the cached preferences and whether there was a hit
func (c *PreferenceCache) Get(ctx context.Context, userID primitive.ObjectID) (*domain.NotificationPreferences, bool, error) {
	raw, err := c.client.Get(ctx, preferencesKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var prefs domain.NotificationPreferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		// a corrupt entry is treated as a miss and overwritten on the next Set
		return nil, false, nil
	}
	return &prefs, true, nil
}

// Set stores preferences for the configured TTL
func (c *PreferenceCache) Set(ctx context.Context, prefs *domain.NotificationPreferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, preferencesKey(prefs.UserID), raw, c.ttl).Err()
}

// Invalidate drops the cached preferences of a user
func (c *PreferenceCache) Invalidate(ctx context.Context, userID primitive.ObjectID) error {
	return c.client.Del(ctx, preferencesKey(userID)).Err()
}

// Ping checks the redis connection
func (c *PreferenceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (c *PreferenceCache) Close() error {
	return c.client.Close()
}
