// file: service/session_cache.go

package service

import (
	"context"
	"encoding/json"
	"go-auth-api/logger"
	"go-auth-api/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICacheClient defines the contract for a cache client.
// This abstraction decouples the SessionCache from a concrete Redis
// implementation, enabling easier testing and future flexibility.
type ICacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionCache holds the current token bundle per client session, keyed by an
// opaque session identifier. Every Set resets the idle TTL, so an entry lives
// as long as the session keeps being used.
type SessionCache struct {
	client  ICacheClient
	idleTTL time.Duration
}

func NewSessionCache(client ICacheClient, idleTTL time.Duration) *SessionCache {
	return &SessionCache{client: client, idleTTL: idleTTL}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// Get returns the cached entry for the session, or (nil, nil) when no entry
// exists.
func (c *SessionCache) Get(ctx context.Context, sessionID string) (*model.SessionEntry, error) {
	data, err := c.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	entry := &model.SessionEntry{}
	if err := json.Unmarshal([]byte(data), entry); err != nil {
		// A corrupt entry is useless; drop it and report a miss.
		logger.Log.WithError(err).WithField("session_id", sessionID).Warn("Dropping corrupt session cache entry")
		c.client.Del(ctx, sessionKey(sessionID))
		return nil, nil
	}
	return entry, nil
}

// Set overwrites the session's entry and resets its idle lifetime.
func (c *SessionCache) Set(ctx context.Context, sessionID string, entry *model.SessionEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(sessionID), data, c.idleTTL).Err()
}

// Clear removes the session's entry.
func (c *SessionCache) Clear(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, sessionKey(sessionID)).Err()
}
