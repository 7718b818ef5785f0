package toolcache

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/harun/toolhub/pkg/tool"
	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries as JSON strings with a Redis-side expiry.
// Keys are laid out as `<prefix>/toolcache/<orgID>/<fingerprint>`.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisCache creates a cache on the given client
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (c *RedisCache) key(orgID, fingerprint string) string {
	return path.Join(c.prefix, "toolcache", orgID, fingerprint)
}

// Find returns the live entry for the call
func (c *RedisCache) Find(ctx context.Context, toolName string, args map[string]interface{}, runID, orgID string) (*Entry, error) {
	fp, err := Fingerprint(toolName, args, runID, orgID)
	if err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, c.key(orgID, fp)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get cache entry from Redis")
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal cache entry")
	}
	if entry.Expired(c.now()) {
		return nil, nil
	}
	return &entry, nil
}

// Store writes the result with a Redis expiry of ttl
func (c *RedisCache) Store(ctx context.Context, toolName string, args map[string]interface{}, result tool.ToolResult, runID, orgID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	entry, err := newEntry(toolName, args, result, runID, orgID, ttl, c.now())
	if err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal cache entry")
	}

	if err := c.client.Set(ctx, c.key(orgID, entry.Fingerprint), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to store cache entry in Redis")
	}
	return nil
}
