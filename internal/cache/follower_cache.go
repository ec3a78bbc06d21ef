package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FollowerCache keeps an ordered Redis List of follower ids per user so
// follower-page reads can be served with a single LRANGE instead of a
// paged SQL join. The list is rebuilt on miss and dropped on any
// follow/unfollow touching the user.
type FollowerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFollowerCache(client *redis.Client, ttl time.Duration) *FollowerCache {
	return &FollowerCache{client: client, ttl: ttl}
}

func indexKey(userID string) string { return fmt.Sprintf("followers:index:%s", userID) }

// Page returns follower ids for the given range. ok is false on a miss
// (or any Redis error — the caller falls through to the database).
func (c *FollowerCache) Page(ctx context.Context, userID string, offset, limit int) (ids []string, ok bool) {
	key := indexKey(userID)
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return nil, false
	}
	ids, err = c.client.LRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, false
	}
	return ids, true
}

// StoreIndex replaces the follower index with the full ordered id list.
// An empty list is cached too, so hot empty profiles don't hammer the DB.
func (c *FollowerCache) StoreIndex(ctx context.Context, userID string, ids []string) {
	key := indexKey(userID)
	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	if len(ids) > 0 {
		pipe.RPush(ctx, key, interfaceSlice(ids)...)
	} else {
		pipe.RPush(ctx, key, emptyMarker)
	}
	pipe.Expire(ctx, key, c.ttl)
	_, _ = pipe.Exec(ctx)
}

// Invalidate drops the index after a follow/unfollow touching userID.
func (c *FollowerCache) Invalidate(ctx context.Context, userID string) {
	_ = c.client.Del(ctx, indexKey(userID)).Err()
}

// emptyMarker keeps a list key alive for users with zero followers;
// Page strips it back out.
const emptyMarker = "\x00empty"

// StripEmpty removes the zero-follower marker from a cached page.
func StripEmpty(ids []string) []string {
	if len(ids) == 1 && ids[0] == emptyMarker {
		return nil
	}
	return ids
}

func interfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}
