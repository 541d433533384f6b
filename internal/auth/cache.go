package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AccessCache is the explicit cache contract for resolved global access.
// Invalidation is point-wise: by principal for membership changes, by role
// for permission-set changes. Reads of unrelated principals are never
// blocked by an invalidation.
type AccessCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*Access, bool, error)
	Set(ctx context.Context, userID uuid.UUID, access Access) error
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
	InvalidateRole(ctx context.Context, role string) error
}

type redisAccessCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAccessCache(client *redis.Client, ttl time.Duration) AccessCache {
	return &redisAccessCache{client: client, ttl: ttl}
}

func (c *redisAccessCache) Get(ctx context.Context, userID uuid.UUID) (*Access, bool, error) {
	val, err := c.client.Get(ctx, accessKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var access Access
	if err := json.Unmarshal([]byte(val), &access); err != nil {
		return nil, false, fmt.Errorf("decode cached access: %w", err)
	}
	return &access, true, nil
}

// Set stores the resolved access and indexes the principal under each of its
// roles so a role-level invalidation can find every affected entry.
func (c *redisAccessCache) Set(ctx context.Context, userID uuid.UUID, access Access) error {
	payload, err := json.Marshal(access)
	if err != nil {
		return fmt.Errorf("encode access: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, accessKey(userID), payload, c.ttl)
	for _, role := range access.Roles {
		pipe.SAdd(ctx, roleMembersKey(role), userID.String())
		pipe.Expire(ctx, roleMembersKey(role), c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *redisAccessCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, accessKey(userID)).Err()
}

func (c *redisAccessCache) InvalidateRole(ctx context.Context, role string) error {
	members, err := c.client.SMembers(ctx, roleMembersKey(role)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		keys = append(keys, accessKey(id))
	}
	keys = append(keys, roleMembersKey(role))
	return c.client.Del(ctx, keys...).Err()
}

func accessKey(userID uuid.UUID) string {
	return fmt.Sprintf("acl:user:%s", userID)
}

func roleMembersKey(role string) string {
	return fmt.Sprintf("acl:role:%s", role)
}
