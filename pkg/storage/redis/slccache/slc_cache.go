/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package slccache caches serialized SLC records in Redis, for deployments
// where multiple service instances should share one cache.
package slccache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trustbloc/status/pkg/cache"
	redisclient "github.com/trustbloc/status/pkg/storage/redis"
)

const keyPrefix = "slc-"

// Cache implements the cache.Store backend contract over Redis.
type Cache struct {
	redisClient *redisclient.Client
}

// New creates Cache.
func New(redisClient *redisclient.Client) *Cache {
	return &Cache{redisClient: redisClient}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.redisClient.API().Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	return value, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.redisClient.API().Set(ctx, keyPrefix+key, value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.redisClient.API().Del(ctx, keyPrefix+key).Err()
}
