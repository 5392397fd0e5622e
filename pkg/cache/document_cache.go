/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cache provides a read-through document cache with single-flight
// loading. Entries carry a bounded TTL, so a stale entry is only ever served
// for a bounded window; writers additionally invalidate eagerly.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/trustbloc/logutil-go/pkg/log"
	"golang.org/x/sync/singleflight"
)

var logger = log.New("document-cache")

// ErrCacheMiss is returned by Store.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

const defaultTTL = 30 * time.Second

// Store is a byte-oriented cache backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type metricsProvider interface {
	CacheHit()
	CacheMiss()
}

type noopMetrics struct{}

func (noopMetrics) CacheHit()  {}
func (noopMetrics) CacheMiss() {}

// DocumentCache caches serialized documents in front of a slower loader.
// Concurrent misses for the same key are collapsed into a single load.
type DocumentCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics metricsProvider
}

// Opt configures DocumentCache.
type Opt func(*DocumentCache)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) Opt {
	return func(c *DocumentCache) {
		c.ttl = ttl
	}
}

// WithMetrics wires cache hit/miss counters.
func WithMetrics(m metricsProvider) Opt {
	return func(c *DocumentCache) {
		c.metrics = m
	}
}

// New creates a DocumentCache over the given backend.
func New(store Store, opts ...Opt) *DocumentCache {
	c := &DocumentCache{
		store:   store,
		ttl:     defaultTTL,
		metrics: noopMetrics{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetOrLoad returns the cached document for key, loading and caching it on a
// miss. loadFn runs at most once per key across concurrent callers.
func (c *DocumentCache) GetOrLoad(ctx context.Context, key string,
	loadFn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if doc, err := c.store.Get(ctx, key); err == nil {
		c.metrics.CacheHit()

		return doc, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.Warnc(ctx, "Cache get failed", log.WithError(err))
	}

	c.metrics.CacheMiss()

	doc, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent flight may have populated the entry already.
		if cached, getErr := c.store.Get(ctx, key); getErr == nil {
			return cached, nil
		}

		loaded, loadErr := loadFn(ctx)
		if loadErr != nil {
			return nil, loadErr
		}

		if setErr := c.store.Set(ctx, key, loaded, c.ttl); setErr != nil {
			logger.Warnc(ctx, "Cache set failed", log.WithError(setErr))
		}

		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return doc.([]byte), nil
}

// Invalidate drops the entry for key.
func (c *DocumentCache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}
