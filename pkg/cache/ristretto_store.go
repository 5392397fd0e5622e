/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultBufferItems         = 64
	ristrettoCounterMultiplier = 10 // ~10x capacity is a common guideline
)

// RistrettoStore is an in-process Store backed by ristretto, sized by item
// count with unit cost per entry.
type RistrettoStore struct {
	cache *ristretto.Cache
}

// NewRistrettoStore creates a RistrettoStore holding up to maxItems entries.
func NewRistrettoStore(maxItems int64) (*RistrettoStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxItems * ristrettoCounterMultiplier,
		MaxCost:            maxItems,
		BufferItems:        defaultBufferItems,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoStore{cache: cache}, nil
}

func (s *RistrettoStore) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}

	return value.([]byte), nil
}

func (s *RistrettoStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.SetWithTTL(key, value, 1, ttl)
	// Ristretto applies writes asynchronously; wait so a subsequent Get
	// observes the entry.
	s.cache.Wait()

	return nil
}

func (s *RistrettoStore) Delete(_ context.Context, key string) error {
	s.cache.Del(key)
	s.cache.Wait()

	return nil
}

// Close releases the cache's internal resources.
func (s *RistrettoStore) Close() {
	s.cache.Close()
}
