/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package redis

import (
	"context"
	"fmt"
	"sync"

	redisclient "github.com/trustbloc/status/pkg/storage/redis"
)

// New returns a new redis health check. The client is connected on the first
// probe and reused afterwards; a probe that cannot connect reports the
// connection failure and the next probe retries.
func New(addrs []string, opts ...redisclient.ClientOpt) func(ctx context.Context) error {
	var (
		mu     sync.Mutex
		client *redisclient.Client
	)

	return func(ctx context.Context) error {
		mu.Lock()

		if client == nil {
			c, err := redisclient.New(addrs, opts...)
			if err != nil {
				mu.Unlock()

				return fmt.Errorf("failed to connect to redis: %w", err)
			}

			client = c
		}

		c := client

		mu.Unlock()

		if err := c.API().Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}

		return nil
	}
}
