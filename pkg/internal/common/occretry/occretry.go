/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package occretry retries operations that fail on optimistic-concurrency
// conflicts. Conflicts are transient by construction, so the default policy
// retries them indefinitely with exponential backoff until the context is
// cancelled; every other error is terminal.
package occretry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultInitialInterval = 10 * time.Millisecond
	defaultMaxInterval     = 500 * time.Millisecond
)

type options struct {
	newBackOff func() backoff.BackOff
}

// Opt configures Do.
type Opt func(*options)

// WithBackOffFactory overrides the backoff policy. The factory is invoked once
// per Do call so policies are never shared between concurrent callers.
func WithBackOffFactory(factory func() backoff.BackOff) Opt {
	return func(o *options) {
		o.newBackOff = factory
	}
}

// Do invokes op until it succeeds, fails with an error isConflict rejects, or
// ctx is done. Each attempt is expected to re-read whatever state it mutates.
func Do(ctx context.Context, op func(ctx context.Context) error,
	isConflict func(error) bool, opts ...Opt) error {
	o := &options{
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = defaultInitialInterval
			b.MaxInterval = defaultMaxInterval
			b.MaxElapsedTime = 0

			return b
		},
	}

	for _, opt := range opts {
		opt(o)
	}

	return backoff.Retry(func() error {
		err := op(ctx)
		if err != nil && !isConflict(err) {
			return backoff.Permanent(err)
		}

		return err
	}, backoff.WithContext(o.newBackOff(), ctx))
}
