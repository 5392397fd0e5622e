/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// New returns a new mongodb health check.
func New(connString string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(connString))
		if err != nil {
			return fmt.Errorf("failed to connect to mongodb: %w", err)
		}

		defer func() {
			_ = client.Disconnect(ctx) //nolint:errcheck
		}()

		if err = client.Ping(ctx, nil); err != nil {
			return fmt.Errorf("failed to ping mongodb: %w", err)
		}

		return nil
	}
}
