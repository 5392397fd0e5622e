/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package slcstore persists versioned status list credential records with
// compare-and-set semantics on the sequence field.
package slcstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trustbloc/status/pkg/service/credentialstatus"
	"github.com/trustbloc/status/pkg/storage/mongodb"
	"github.com/trustbloc/status/pkg/storage/mongodb/internal"
)

const slcStoreName = "slc_store"

// Store manages SLC records in mongodb, keyed by status list ID.
type Store struct {
	mongoClient *mongodb.Client
}

// NewStore creates Store.
func NewStore(mongoClient *mongodb.Client) *Store {
	return &Store{mongoClient: mongoClient}
}

// Upsert writes wrapper at its sequence. Sequence 0 creates the record;
// sequence n replaces the record stored at n-1. Any lost race, a duplicate
// create or a stale sequence, returns credentialstatus.ErrConflict and leaves
// the stored record untouched.
func (p *Store) Upsert(ctx context.Context, wrapper *credentialstatus.SLCWrapper) error {
	mongoDBDocument, err := internal.PrepareDataForBSONStorage(wrapper)
	if err != nil {
		return fmt.Errorf("failed to prepare data for BSON storage: %w", err)
	}

	collection := p.mongoClient.Database().Collection(slcStoreName)

	if wrapper.Sequence == 0 {
		mongoDBDocument["_id"] = wrapper.StatusListID

		_, err = collection.InsertOne(ctx, mongoDBDocument)
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("status list %s already exists: %w",
				wrapper.StatusListID, credentialstatus.ErrConflict)
		}

		return err
	}

	result, err := collection.UpdateOne(ctx,
		bson.M{
			"_id":      wrapper.StatusListID,
			"sequence": wrapper.Sequence - 1,
		},
		bson.M{"$set": mongoDBDocument})
	if err != nil {
		return fmt.Errorf("SLC update failed: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("status list %s is not at sequence %d: %w",
			wrapper.StatusListID, wrapper.Sequence-1, credentialstatus.ErrConflict)
	}

	return nil
}

// Get returns the SLC record for statusListID, or
// credentialstatus.ErrDataNotFound.
func (p *Store) Get(ctx context.Context, statusListID string) (*credentialstatus.SLCWrapper, error) {
	collection := p.mongoClient.Database().Collection(slcStoreName)

	mongoDBDocument := map[string]interface{}{}

	err := collection.FindOne(ctx, bson.M{"_id": statusListID}).Decode(mongoDBDocument)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, credentialstatus.ErrDataNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("SLC find failed: %w", err)
	}

	delete(mongoDBDocument, "_id")

	wrapper := &credentialstatus.SLCWrapper{}

	err = mongodb.MapToStructure(mongoDBDocument, wrapper)
	if err != nil {
		return nil, fmt.Errorf("failed to decode to SLCWrapper: %w", err)
	}

	return wrapper, nil
}
