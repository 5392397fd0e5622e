/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mappingstore persists credential-to-bit mappings. Mappings are
// write-once: the unique index on the key makes concurrent allocation a
// first-writer-wins race.
package mappingstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trustbloc/status/pkg/service/credentialstatus"
	"github.com/trustbloc/status/pkg/storage/mongodb"
	"github.com/trustbloc/status/pkg/storage/mongodb/internal"
)

const (
	mappingStoreName = "credential_status_mapping"

	configIDFieldName      = "configId"
	credentialIDFieldName  = "credentialId"
	statusPurposeFieldName = "statusPurpose"
	sequenceFieldName      = "sequence"
)

// Store manages credential status mappings in mongodb.
type Store struct {
	mongoClient *mongodb.Client
}

// NewStore creates Store.
func NewStore(mongoClient *mongodb.Client) (*Store, error) {
	s := &Store{mongoClient: mongoClient}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (p *Store) migrate() error {
	ctxWithTimeout, cancel := p.mongoClient.ContextWithTimeout()
	defer cancel()

	if _, err := p.mongoClient.Database().Collection(mappingStoreName).Indexes().
		CreateMany(ctxWithTimeout, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: configIDFieldName, Value: 1},
					{Key: credentialIDFieldName, Value: 1},
					{Key: statusPurposeFieldName, Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		}); err != nil {
		return err
	}

	return nil
}

// Create inserts mapping. A mapping already stored under the same
// (configID, credentialID, statusPurpose) key returns
// credentialstatus.ErrConflict; the stored mapping is never replaced.
func (p *Store) Create(ctx context.Context, mapping *credentialstatus.Mapping) error {
	mongoDBDocument, err := internal.PrepareDataForBSONStorage(mapping)
	if err != nil {
		return fmt.Errorf("failed to prepare data for BSON storage: %w", err)
	}

	collection := p.mongoClient.Database().Collection(mappingStoreName)

	_, err = collection.InsertOne(ctx, mongoDBDocument)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("mapping for credential %s already exists: %w",
			mapping.CredentialID, credentialstatus.ErrConflict)
	}

	return err
}

// Update replaces the stored mapping at mapping.Sequence. The write succeeds
// only against a record currently at mapping.Sequence-1; anything else returns
// credentialstatus.ErrConflict. The status subsystem treats mappings as
// immutable and only ever calls Create; Update keeps the store's write
// contract aligned with the SLC store.
func (p *Store) Update(ctx context.Context, mapping *credentialstatus.Mapping) error {
	mongoDBDocument, err := internal.PrepareDataForBSONStorage(mapping)
	if err != nil {
		return fmt.Errorf("failed to prepare data for BSON storage: %w", err)
	}

	collection := p.mongoClient.Database().Collection(mappingStoreName)

	result, err := collection.UpdateOne(ctx,
		bson.D{
			{Key: configIDFieldName, Value: mapping.ConfigID},
			{Key: credentialIDFieldName, Value: mapping.CredentialID},
			{Key: statusPurposeFieldName, Value: mapping.StatusPurpose},
			{Key: sequenceFieldName, Value: mapping.Sequence - 1},
		},
		bson.M{"$set": mongoDBDocument})
	if err != nil {
		return fmt.Errorf("mapping update failed: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("mapping for credential %s is not at sequence %d: %w",
			mapping.CredentialID, mapping.Sequence-1, credentialstatus.ErrConflict)
	}

	return nil
}

// Get returns the mapping for the key, or credentialstatus.ErrDataNotFound.
func (p *Store) Get(ctx context.Context, configID, credentialID,
	statusPurpose string) (*credentialstatus.Mapping, error) {
	collection := p.mongoClient.Database().Collection(mappingStoreName)

	mongoDBDocument := map[string]interface{}{}

	err := collection.FindOne(ctx, bson.D{
		{Key: configIDFieldName, Value: configID},
		{Key: credentialIDFieldName, Value: credentialID},
		{Key: statusPurposeFieldName, Value: statusPurpose},
	}).Decode(mongoDBDocument)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, credentialstatus.ErrDataNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("mapping find failed: %w", err)
	}

	delete(mongoDBDocument, "_id")

	mapping := &credentialstatus.Mapping{}

	err = mongodb.MapToStructure(mongoDBDocument, mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to decode to Mapping: %w", err)
	}

	return mapping, nil
}
