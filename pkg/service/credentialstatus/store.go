/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credentialstatus

import (
	"context"

	"github.com/hyperledger/aries-framework-go/component/models/verifiable"
)

// SLCStore provides versioned persistence for SLC records keyed by status
// list ID.
type SLCStore interface {
	// Upsert writes wrapper at its Sequence. A write at sequence 0 creates
	// the record; a write at sequence n replaces the record only if the
	// stored sequence is n-1. Returns ErrConflict when the write lost the
	// race either way.
	Upsert(ctx context.Context, wrapper *SLCWrapper) error
	// Get returns the record for statusListID, or ErrDataNotFound.
	Get(ctx context.Context, statusListID string) (*SLCWrapper, error)
}

// MappingStore provides first-writer-wins persistence for credential-to-bit
// mappings keyed by (ConfigID, CredentialID, StatusPurpose).
type MappingStore interface {
	// Create inserts mapping, or returns ErrConflict when a mapping for the
	// same key already exists.
	Create(ctx context.Context, mapping *Mapping) error
	// Get returns the mapping for the key, or ErrDataNotFound.
	Get(ctx context.Context, configID, credentialID, statusPurpose string) (*Mapping, error)
}

// Issuer signs status list credentials on behalf of an instance. It owns key
// material, proof format selection and validity-window stamping.
type Issuer interface {
	Issue(ctx context.Context, instance *Instance,
		credential *verifiable.Credential) (*verifiable.Credential, error)
}
