/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"github.com/hyperledger/aries-framework-go/component/models/verifiable"

	"github.com/trustbloc/status/pkg/doc/status/bitstring"
)

// ListType identifies the status list scheme a status list credential follows.
// Field verifiable.Credential > Subject > Type.
type ListType string

const (
	// BitstringStatusList represents the Bitstring Status List scheme.
	// 	Doc: https://www.w3.org/TR/vc-bitstring-status-list/
	BitstringStatusList ListType = "BitstringStatusList"

	// StatusList2021 represents the Status List 2021 scheme.
	// 	Doc: https://w3c-ccg.github.io/vc-status-list-2021/
	StatusList2021 ListType = "StatusList2021"
)

// Processor holds the encoding and validation rules of one supported status
// list type. The set of processors is fixed; unknown types are rejected at the
// lookup table.
type Processor interface {
	// CredentialType returns the list credential's type value.
	CredentialType() string
	// SubjectType returns the list credential's subject type value.
	SubjectType() string
	// EntryType returns the credentialStatus entry type implied by the list type.
	EntryType() string
	// ListContext returns the context to add to a list credential.
	ListContext() string
	// CreateListCredential builds an unsigned list credential with an all-false
	// bitstring of the given length.
	CreateListCredential(listVCID string, length int, statusPurpose string) (*verifiable.Credential, error)
	// CreateStatusEntry builds the credentialStatus entry pointing at the given
	// bit of the given list.
	CreateStatusEntry(index, listVCID, statusPurpose string) *verifiable.TypedID
	// ValidateEntry validates a credentialStatus entry.
	ValidateEntry(entry *verifiable.TypedID) error
	// DecodeList decodes a list credential's embedded bitstring.
	DecodeList(credential *verifiable.Credential) (*bitstring.BitString, error)
	// UpdateList re-encodes the bitstring into the list credential.
	UpdateList(credential *verifiable.Credential, bits *bitstring.BitString) error
}
