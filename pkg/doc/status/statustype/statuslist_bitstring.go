/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package statustype

import (
	"github.com/multiformats/go-multibase"

	statusapi "github.com/trustbloc/status/pkg/doc/status"
)

const (
	// bitstringStatusListVCType is the type of a Bitstring Status List credential.
	// 	status list VC > Type
	bitstringStatusListVCType = "BitstringStatusListCredential"
	// bitstringStatusListEntryType is the type of a Bitstring Status List entry.
	// 	tracked VC > Status > Type
	bitstringStatusListEntryType = "BitstringStatusListEntry"
	// BitstringStatusListContext for BitstringStatusList.
	BitstringStatusListContext = "https://www.w3.org/ns/credentials/v2"
)

// bitstringStatusListProcessor implements the Bitstring Status List.
// Spec: https://www.w3.org/TR/vc-bitstring-status-list/
type bitstringStatusListProcessor struct {
	*listProcessor
}

// NewBitstringStatusListProcessor returns new bitstringStatusListProcessor.
func NewBitstringStatusListProcessor() *bitstringStatusListProcessor { //nolint:revive
	return &bitstringStatusListProcessor{
		listProcessor: &listProcessor{
			credentialType:    bitstringStatusListVCType,
			subjectType:       string(statusapi.BitstringStatusList),
			entryType:         bitstringStatusListEntryType,
			context:           BitstringStatusListContext,
			multibaseEncoding: multibase.Base64url,
		},
	}
}
