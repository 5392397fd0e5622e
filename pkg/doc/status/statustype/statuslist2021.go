/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package statustype

import (
	statusapi "github.com/trustbloc/status/pkg/doc/status"
)

const (
	// statusList2021VCType is the type of a Status List 2021 credential.
	// 	status list VC > Type
	statusList2021VCType = "StatusList2021Credential"
	// statusList2021EntryType is the type of a Status List 2021 entry.
	// 	tracked VC > Status > Type
	statusList2021EntryType = "StatusList2021Entry"
	// StatusList2021Context for StatusList2021.
	StatusList2021Context = "https://w3id.org/vc/status-list/2021/v1"
)

// statusList2021Processor implements Status List 2021.
// Spec: https://w3c-ccg.github.io/vc-status-list-2021/#statuslist2021credential
type statusList2021Processor struct {
	*listProcessor
}

// NewStatusList2021Processor returns new statusList2021Processor.
func NewStatusList2021Processor() *statusList2021Processor { //nolint:revive
	return &statusList2021Processor{
		listProcessor: &listProcessor{
			credentialType: statusList2021VCType,
			subjectType:    string(statusapi.StatusList2021),
			entryType:      statusList2021EntryType,
			context:        StatusList2021Context,
		},
	}
}
