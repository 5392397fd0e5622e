/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package statustype

import (
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/models/verifiable"

	statusapi "github.com/trustbloc/status/pkg/doc/status"
)

// GetProcessor returns the statusapi.Processor for the given list type.
// The mapping is the fixed list-type to entry-type table: unknown types are
// rejected here and nowhere else.
func GetProcessor(listType statusapi.ListType) (statusapi.Processor, error) {
	switch listType {
	case statusapi.BitstringStatusList:
		return NewBitstringStatusListProcessor(), nil
	case statusapi.StatusList2021:
		return NewStatusList2021Processor(), nil
	default:
		return nil, fmt.Errorf("unsupported status list type %s", listType)
	}
}

// ListTypeOf returns the status list type declared by the credential's
// subject.
func ListTypeOf(credential *verifiable.Credential) (statusapi.ListType, error) {
	subject, err := listSubject(credential)
	if err != nil {
		return "", err
	}

	subjectType, ok := subject.CustomFields["type"].(string)
	if !ok {
		return "", fmt.Errorf("type field not found in status list subject")
	}

	listType := statusapi.ListType(subjectType)

	if _, err = GetProcessor(listType); err != nil {
		return "", err
	}

	return listType, nil
}
