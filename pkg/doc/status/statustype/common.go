/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package statustype provides the processors for the supported status list
// types. The supported set is closed: adding a type means adding a processor
// and a case to GetProcessor.
package statustype

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	utiltime "github.com/hyperledger/aries-framework-go/component/models/util/time"
	"github.com/hyperledger/aries-framework-go/component/models/verifiable"
	"github.com/multiformats/go-multibase"

	"github.com/trustbloc/status/pkg/doc/status/bitstring"
)

const (
	// DefVCContext is the default verifiable credential context.
	DefVCContext = "https://www.w3.org/2018/credentials/v1"

	// StatusListIndex identifies the bit position of the status value.
	//  VC > Status > CustomFields key.
	StatusListIndex = "statusListIndex"
	// StatusListCredential stores the link to the status list credential.
	//  VC > Status > CustomFields key.
	StatusListCredential = "statusListCredential"
	// StatusPurpose is the purpose axis of the status entry.
	//  VC > Status > CustomFields key.
	StatusPurpose = "statusPurpose"

	// StatusPurposeRevocation is the revocation status purpose.
	StatusPurposeRevocation = "revocation"
	// StatusPurposeSuspension is the suspension status purpose.
	StatusPurposeSuspension = "suspension"

	encodedList = "encodedList"
	vcType      = "VerifiableCredential"
)

type credentialSubject struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	StatusPurpose string `json:"statusPurpose,omitempty"`
	EncodedList   string `json:"encodedList"`
}

func toVerifiableSubject(subject credentialSubject) []verifiable.Subject {
	vcSub := verifiable.Subject{
		ID: subject.ID,
		CustomFields: verifiable.CustomFields{
			"type":        subject.Type,
			"encodedList": subject.EncodedList,
		},
	}
	if subject.StatusPurpose != "" {
		vcSub.CustomFields["statusPurpose"] = subject.StatusPurpose
	}

	return []verifiable.Subject{vcSub}
}

// listProcessor implements the rules shared by the supported status list
// types; the exported constructors configure it per type.
type listProcessor struct {
	credentialType    string
	subjectType       string
	entryType         string
	context           string
	multibaseEncoding multibase.Encoding
}

// CredentialType returns the list credential's type value.
func (p *listProcessor) CredentialType() string {
	return p.credentialType
}

// SubjectType returns the list credential's subject type value.
func (p *listProcessor) SubjectType() string {
	return p.subjectType
}

// EntryType returns the credentialStatus entry type implied by the list type.
func (p *listProcessor) EntryType() string {
	return p.entryType
}

// ListContext returns the context to add to a list credential.
func (p *listProcessor) ListContext() string {
	return p.context
}

// CreateListCredential builds an unsigned list credential embedding an
// all-false bitstring of the given length. The issuer and validity window are
// the signing collaborator's to fill in.
func (p *listProcessor) CreateListCredential(listVCID string, length int,
	statusPurpose string) (*verifiable.Credential, error) {
	encodeBits, err := bitstring.NewBitString(length, p.bitstringOpts()...).EncodeBits()
	if err != nil {
		return nil, err
	}

	credential := &verifiable.Credential{}
	credential.Context = []string{DefVCContext, p.context}
	credential.ID = listVCID
	credential.Types = []string{vcType, p.credentialType}
	credential.Issued = utiltime.NewTime(time.Now().UTC())
	credential.Subject = toVerifiableSubject(credentialSubject{
		ID:            listVCID + "#list",
		Type:          p.subjectType,
		StatusPurpose: statusPurpose,
		EncodedList:   encodeBits,
	})

	return credential, nil
}

// CreateStatusEntry builds the credentialStatus entry pointing at the given
// bit of the given list.
func (p *listProcessor) CreateStatusEntry(index, listVCID, statusPurpose string) *verifiable.TypedID {
	return &verifiable.TypedID{
		ID:   uuid.New().URN(),
		Type: p.entryType,
		CustomFields: verifiable.CustomFields{
			StatusPurpose:        statusPurpose,
			StatusListIndex:      index,
			StatusListCredential: listVCID,
		},
	}
}

// ValidateEntry validates a credentialStatus entry.
func (p *listProcessor) ValidateEntry(entry *verifiable.TypedID) error {
	if entry == nil {
		return fmt.Errorf("status entry not found")
	}

	if entry.Type != p.entryType {
		return fmt.Errorf("status entry type %s not supported", entry.Type)
	}

	if entry.CustomFields[StatusListIndex] == nil {
		return fmt.Errorf("%s field not found in status entry", StatusListIndex)
	}

	if entry.CustomFields[StatusListCredential] == nil {
		return fmt.Errorf("%s field not found in status entry", StatusListCredential)
	}

	purpose, ok := entry.CustomFields[StatusPurpose].(string)
	if !ok {
		return fmt.Errorf("%s field not found in status entry", StatusPurpose)
	}

	switch purpose {
	case StatusPurposeRevocation, StatusPurposeSuspension:
		return nil
	default:
		return fmt.Errorf("%s is an unsupported statusPurpose", purpose)
	}
}

// DecodeList decodes a list credential's embedded bitstring.
func (p *listProcessor) DecodeList(credential *verifiable.Credential) (*bitstring.BitString, error) {
	subject, err := listSubject(credential)
	if err != nil {
		return nil, err
	}

	encoded, ok := subject.CustomFields[encodedList].(string)
	if !ok {
		return nil, fmt.Errorf("%s field not found in status list subject", encodedList)
	}

	bits, err := bitstring.DecodeBits(encoded, p.bitstringOpts()...)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", encodedList, err)
	}

	return bits, nil
}

// UpdateList re-encodes the bitstring into the list credential.
func (p *listProcessor) UpdateList(credential *verifiable.Credential, bits *bitstring.BitString) error {
	subject, err := listSubject(credential)
	if err != nil {
		return err
	}

	encoded, err := bits.EncodeBits()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", encodedList, err)
	}

	subject.CustomFields[encodedList] = encoded

	return nil
}

func (p *listProcessor) bitstringOpts() []bitstring.Opt {
	if p.multibaseEncoding == multibase.Encoding(0) {
		return nil
	}

	return []bitstring.Opt{bitstring.WithMultibaseEncoding(p.multibaseEncoding)}
}

func listSubject(credential *verifiable.Credential) (*verifiable.Subject, error) {
	subjects, ok := credential.Subject.([]verifiable.Subject)
	if !ok || len(subjects) == 0 {
		return nil, fmt.Errorf("failed to cast status list subject")
	}

	return &subjects[0], nil
}
