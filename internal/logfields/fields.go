/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logfields

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log Fields.
const (
	FieldConfigID        = "configID"
	FieldCredentialID    = "credentialID"
	FieldIndexAllocator  = "indexAllocator"
	FieldSequence        = "sequence"
	FieldStatusListID    = "statusListID"
	FieldStatusListIndex = "statusListIndex"
	FieldStatusPurpose   = "statusPurpose"
	FieldStatusType      = "statusType"
	FieldSuffix          = "suffix"
	FieldUpdateParams    = "updateParams"
)

// WithConfigID sets the ConfigID field.
func WithConfigID(configID string) zap.Field {
	return zap.String(FieldConfigID, configID)
}

// WithCredentialID sets the CredentialID field.
func WithCredentialID(credentialID string) zap.Field {
	return zap.String(FieldCredentialID, credentialID)
}

// WithIndexAllocator sets the IndexAllocator field.
func WithIndexAllocator(indexAllocator string) zap.Field {
	return zap.String(FieldIndexAllocator, indexAllocator)
}

// WithSequence sets the Sequence field.
func WithSequence(sequence int) zap.Field {
	return zap.Int(FieldSequence, sequence)
}

// WithStatusListID sets the StatusListID field.
func WithStatusListID(statusListID string) zap.Field {
	return zap.String(FieldStatusListID, statusListID)
}

// WithStatusListIndex sets the StatusListIndex field.
func WithStatusListIndex(statusListIndex string) zap.Field {
	return zap.String(FieldStatusListIndex, statusListIndex)
}

// WithStatusPurpose sets the StatusPurpose field.
func WithStatusPurpose(statusPurpose string) zap.Field {
	return zap.String(FieldStatusPurpose, statusPurpose)
}

// WithStatusType sets the StatusType field.
func WithStatusType(statusType string) zap.Field {
	return zap.String(FieldStatusType, statusType)
}

// WithSuffix sets the Suffix field.
func WithSuffix(suffix string) zap.Field {
	return zap.String(FieldSuffix, suffix)
}

// WithUpdateParams sets the UpdateParams field.
func WithUpdateParams(params interface{}) zap.Field {
	return zap.Inline(NewObjectMarshaller(FieldUpdateParams, params))
}

// ObjectMarshaller uses reflection to marshal an object's fields.
type ObjectMarshaller struct {
	key string
	obj interface{}
}

// NewObjectMarshaller returns a new ObjectMarshaller.
func NewObjectMarshaller(key string, obj interface{}) *ObjectMarshaller {
	return &ObjectMarshaller{key: key, obj: obj}
}

// MarshalLogObject marshals the object's fields.
func (m *ObjectMarshaller) MarshalLogObject(e zapcore.ObjectEncoder) error {
	return e.AddReflected(m.key, m.obj)
}
