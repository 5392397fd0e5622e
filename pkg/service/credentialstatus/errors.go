/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credentialstatus

import (
	"errors"
	"fmt"
)

// ErrDataNotFound is returned when the requested SLC record or mapping does
// not exist.
var ErrDataNotFound = errors.New("data not found")

// ErrConflict is returned by stores when an optimistic-concurrency write lost
// the race: the record's sequence moved, or another writer created the record
// first. The write had no effect.
var ErrConflict = errors.New("document sequence conflict")

// DataError indicates invalid caller input. It is terminal; retrying the same
// call cannot succeed.
type DataError struct {
	Err error
}

// NewDataError wraps err as a DataError.
func NewDataError(err error) *DataError {
	return &DataError{Err: err}
}

// NewDataErrorf formats a new DataError.
func NewDataErrorf(format string, args ...interface{}) *DataError {
	return &DataError{Err: fmt.Errorf(format, args...)}
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error: %s", e.Err.Error())
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// IsDataError reports whether err is (or wraps) a DataError.
func IsDataError(err error) bool {
	var de *DataError

	return errors.As(err, &de)
}

// NotSupportedError indicates an unsupported status list type.
type NotSupportedError struct {
	ListType string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("status list type %s is not supported", e.ListType)
}
