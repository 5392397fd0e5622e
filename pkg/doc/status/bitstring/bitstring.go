/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bitstring implements the compressed bitstring that backs a status
// list credential. Every bit holds the boolean status of one tracked
// credential for one status purpose.
package bitstring

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"

	"github.com/multiformats/go-multibase"
)

const (
	bitsPerByte = 8
	one         = 0x1
	bitOffset   = 7
)

// BitString is a gzip-compressed, base64url or multibase encoded bit array.
type BitString struct {
	bits              []byte
	multibaseEncoding multibase.Encoding
	bitPosition       func(position int) int
}

type Opt func(*options)

type options struct {
	multibaseEncoding multibase.Encoding
}

// WithMultibaseEncoding sets the multibase encoding.
func WithMultibaseEncoding(value multibase.Encoding) Opt {
	return func(options *options) {
		options.multibaseEncoding = value
	}
}

// NewBitString returns an all-false bitstring with the given number of bits.
func NewBitString(length int, opts ...Opt) *BitString {
	size := 1 + ((length - 1) / bitsPerByte)

	return newBitString(make([]byte, size), opts)
}

func newBitString(bits []byte, opts []Opt) *BitString {
	options := &options{}

	for _, opt := range opts {
		opt(options)
	}

	b := &BitString{
		bits:              bits,
		multibaseEncoding: options.multibaseEncoding,
	}

	if options.multibaseEncoding != multibase.Encoding(0) {
		// Multibase-encoded lists require bits to be set left-to-right.
		b.bitPosition = func(position int) int {
			return bitOffset - (position % bitsPerByte)
		}
	} else {
		// Plain base64url lists set bits right-to-left, matching the
		// original StatusList2021 encoding.
		b.bitPosition = func(position int) int {
			return position % bitsPerByte
		}
	}

	return b
}

// DecodeBits decodes an encoded list into a BitString.
func DecodeBits(encodedBits string, opts ...Opt) (*BitString, error) {
	options := &options{}

	for _, opt := range opts {
		opt(options)
	}

	var decodedBits []byte

	if options.multibaseEncoding != multibase.Encoding(0) {
		encoding, decoded, err := multibase.Decode(encodedBits)
		if err != nil {
			return nil, err
		}

		if encoding != options.multibaseEncoding {
			return nil, fmt.Errorf("encoding not supported: %d", encoding)
		}

		decodedBits = decoded
	} else {
		decoded, err := base64.RawURLEncoding.DecodeString(encodedBits)
		if err != nil {
			return nil, err
		}

		decodedBits = decoded
	}

	r, err := gzip.NewReader(bytes.NewReader(decodedBits))
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}

	return newBitString(buf.Bytes(), opts), nil
}

// Set sets the bit at the given position.
func (b *BitString) Set(position int, bitSet bool) error {
	nByte := position / bitsPerByte
	nBit := b.bitPosition(position)

	if position < 0 || nByte > len(b.bits)-1 {
		return fmt.Errorf("position is invalid")
	}

	if bitSet {
		mask := byte(one << nBit)
		b.bits[nByte] |= mask
	} else {
		mask := ^byte(one << nBit)
		b.bits[nByte] &= mask
	}

	return nil
}

// Get returns the bit at the given position.
func (b *BitString) Get(position int) (bool, error) {
	nByte := position / bitsPerByte
	nBit := b.bitPosition(position)

	if position < 0 || nByte > len(b.bits)-1 {
		return false, fmt.Errorf("position is invalid")
	}

	bitValue := (b.bits[nByte] & (one << nBit)) != 0

	return bitValue, nil
}

// EncodeBits compresses and encodes the bitstring.
func (b *BitString) EncodeBits() (string, error) {
	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b.bits); err != nil {
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", err
	}

	if b.multibaseEncoding == multibase.Encoding(0) {
		return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
	}

	return multibase.Encode(b.multibaseEncoding, buf.Bytes())
}
