// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package seam

import (
	"errors"
	"fmt"
)

// Sentinel errors. All decode failures wrap one of these (or are one of the
// structured error types below) and can be matched with errors.Is.
var (
	// ErrUnexpectedEnd means fewer bytes remained than a read required.
	ErrUnexpectedEnd = errors.New("unexpected end of input")

	// ErrInvalidUTF8 means a string payload was not valid UTF-8.
	ErrInvalidUTF8 = errors.New("string payload is not valid UTF-8")

	// ErrInvalidChar means a decoded uint32 was not a legal Unicode scalar
	// value (a surrogate, or greater than U+10FFFF).
	ErrInvalidChar = errors.New("invalid Unicode scalar value")

	// ErrInvalidBool means a bool byte was neither 0x00 nor 0x01.
	ErrInvalidBool = errors.New("invalid bool byte")

	// ErrUnsupportedOperation means the call would require the stream to be
	// self-describing. The format carries no type tags: the caller must
	// always drive decoding with a concrete target shape, so decoding into
	// an interface value, or past an unknown struct field, is rejected
	// rather than guessed at.
	ErrUnsupportedOperation = errors.New("operation requires a self-describing stream")
)

// ErrUnsupportedType means that a value of this type cannot be encoded or
// decoded.
type ErrUnsupportedType struct {
	typeName string
}

func (e ErrUnsupportedType) Error() string {
	return fmt.Sprintf("unsupported type: %s", e.typeName)
}

// ExpectedTokenError means a structural token was required at the cursor but
// a different byte was found.
type ExpectedTokenError struct {
	Want   Token
	Got    byte
	Offset int
}

func (e ExpectedTokenError) Error() string {
	return fmt.Sprintf("expected %s token at offset %d, got 0x%02x", e.Want, e.Offset, e.Got)
}

// UnknownVariantError means a decoded variant ordinal was outside the range
// the target union declares.
type UnknownVariantError struct {
	Ord  uint32
	Have int // number of declared variants
}

func (e UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown variant ordinal %d: union declares %d variants", e.Ord, e.Have)
}
