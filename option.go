// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package seam

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Unit is the unit value. It encodes as the Unit token and carries no data.
// Note that Unit is not the same as an empty struct literal of another type,
// which encodes as a map with zero entries.
type Unit struct{}

// MarshalSeam implements Marshaler.
func (Unit) MarshalSeam(e *Encoder) error { return e.WriteToken(TokenUnit) }

// UnmarshalSeam implements Unmarshaler.
func (*Unit) UnmarshalSeam(d *Decoder) error { return d.EatToken(TokenUnit) }

// Option is an explicitly absent-or-present value. None encodes as the Unit
// token; Some encodes as the Some token followed by the payload's own
// encoding. The leading marker makes None and Some unambiguous regardless
// of what bytes the payload encoding starts with.
//
// The zero value is None.
type Option[T any] struct {
	val T
	ok  bool
}

// Some returns an Option holding v.
func Some[T any](v T) Option[T] { return Option[T]{val: v, ok: true} }

// None returns an empty Option.
func None[T any]() Option[T] { return Option[T]{} }

// IsSome reports whether the Option holds a value.
func (o Option[T]) IsSome() bool { return o.ok }

// Get returns the held value, if any.
func (o Option[T]) Get() (T, bool) { return o.val, o.ok }

// Value returns the held value as an any, or nil for None. It is used to
// implement the OptionData interface.
func (o Option[T]) Value() any {
	if !o.ok {
		return nil
	}
	return o.val
}

func (Option[T]) isOption() {}

// OptionData allows read-only access to an Option without value type
// information.
type OptionData interface {
	isOption() // no external types can implement an Option
	IsSome() bool
	Value() any
}

// MarshalSeam implements Marshaler.
func (o Option[T]) MarshalSeam(e *Encoder) error {
	if !o.ok {
		return e.WriteToken(TokenUnit)
	}
	if err := e.WriteToken(TokenSome); err != nil {
		return err
	}
	return e.Encode(o.val)
}

// UnmarshalSeam implements Unmarshaler.
func (o *Option[T]) UnmarshalSeam(d *Decoder) error {
	if d.PeekToken(TokenUnit) {
		*o = Option[T]{}
		return d.EatToken(TokenUnit)
	}
	if err := d.EatToken(TokenSome); err != nil {
		return err
	}
	var v T
	if err := d.Decode(&v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Char is a Unicode scalar value. It encodes as its code point in a uint32,
// and decoding validates the scalar range.
//
// A dedicated type is needed because rune is an alias for int32, so a plain
// rune field is indistinguishable from an int32 by reflection and would
// encode without validation.
type Char rune

// MarshalSeam implements Marshaler.
func (c Char) MarshalSeam(e *Encoder) error {
	if !utf8.ValidRune(rune(c)) {
		return fmt.Errorf("%w: %#x", ErrInvalidChar, int32(c))
	}
	return e.write(binary.LittleEndian.AppendUint32(nil, uint32(c)))
}

// UnmarshalSeam implements Unmarshaler.
func (c *Char) UnmarshalSeam(d *Decoder) error {
	start := d.off
	b, err := d.readN(4)
	if err != nil {
		return err
	}
	u := binary.LittleEndian.Uint32(b)
	if u > utf8.MaxRune || !utf8.ValidRune(rune(u)) {
		return fmt.Errorf("%w: %#x at offset %d", ErrInvalidChar, u, start)
	}
	*c = Char(u)
	return nil
}
