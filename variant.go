// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package seam

import (
	"encoding/binary"
	"fmt"
	"reflect"
)

// Variant is one case of a tagged union: the Enum token, the variant's
// zero-based ordinal as a uint32, then the payload. The stream carries only
// the ordinal, never the variant name, so both sides must agree on the
// variant order.
//
// The payload encoding follows the variant kind:
//
//   - Variant[Unit] is a unit variant and has no payload bytes at all
//   - Variant[V] for any other V is a newtype variant whose payload is V's
//     own encoding; use Tuple for positional payloads and a struct for
//     named ones
//
// Variant performs no ordinal range check, because a single case carries no
// knowledge of the full variant set. Unions whose variants have different
// payload shapes should implement Marshaler/Unmarshaler in terms of
// [EncodeVariant] and [DecodeVariant], which do enforce the range.
type Variant[T any] struct {
	Ord uint32
	Val T
}

func (Variant[T]) isVariant() {}

// Ordinal returns the underlying Ord field and is used to implement the
// VariantData interface.
func (v Variant[T]) Ordinal() uint32 { return v.Ord }

// Value returns the underlying Val field and is used to implement the
// VariantData interface.
func (v Variant[T]) Value() any { return v.Val }

// VariantData allows read-only access to a Variant without payload type
// information.
type VariantData interface {
	isVariant() // no external types can implement a Variant
	Ordinal() uint32
	Value() any
}

// MarshalSeam implements Marshaler.
func (v Variant[T]) MarshalSeam(e *Encoder) error {
	if err := e.WriteToken(TokenEnum); err != nil {
		return err
	}
	if err := e.write(binary.LittleEndian.AppendUint32(nil, v.Ord)); err != nil {
		return err
	}
	if _, unit := any(v.Val).(Unit); unit {
		return nil
	}
	return e.Encode(v.Val)
}

// UnmarshalSeam implements Unmarshaler.
func (v *Variant[T]) UnmarshalSeam(d *Decoder) error {
	if err := d.EatToken(TokenEnum); err != nil {
		return err
	}
	b, err := d.readN(4)
	if err != nil {
		return err
	}
	v.Ord = binary.LittleEndian.Uint32(b)
	if _, unit := any(v.Val).(Unit); unit {
		return nil
	}
	return d.Decode(&v.Val)
}

// EncodeVariant writes the Enum token, the ordinal, and the payload. A nil
// payload (or Unit) means a unit variant and writes no payload bytes.
func EncodeVariant(e *Encoder, ord uint32, payload any) error {
	if err := e.WriteToken(TokenEnum); err != nil {
		return err
	}
	if err := e.write(binary.LittleEndian.AppendUint32(nil, ord)); err != nil {
		return err
	}
	if payload == nil {
		return nil
	}
	if _, unit := payload.(Unit); unit {
		return nil
	}
	return e.Encode(payload)
}

// DecodeVariant reads the Enum token and the ordinal, then decodes the
// payload into payloads[ordinal], which must be a non-nil pointer of the
// variant's payload shape, or nil for a unit variant. An ordinal at or past
// len(payloads) fails with an [UnknownVariantError].
//
// The returned ordinal is valid whenever the error is nil or an
// UnknownVariantError.
func DecodeVariant(d *Decoder, payloads ...any) (uint32, error) {
	if err := d.EatToken(TokenEnum); err != nil {
		return 0, err
	}
	b, err := d.readN(4)
	if err != nil {
		return 0, err
	}
	ord := binary.LittleEndian.Uint32(b)
	if uint64(ord) >= uint64(len(payloads)) {
		return ord, UnknownVariantError{Ord: ord, Have: len(payloads)}
	}
	p := payloads[ord]
	if p == nil {
		return ord, nil
	}
	if _, unit := p.(*Unit); unit {
		return ord, nil
	}
	if err := d.Decode(p); err != nil {
		return ord, fmt.Errorf("error decoding payload of variant %d: %w", ord, err)
	}
	return ord, nil
}

// Tuple encodes the fields of its underlying struct positionally as a
// sequence, rather than as a name-keyed map. It is the payload shape for
// tuple variants and tuple structs.
type Tuple[T any] struct{ Val T }

// NewTuple is shorthand for struct initialization and is useful, because it
// often does not require writing the type parameter.
func NewTuple[T any](v T) *Tuple[T] { return &Tuple[T]{Val: v} }

// MarshalSeam implements Marshaler.
func (t Tuple[T]) MarshalSeam(e *Encoder) error {
	rv := reflect.ValueOf(t.Val)
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: tuple wrapper requires a struct",
			ErrUnsupportedType{typeName: rv.Type().String()})
	}
	fields, err := structFields(rv.Type())
	if err != nil {
		return err
	}

	// Same framing as a sequence, including the non-empty marker
	if err := e.WriteToken(TokenSeqStart); err != nil {
		return err
	}
	for i, f := range fields {
		if i == 0 {
			if err := e.WriteToken(TokenSome); err != nil {
				return err
			}
		} else {
			if err := e.WriteToken(TokenSeqSep); err != nil {
				return err
			}
		}
		fv, err := rv.FieldByIndexErr(f.index)
		if err != nil {
			return fmt.Errorf("error encoding tuple field %d: %w", i, err)
		}
		if err := e.Encode(fv.Interface()); err != nil {
			return fmt.Errorf("error encoding tuple field %d: %w", i, err)
		}
	}
	return e.WriteToken(TokenSeqEnd)
}

// UnmarshalSeam implements Unmarshaler.
func (t *Tuple[T]) UnmarshalSeam(d *Decoder) error {
	rv := reflect.ValueOf(&t.Val).Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: tuple wrapper requires a struct",
			ErrUnsupportedType{typeName: rv.Type().String()})
	}
	fields, err := structFields(rv.Type())
	if err != nil {
		return err
	}

	if err := d.EatToken(TokenSeqStart); err != nil {
		return err
	}
	for i, f := range fields {
		tok := TokenSeqSep
		if i == 0 {
			tok = TokenSome
		}
		if err := d.EatToken(tok); err != nil {
			return err
		}
		if err := d.decodeStructField(rv, f); err != nil {
			return fmt.Errorf("error decoding tuple field %d: %w", i, err)
		}
	}
	return d.EatToken(TokenSeqEnd)
}

// RawBytes writes its content to the stream untransformed. It must contain
// a valid encoding of exactly one item.
//
// RawBytes is encode-only: without shape information the decoder cannot
// know where one raw item ends, so there is no Unmarshaler counterpart.
type RawBytes []byte

// MarshalSeam implements Marshaler.
func (b RawBytes) MarshalSeam(e *Encoder) error { return e.write(b) }
