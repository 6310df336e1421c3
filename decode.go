// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package seam

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"
)

// Unmarshaler is the interface implemented by types that can decode
// themselves from the stream. The method receives the Decoder rather than a
// byte slice: the stream carries no type tags, so an item's byte length
// cannot be determined without knowing its shape, and pre-slicing one item
// for the implementation is impossible.
type Unmarshaler interface {
	UnmarshalSeam(d *Decoder) error
}

// Unmarshal decodes data into v, which must be a non-nil pointer to a value
// of the expected shape. Trailing bytes after one complete item are an
// error.
func Unmarshal(data []byte, v any) error {
	d := NewDecoder(data)
	if err := d.Decode(v); err != nil {
		return err
	}
	if rest := d.Rest(); len(rest) > 0 {
		return fmt.Errorf("unmarshal did not consume all data, had extra %d bytes: % x", len(rest), rest)
	}
	return nil
}

// Decoder iteratively consumes a byte buffer, decoding one item per Decode
// call. The buffer is borrowed, never modified, and never copied as a whole;
// decoded strings and byte slices are copied out as the cursor advances.
//
// The stream is not self-describing: every Decode call must be given a
// target whose shape matches what was encoded.
type Decoder struct {
	data []byte
	off  int

	// Trace, if set, is invoked for every structural token consumed.
	Trace TraceFunc
}

// NewDecoder returns a new Decoder reading from data. The slice is not
// copied and must not be modified while the Decoder is in use.
func NewDecoder(data []byte) *Decoder { return &Decoder{data: data} }

// Rest returns the not-yet-consumed tail of the input buffer.
func (d *Decoder) Rest() []byte { return d.data[d.off:] }

// PeekToken reports whether the next byte to read is the given token. It
// never advances the cursor and returns false at end of input.
func (d *Decoder) PeekToken(tok Token) bool {
	return d.off < len(d.data) && d.data[d.off] == byte(tok)
}

// EatToken consumes the expected token, failing with an
// [ExpectedTokenError] if a different byte is at the cursor or
// [ErrUnexpectedEnd] if no bytes remain.
func (d *Decoder) EatToken(tok Token) error {
	if d.off >= len(d.data) {
		return fmt.Errorf("expected %s token at offset %d: %w", tok, d.off, ErrUnexpectedEnd)
	}
	if d.data[d.off] != byte(tok) {
		return ExpectedTokenError{Want: tok, Got: d.data[d.off], Offset: d.off}
	}
	if d.Trace != nil {
		d.Trace(d.off, tok)
	}
	d.off++
	return nil
}

func (d *Decoder) readN(n int) ([]byte, error) {
	if len(d.data)-d.off < n {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", n, d.off, ErrUnexpectedEnd)
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

// Decode a single item from the buffer into v, which must be a non-nil
// pointer.
func (d *Decoder) Decode(v any) error {
	// Use UnmarshalSeam when the value implements Unmarshaler
	if u, ok := v.(Unmarshaler); ok {
		if rv := reflect.ValueOf(v); rv.Kind() != reflect.Pointer || !rv.IsNil() {
			return u.UnmarshalSeam(d)
		}
	}

	// Ensure that v is a pointer type
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("type for decoding must be a non-nil pointer value, got %T", v)
	}
	return d.decodeVal(rv.Elem())
}

// Decode one item into a settable value
//
//nolint:gocyclo // Dispatch will always have naturally high complexity.
func (d *Decoder) decodeVal(rv reflect.Value) error {
	// Allocate through pointers. Pointers are plumbing, not options: an
	// absent value is expressed with Option, so there is no null case here.
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		if u, ok := rv.Interface().(Unmarshaler); ok {
			return u.UnmarshalSeam(d)
		}
		rv = rv.Elem()
	}

	// Check for Unmarshaler on the addressable value (covers named types
	// with pointer-receiver methods reached through struct fields)
	if rv.CanAddr() {
		if u, ok := rv.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalSeam(d)
		}
	}

	// Dispatch decoding by the target's kind
	switch rv.Kind() {
	case reflect.Interface:
		return fmt.Errorf("%w: cannot decode into %s without a concrete shape",
			ErrUnsupportedOperation, rv.Type())
	case reflect.Bool:
		return d.decodeBool(rv)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return d.decodeNumber(rv)
	case reflect.Float32, reflect.Float64:
		return d.decodeFloat(rv)
	case reflect.String:
		return d.decodeString(rv)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return d.decodeBytes(rv)
		}
		return d.decodeSeq(rv)
	case reflect.Map:
		return d.decodeMap(rv)
	case reflect.Struct:
		return d.decodeStruct(rv)
	default:
		return ErrUnsupportedType{typeName: rv.Type().String()}
	}
}

func (d *Decoder) decodeBool(rv reflect.Value) error {
	b, err := d.readN(1)
	if err != nil {
		return err
	}
	switch b[0] {
	case 0x00:
		rv.SetBool(false)
	case 0x01:
		rv.SetBool(true)
	default:
		return fmt.Errorf("%w: 0x%02x at offset %d", ErrInvalidBool, b[0], d.off-1)
	}
	return nil
}

func (d *Decoder) decodeNumber(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Int8:
		b, err := d.readN(1)
		if err != nil {
			return err
		}
		rv.SetInt(int64(int8(b[0])))
	case reflect.Uint8:
		b, err := d.readN(1)
		if err != nil {
			return err
		}
		rv.SetUint(uint64(b[0]))
	case reflect.Int16:
		b, err := d.readN(2)
		if err != nil {
			return err
		}
		rv.SetInt(int64(int16(binary.LittleEndian.Uint16(b))))
	case reflect.Uint16:
		b, err := d.readN(2)
		if err != nil {
			return err
		}
		rv.SetUint(uint64(binary.LittleEndian.Uint16(b)))
	case reflect.Int32:
		b, err := d.readN(4)
		if err != nil {
			return err
		}
		rv.SetInt(int64(int32(binary.LittleEndian.Uint32(b))))
	case reflect.Uint32:
		b, err := d.readN(4)
		if err != nil {
			return err
		}
		rv.SetUint(uint64(binary.LittleEndian.Uint32(b)))
	case reflect.Int, reflect.Int64:
		b, err := d.readN(8)
		if err != nil {
			return err
		}
		i64 := int64(binary.LittleEndian.Uint64(b))
		if rv.OverflowInt(i64) {
			return fmt.Errorf("%w: value %d overflows", ErrUnsupportedType{typeName: rv.Type().String()}, i64)
		}
		rv.SetInt(i64)
	case reflect.Uint, reflect.Uint64:
		b, err := d.readN(8)
		if err != nil {
			return err
		}
		u64 := binary.LittleEndian.Uint64(b)
		if rv.OverflowUint(u64) {
			return fmt.Errorf("%w: value %d overflows", ErrUnsupportedType{typeName: rv.Type().String()}, u64)
		}
		rv.SetUint(u64)
	}
	return nil
}

func (d *Decoder) decodeFloat(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Float32:
		b, err := d.readN(4)
		if err != nil {
			return err
		}
		rv.SetFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
	case reflect.Float64:
		b, err := d.readN(8)
		if err != nil {
			return err
		}
		rv.SetFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	}
	return nil
}

// readLength reads a uint64 length prefix. Because the decoder always has
// the complete buffer, any length exceeding the remaining bytes is a
// truncation error; no separate size limit is needed.
func (d *Decoder) readLength() (int, error) {
	b, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	length := binary.LittleEndian.Uint64(b)
	if length > uint64(len(d.data)-d.off) {
		return 0, fmt.Errorf("length %d at offset %d exceeds %d remaining bytes: %w",
			length, d.off-8, len(d.data)-d.off, ErrUnexpectedEnd)
	}
	return int(length), nil
}

func (d *Decoder) decodeString(rv reflect.Value) error {
	length, err := d.readLength()
	if err != nil {
		return err
	}
	start := d.off
	b, err := d.readN(length)
	if err != nil {
		return err
	}
	if !utf8.Valid(b) {
		return fmt.Errorf("%w: at offset %d", ErrInvalidUTF8, start)
	}
	rv.SetString(string(b))
	return nil
}

func (d *Decoder) decodeBytes(rv reflect.Value) error {
	length, err := d.readLength()
	if err != nil {
		return err
	}
	b, err := d.readN(length)
	if err != nil {
		return err
	}

	switch rv.Kind() {
	case reflect.Slice:
		// Copy, so the decoded value does not alias the input buffer
		rv.SetBytes(append([]byte(nil), b...))
		return nil
	case reflect.Array:
		if rv.Len() != length {
			return fmt.Errorf("%w: byte buffer has %d bytes, array requires %d",
				ErrUnsupportedType{typeName: rv.Type().String()}, length, rv.Len())
		}
		reflect.Copy(rv, reflect.ValueOf(b))
		return nil
	}
	panic("unreachable")
}

// collCursor drives element-by-element decoding of a sequence or map body.
// It mirrors the framing grammar: the byte after the start token is the end
// token (empty collection) or the Some non-empty marker, and every later
// element boundary is the end token or the separator. The peek is always at
// a reserved byte, so element payloads can never be mistaken for framing.
type collCursor struct {
	d     *Decoder
	sep   Token
	end   Token
	first bool
}

func newCollCursor(d *Decoder, sep, end Token) *collCursor {
	return &collCursor{d: d, sep: sep, end: end, first: true}
}

// next reports whether another element follows, consuming the end token,
// the non-empty marker, or the separator as appropriate.
func (c *collCursor) next() (bool, error) {
	if c.d.PeekToken(c.end) {
		return false, c.d.EatToken(c.end)
	}
	tok := c.sep
	if c.first {
		tok = TokenSome
	}
	if err := c.d.EatToken(tok); err != nil {
		return false, err
	}
	c.first = false
	return true, nil
}

func (d *Decoder) decodeSeq(rv reflect.Value) error {
	if err := d.EatToken(TokenSeqStart); err != nil {
		return err
	}

	elemType := rv.Type().Elem()
	cursor := newCollCursor(d, TokenSeqSep, TokenSeqEnd)
	n := 0
	switch rv.Kind() {
	case reflect.Slice:
		// Build into a fresh slice so a failed decode leaves rv untouched
		slice := reflect.MakeSlice(rv.Type(), 0, 0)
		for {
			more, err := cursor.next()
			if err != nil {
				return err
			}
			if !more {
				break
			}
			newVal := reflect.New(elemType)
			if err := d.Decode(newVal.Interface()); err != nil {
				return fmt.Errorf("error decoding sequence element %d: %w", n, err)
			}
			slice = reflect.Append(slice, newVal.Elem())
			n++
		}
		rv.Set(slice)
		return nil

	case reflect.Array:
		for {
			more, err := cursor.next()
			if err != nil {
				return err
			}
			if !more {
				break
			}
			if n >= rv.Len() {
				return fmt.Errorf("%w: sequence has more than %d elements",
					ErrUnsupportedType{typeName: rv.Type().String()}, rv.Len())
			}
			newVal := reflect.New(elemType)
			if err := d.Decode(newVal.Interface()); err != nil {
				return fmt.Errorf("error decoding sequence element %d: %w", n, err)
			}
			rv.Index(n).Set(newVal.Elem())
			n++
		}
		if n != rv.Len() {
			return fmt.Errorf("%w: sequence has %d elements, array requires %d",
				ErrUnsupportedType{typeName: rv.Type().String()}, n, rv.Len())
		}
		return nil
	}
	panic("unreachable")
}

func (d *Decoder) decodeMap(rv reflect.Value) error {
	if err := d.EatToken(TokenMapStart); err != nil {
		return err
	}

	// Create map if needed, then clear it
	if rv.IsNil() {
		rv.Set(reflect.MakeMap(rv.Type()))
	}
	rv.Clear()

	keyType := rv.Type().Key()
	valType := rv.Type().Elem()

	cursor := newCollCursor(d, TokenMapSep, TokenMapEnd)
	for i := 0; ; i++ {
		more, err := cursor.next()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}

		newKey := reflect.New(keyType)
		if err := d.Decode(newKey.Interface()); err != nil {
			return fmt.Errorf("error decoding map key %d: %w", i, err)
		}
		if err := d.EatToken(TokenMapKeySep); err != nil {
			return err
		}
		newVal := reflect.New(valType)
		if err := d.Decode(newVal.Interface()); err != nil {
			return fmt.Errorf("error decoding map value %d: %w", i, err)
		}
		rv.SetMapIndex(newKey.Elem(), newVal.Elem())
	}
}

// Structs decode from map framing. Entries may arrive in any order; keys
// with no matching field are an error, since a value of unknown shape
// cannot be skipped. Fields absent from the stream keep their zero value,
// which is how omitempty round-trips.
func (d *Decoder) decodeStruct(rv reflect.Value) error {
	fields, err := structFields(rv.Type())
	if err != nil {
		return err
	}
	byKey := make(map[string]structField, len(fields))
	for _, f := range fields {
		byKey[f.key] = f
	}

	if err := d.EatToken(TokenMapStart); err != nil {
		return err
	}
	cursor := newCollCursor(d, TokenMapSep, TokenMapEnd)
	for {
		more, err := cursor.next()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}

		var key string
		if err := d.decodeString(reflect.ValueOf(&key).Elem()); err != nil {
			return fmt.Errorf("error decoding struct field key: %w", err)
		}
		if err := d.EatToken(TokenMapKeySep); err != nil {
			return err
		}

		f, ok := byKey[key]
		if !ok {
			return fmt.Errorf("%w: cannot skip unknown field %q of %s",
				ErrUnsupportedOperation, key, rv.Type())
		}
		if err := d.decodeStructField(rv, f); err != nil {
			return err
		}
	}
}

func (d *Decoder) decodeStructField(rv reflect.Value, f structField) error {
	// Allocate any nil embedded struct pointer fields on the index path
	for i := 1; i < len(f.index); i++ {
		embed := rv.FieldByIndex(f.index[:i])
		if embed.Kind() == reflect.Pointer && embed.IsNil() {
			embed.Set(reflect.New(embed.Type().Elem()))
		}
	}
	fv := rv.FieldByIndex(f.index)

	// Allocate addressable memory for the field, decode into it, then set
	newVal := reflect.New(fv.Type())
	if err := d.Decode(newVal.Interface()); err != nil {
		return fmt.Errorf("error decoding struct field %q: %w", f.key, err)
	}
	fv.Set(newVal.Elem())
	return nil
}
