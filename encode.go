// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package seam

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"
	"runtime"
	"sort"
)

// Marshaler is the interface implemented by types that can encode themselves
// into the stream. Unlike codecs for self-describing formats, the method
// receives the Encoder rather than returning a byte slice, so that wrapper
// types can emit structural tokens and recurse through the same encoder
// state (trace hook, key sort option).
type Marshaler interface {
	MarshalSeam(e *Encoder) error
}

// Marshal encodes any supported value to bytes.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encoder writes values to a stream and allows for setting encoding options.
// An Encoder owns no buffer of its own and keeps no state between top-level
// Encode calls, so each call is independent.
type Encoder struct {
	w io.Writer
	n int

	// MapKeySort is used to determine sort order of map keys for encoding.
	// If none is set, bytewise lexical order of the marshaled keys is used.
	// Go maps are unordered, so some canonical order is required for
	// encoding to be deterministic. Struct fields are not affected: they
	// always encode in declaration order.
	//
	// The provided function is called with indices 0..len(keys)-1 and
	// marshaled map keys in a random order. The return value is expected to
	// be a "less" function that is used to iteratively sort the indices in
	// place while the marshaled keys remain unmodified.
	MapKeySort func(indices []int, marshaledKeys [][]byte) func(i, j int) bool

	// Trace, if set, is invoked for every structural token written.
	Trace TraceFunc
}

// NewEncoder returns a new Encoder. The [io.Writer] is not automatically
// flushed.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

// WriteToken appends the token's byte unconditionally.
func (e *Encoder) WriteToken(tok Token) error {
	if e.Trace != nil {
		e.Trace(e.n, tok)
	}
	return e.write([]byte{byte(tok)})
}

func (e *Encoder) write(b []byte) error {
	n, err := e.w.Write(b)
	e.n += n
	return err
}

// Encode a single value to the underlying [io.Writer].
//
//nolint:gocyclo // Dispatch will always have naturally high complexity.
func (e *Encoder) Encode(v any) error {
	// Reflection does not keep the underlying value in scope, so this is
	// needed to keep finalizers from running and possibly modifying the
	// value being encoded (such as zeroing secrets).
	defer runtime.KeepAlive(v)

	// Use reflection to dereference pointers, get concrete types out of
	// interfaces, and unwrap named types
	rv := reflect.ValueOf(v)
	for (rv.Kind() == reflect.Pointer && !rv.IsNil()) || rv.Kind() == reflect.Interface {
		// If the value implements Marshaler, use MarshalSeam
		if m, ok := rv.Interface().(Marshaler); ok {
			return m.MarshalSeam(e)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return fmt.Errorf("%w: nil has no encoding; use Option for absent values",
			ErrUnsupportedType{typeName: "<nil>"})
	}
	v = rv.Interface()

	// If the value implements Marshaler, use MarshalSeam
	if m, ok := v.(Marshaler); ok && !holdsNilPtr(v) {
		return m.MarshalSeam(e)
	}

	// Dispatch encoding by reflected data type
	switch {
	case rv.Kind() == reflect.Bool:
		return e.encodeBool(rv.Bool())
	case rv.CanInt() || rv.CanUint():
		return e.encodeNumber(rv)
	case rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64:
		return e.encodeFloat(rv)
	case rv.Kind() == reflect.String:
		return e.encodeString(rv.String())
	case (rv.Kind() == reflect.Array || rv.Kind() == reflect.Slice) && rv.Type().Elem().Kind() == reflect.Uint8:
		return e.encodeBytes(rv)
	case rv.Kind() == reflect.Array || rv.Kind() == reflect.Slice:
		return e.encodeSeq(rv.Len(), rv.Index)
	case rv.Kind() == reflect.Struct:
		return e.encodeStruct(rv)
	case rv.Kind() == reflect.Map:
		return e.encodeMap(rv.Len(), rv.MapKeys(), rv.MapIndex)
	case rv.Kind() == reflect.Pointer && rv.IsNil():
		return fmt.Errorf("%w: nil pointer has no encoding; use Option for absent values",
			ErrUnsupportedType{typeName: rv.Type().String()})
	default:
		return ErrUnsupportedType{typeName: rv.Type().String()}
	}
}

func holdsNilPtr(v any) bool {
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

func (e *Encoder) encodeBool(truthy bool) error {
	if truthy {
		return e.write([]byte{0x01})
	}
	return e.write([]byte{0x00})
}

// Integers are fixed width per type, little-endian, two's complement. Go's
// platform-sized int and uint encode at their full 64-bit width.
func (e *Encoder) encodeNumber(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Int8:
		return e.write([]byte{byte(rv.Int())})
	case reflect.Uint8:
		return e.write([]byte{byte(rv.Uint())})
	case reflect.Int16:
		return e.write(binary.LittleEndian.AppendUint16(nil, uint16(rv.Int())))
	case reflect.Uint16:
		return e.write(binary.LittleEndian.AppendUint16(nil, uint16(rv.Uint())))
	case reflect.Int32:
		return e.write(binary.LittleEndian.AppendUint32(nil, uint32(rv.Int())))
	case reflect.Uint32:
		return e.write(binary.LittleEndian.AppendUint32(nil, uint32(rv.Uint())))
	case reflect.Int, reflect.Int64:
		return e.write(binary.LittleEndian.AppendUint64(nil, uint64(rv.Int())))
	case reflect.Uint, reflect.Uint64:
		return e.write(binary.LittleEndian.AppendUint64(nil, rv.Uint()))
	default:
		return ErrUnsupportedType{typeName: rv.Type().String()}
	}
}

func (e *Encoder) encodeFloat(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Float32:
		return e.write(binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(rv.Float()))))
	case reflect.Float64:
		return e.write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(rv.Float())))
	default:
		return ErrUnsupportedType{typeName: rv.Type().String()}
	}
}

// Strings and byte buffers are length-prefixed (uint64 little-endian byte
// count followed by the raw bytes) rather than wrapped in delimiter tokens,
// so arbitrary payload content never collides with the token vocabulary.
func (e *Encoder) encodeString(s string) error {
	if err := e.write(binary.LittleEndian.AppendUint64(nil, uint64(len(s)))); err != nil {
		return err
	}
	return e.write([]byte(s))
}

func (e *Encoder) encodeBytes(rv reflect.Value) error {
	var b []byte
	switch rv.Kind() {
	case reflect.Slice:
		b = rv.Bytes()
	case reflect.Array:
		if rv.CanAddr() {
			b = rv.Bytes()
			break
		}

		// Unaddressable arrays cannot be made into slices, so we must
		// create a slice and copy contents into it
		b = make([]byte, rv.Len())
		if n := reflect.Copy(reflect.ValueOf(b), rv); n != rv.Len() {
			panic("array contents were not fully copied into a slice for encoding")
		}
	}

	if err := e.write(binary.LittleEndian.AppendUint64(nil, uint64(len(b)))); err != nil {
		return err
	}
	return e.write(b)
}

// Non-empty collections carry the Some token between the start token and
// the first element. Without it, a first element whose encoding begins with
// the end-token byte would be indistinguishable from an empty collection;
// with it, the byte after a start token is always a reserved one (end for
// empty, Some for non-empty), the same discriminant strategy options use.
func (e *Encoder) encodeSeq(size int, get func(int) reflect.Value) error {
	if err := e.WriteToken(TokenSeqStart); err != nil {
		return err
	}
	for i := 0; i < size; i++ {
		if i == 0 {
			if err := e.WriteToken(TokenSome); err != nil {
				return err
			}
		} else {
			if err := e.WriteToken(TokenSeqSep); err != nil {
				return err
			}
		}
		if err := e.Encode(get(i).Interface()); err != nil {
			return fmt.Errorf("error encoding sequence element %d: %w", i, err)
		}
	}
	return e.WriteToken(TokenSeqEnd)
}

// Structs encode as a map whose keys are the field names: there is no
// dedicated struct framing on the wire. Fields encode in declaration order.
func (e *Encoder) encodeStruct(rv reflect.Value) error {
	fields, err := structFields(rv.Type())
	if err != nil {
		return err
	}

	if err := e.WriteToken(TokenMapStart); err != nil {
		return err
	}
	first := true
	for _, f := range fields {
		fv, err := rv.FieldByIndexErr(f.index)
		if err != nil {
			return fmt.Errorf("error encoding struct field %q: %w", f.key, err)
		}
		if f.omittable && isEmpty(fv) {
			continue
		}
		if first {
			if err := e.WriteToken(TokenSome); err != nil {
				return err
			}
		} else {
			if err := e.WriteToken(TokenMapSep); err != nil {
				return err
			}
		}
		first = false
		if err := e.encodeString(f.key); err != nil {
			return err
		}
		if err := e.WriteToken(TokenMapKeySep); err != nil {
			return err
		}
		if err := e.Encode(fv.Interface()); err != nil {
			return fmt.Errorf("error encoding struct field %q: %w", f.key, err)
		}
	}
	return e.WriteToken(TokenMapEnd)
}

func isEmpty(v reflect.Value) bool {
	return v.IsZero() ||
		(v.Kind() == reflect.Slice && v.Len() == 0) ||
		(v.Kind() == reflect.Map && v.Len() == 0) ||
		(v.Kind() == reflect.Array && v.Len() == 0)
}

func (e *Encoder) encodeMap(length int, keys []reflect.Value, get func(k reflect.Value) reflect.Value) error {
	if length < 0 {
		panic("negative map lengths are invalid")
	}

	// Marshal all keys with a sub-encoder so they can be sorted before any
	// framing is written
	marshaledKeys := make([][]byte, len(keys))
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.MapKeySort = e.MapKeySort
	for i, key := range keys {
		buf.Reset()
		if err := enc.Encode(key.Interface()); err != nil {
			return err
		}
		marshaledKeys[i] = bytes.Clone(buf.Bytes())
	}

	// Sort keys deterministically
	lessFn := e.MapKeySort
	if lessFn == nil {
		lessFn = BytewiseLexicalSort
	}
	indices := make([]int, len(keys))
	for i := range keys {
		indices[i] = i
	}
	sort.Slice(indices, lessFn(indices, marshaledKeys))

	// Append each entry by writing key bytes, the key separator, then the
	// value, with an entry separator before every entry except the first
	if err := e.WriteToken(TokenMapStart); err != nil {
		return err
	}
	for n, i := range indices {
		if n == 0 {
			if err := e.WriteToken(TokenSome); err != nil {
				return err
			}
		} else {
			if err := e.WriteToken(TokenMapSep); err != nil {
				return err
			}
		}
		if err := e.Encode(RawBytes(marshaledKeys[i])); err != nil {
			return err
		}
		if err := e.WriteToken(TokenMapKeySep); err != nil {
			return err
		}
		if err := e.Encode(get(keys[i]).Interface()); err != nil {
			return fmt.Errorf("error encoding map value %d: %w", n, err)
		}
	}
	return e.WriteToken(TokenMapEnd)
}

// BytewiseLexicalSort is a map key sorting function. It is the default for
// an [Encoder].
func BytewiseLexicalSort(indices []int, keys [][]byte) func(i, j int) bool {
	return func(i, j int) bool {
		return bytes.Compare(keys[indices[i]], keys[indices[j]]) < 0
	}
}
