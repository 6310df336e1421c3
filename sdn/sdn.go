// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

// Package sdn implements seam diagnostic notation.
//
// Seam is a binary interchange format. To facilitate documentation and
// debugging, and in particular to facilitate communication between entities
// cooperating in debugging, this package renders values in a simple
// human-readable notation. All actual interchange always happens in the
// binary format.
//
// Because the binary format is not self-describing, notation is produced
// from Go values rather than from raw bytes. [FromValue] renders any
// encodable value; [Annotate] decodes a byte stream against an expected
// shape and lists the structural tokens it crosses, with offsets.
//
// Only base16 notation is used for binary values.
//
//	h'12345678'
//
// Example:
//
//	s, _ := sdn.FromValue(v)
package sdn

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/seam-format/go-seam"
)

// Sentinel errors
var (
	ErrInvalidInput = errors.New("sdn: unexpected input")
	ErrInvalidType  = errors.New("sdn: type cannot be rendered")
)

// FromValue renders v in diagnostic notation.
func FromValue(v any) (string, error) {
	var b bytes.Buffer
	if err := encodeValue(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Annotate decodes data into v, which must be a non-nil pointer of the
// expected shape, and returns one line per structural token crossed, in the
// form "offset token". It fails if the decode fails or leaves trailing
// bytes.
func Annotate(data []byte, v any) (string, error) {
	var b strings.Builder
	d := seam.NewDecoder(data)
	d.Trace = func(offset int, tok seam.Token) {
		fmt.Fprintf(&b, "%06d %s\n", offset, tok)
	}
	if err := d.Decode(v); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if rest := d.Rest(); len(rest) > 0 {
		return "", fmt.Errorf("%w: %d trailing bytes", ErrInvalidInput, len(rest))
	}
	return b.String(), nil
}

func encodeValue(b *bytes.Buffer, v any) error { //nolint:gocyclo
	switch v := v.(type) {
	case nil:
		_, _ = b.WriteString("null")
		return nil

	case seam.Unit:
		_, _ = b.WriteString("null")
		return nil

	case seam.Char:
		_, _ = b.WriteString(strconv.QuoteRune(rune(v)))
		return nil

	case []byte:
		_, _ = b.WriteString("h'")
		_, _ = hex.NewEncoder(b).Write(v)
		_, _ = b.WriteString("'")
		return nil

	case string:
		d, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, _ = b.Write(d)
		return nil

	case seam.OptionData:
		inner := v.Value()
		if inner == nil {
			_, _ = b.WriteString("null")
			return nil
		}
		return encodeValue(b, inner)

	case seam.VariantData:
		_, _ = b.WriteString("@")
		_, _ = b.WriteString(strconv.FormatUint(uint64(v.Ordinal()), 10))
		if _, unit := v.Value().(seam.Unit); unit {
			return nil
		}
		_, _ = b.WriteString("(")
		if err := encodeValue(b, v.Value()); err != nil {
			return err
		}
		_, _ = b.WriteString(")")
		return nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return fmt.Errorf("%w: nil %s", ErrInvalidType, rv.Type())
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Bool:
		_, _ = b.WriteString(strconv.FormatBool(rv.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		_, _ = b.WriteString(strconv.FormatInt(rv.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		_, _ = b.WriteString(strconv.FormatUint(rv.Uint(), 10))

	case reflect.Float32:
		_, _ = b.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 32))

	case reflect.Float64:
		_, _ = b.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 64))

	case reflect.String:
		return encodeValue(b, rv.String())

	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			bs := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(bs), rv)
			return encodeValue(b, bs)
		}
		_, _ = b.WriteString("[")
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				_, _ = b.WriteString(", ")
			}
			if err := encodeValue(b, rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		_, _ = b.WriteString("]")

	case reflect.Map:
		return encodeMap(b, rv)

	case reflect.Struct:
		return encodeStruct(b, rv)

	default:
		return fmt.Errorf("%w: %s", ErrInvalidType, rv.Type())
	}

	return nil
}

// Map entries are sorted by rendered key so output is deterministic, which
// keeps diffs between two renderings meaningful.
func encodeMap(b *bytes.Buffer, rv reflect.Value) error {
	type entry struct{ k, v string }
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var kb, vb bytes.Buffer
		if err := encodeValue(&kb, iter.Key().Interface()); err != nil {
			return err
		}
		if err := encodeValue(&vb, iter.Value().Interface()); err != nil {
			return err
		}
		entries = append(entries, entry{k: kb.String(), v: vb.String()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].k < entries[j].k })

	_, _ = b.WriteString("{")
	for i, e := range entries {
		if i > 0 {
			_, _ = b.WriteString(", ")
		}
		_, _ = b.WriteString(e.k)
		_, _ = b.WriteString(": ")
		_, _ = b.WriteString(e.v)
	}
	_, _ = b.WriteString("}")
	return nil
}

func encodeStruct(b *bytes.Buffer, rv reflect.Value) error {
	_, _ = b.WriteString("{")
	first := true
	if err := encodeStructFields(b, rv, &first); err != nil {
		return err
	}
	_, _ = b.WriteString("}")
	return nil
}

// Field naming follows the codec's struct tag: `seam:"name"` renames and
// `seam:"-"` skips. Embedded structs are flattened the same way the codec
// flattens them.
func encodeStructFields(b *bytes.Buffer, rv reflect.Value, first *bool) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("seam"), ",")
		if name == "-" {
			continue
		}
		fv := rv.Field(i)
		if f.Anonymous && name == "" {
			for fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					return fmt.Errorf("%w: nil embedded %s", ErrInvalidType, fv.Type())
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				if err := encodeStructFields(b, fv, first); err != nil {
					return err
				}
				continue
			}
		}
		if name == "" {
			name = f.Name
		}
		if !*first {
			_, _ = b.WriteString(", ")
		}
		*first = false
		if err := encodeValue(b, name); err != nil {
			return err
		}
		_, _ = b.WriteString(": ")
		if err := encodeValue(b, fv.Interface()); err != nil {
			return err
		}
	}
	return nil
}
