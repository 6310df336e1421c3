// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package sdn_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seam-format/go-seam"
	"github.com/seam-format/go-seam/sdn"
)

func TestFromValue(t *testing.T) {
	for _, test := range []struct {
		name   string
		input  any
		expect string
	}{
		{name: "bool", input: true, expect: "true"},
		{name: "int", input: int8(-5), expect: "-5"},
		{name: "uint", input: uint16(1000), expect: "1000"},
		{name: "float", input: 1.5, expect: "1.5"},
		{name: "float32", input: float32(0.1), expect: "0.1"},
		{name: "string", input: "hi", expect: `"hi"`},
		{name: "bytes", input: []byte{0x12, 0x34, 0x56, 0x78}, expect: "h'12345678'"},
		{name: "unit", input: seam.Unit{}, expect: "null"},
		{name: "char", input: seam.Char('A'), expect: "'A'"},
		{name: "seq", input: []uint16{1, 2, 3}, expect: "[1, 2, 3]"},
		{name: "empty seq", input: []uint16{}, expect: "[]"},
		{name: "none", input: seam.None[uint8](), expect: "null"},
		{name: "some", input: seam.Some[uint8](7), expect: "7"},
		{name: "unit variant", input: seam.Variant[seam.Unit]{Ord: 2}, expect: "@2"},
		{name: "newtype variant", input: seam.Variant[uint8]{Ord: 1, Val: 7}, expect: "@1(7)"},
		{
			name:   "map sorted by rendered key",
			input:  map[string]uint8{"b": 2, "a": 1},
			expect: `{"a": 1, "b": 2}`,
		},
		{
			name: "struct",
			input: struct {
				Name string `seam:"name"`
				Age  uint8  `seam:"age"`
			}{Name: "Ayush", Age: 19},
			expect: `{"name": "Ayush", "age": 19}`,
		},
		{
			name: "struct with skipped field",
			input: struct {
				A uint8
				B string `seam:"-"`
			}{A: 1, B: "ignored"},
			expect: `{"A": 1}`,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := sdn.FromValue(test.input)
			require.NoError(t, err)
			require.Equal(t, test.expect, got)
		})
	}
}

func TestFromValueUnsupported(t *testing.T) {
	_, err := sdn.FromValue(make(chan int))
	require.ErrorIs(t, err, sdn.ErrInvalidType)
}

func TestAnnotate(t *testing.T) {
	data, err := seam.Marshal([]bool{true, false})
	require.NoError(t, err)

	var bs []bool
	listing, err := sdn.Annotate(data, &bs)
	require.NoError(t, err)
	require.Equal(t, "000000 SeqStart\n000001 Some\n000003 SeqSep\n000005 SeqEnd\n", listing)
	require.Equal(t, []bool{true, false}, bs)
}

func TestAnnotateBadInput(t *testing.T) {
	var bs []bool
	_, err := sdn.Annotate([]byte{'[', 0x01}, &bs)
	require.ErrorIs(t, err, sdn.ErrInvalidInput)
}
