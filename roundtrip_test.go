// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package seam_test

import (
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/require"

	"github.com/seam-format/go-seam"
)

type human struct {
	Name string `seam:"name"`
	Age  uint8  `seam:"age"`
}

type household struct {
	Members  []human                         `seam:"members"`
	Pets     map[string]seam.Char            `seam:"pets"`
	Address  seam.Option[string]             `seam:"address"`
	Fallback seam.Option[seam.Unit]          `seam:"fallback"`
	Tags     seam.Tuple[struct{ A, B bool }] `seam:"tags"`
	Kind     seam.Variant[uint8]             `seam:"kind"`
	Blob     []byte                          `seam:"blob"`
	Score    float64                         `seam:"score"`
}

func TestRoundTrip(t *testing.T) {
	input := household{
		Members: []human{
			{Name: "Ayush", Age: 19},
			{Name: "Ira", Age: 23},
		},
		Pets:    map[string]seam.Char{"cat": 'c', "dog": 'd'},
		Address: seam.Some("12 Example Rd"),
		Tags:    seam.Tuple[struct{ A, B bool }]{Val: struct{ A, B bool }{A: true}},
		Kind:    seam.Variant[uint8]{Ord: 1, Val: 7},
		Blob:    []byte{'[', ';', '}', 0x05},
		Score:   99.5,
	}

	data, err := seam.Marshal(input)
	require.NoError(t, err)

	var got household
	require.NoError(t, seam.Unmarshal(data, &got))

	if diff := pretty.Compare(input, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripDeterminism(t *testing.T) {
	input := map[string]uint16{"b": 2, "a": 1, "c": 3}

	first, err := seam.Marshal(input)
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		again, err := seam.Marshal(input)
		require.NoError(t, err)
		require.Equal(t, first, again, "map encoding must be deterministic")
	}
}

// Every strict prefix of a valid encoding must fail to decode rather than
// silently produce a value.
func TestRoundTripTruncation(t *testing.T) {
	input := human{Name: "Ayush", Age: 19}
	data, err := seam.Marshal(input)
	require.NoError(t, err)

	for i := 0; i < len(data); i++ {
		var got human
		if err := seam.Unmarshal(data[:i], &got); err == nil {
			t.Errorf("expected error decoding %d-byte prefix of %s", i, spew.Sdump(input))
		}
	}
}

// First elements whose encodings begin with the collection's end-token byte
// must survive a round trip: the non-empty marker keeps them from reading as
// an empty collection.
func TestRoundTripFirstElementEndByte(t *testing.T) {
	t.Run("uint16 equal to SeqEnd byte", func(t *testing.T) {
		in := []uint16{93} // 0x5d = ']'
		data, err := seam.Marshal(in)
		require.NoError(t, err)

		var got []uint16
		require.NoError(t, seam.Unmarshal(data, &got))
		require.Equal(t, in, got)
	})

	t.Run("uint64 length-sized like SeqEnd byte", func(t *testing.T) {
		in := []uint64{93}
		data, err := seam.Marshal(in)
		require.NoError(t, err)

		var got []uint64
		require.NoError(t, seam.Unmarshal(data, &got))
		require.Equal(t, in, got)
	})

	t.Run("string whose length prefix starts with SeqEnd byte", func(t *testing.T) {
		in := []string{strings.Repeat("a", 93)}
		data, err := seam.Marshal(in)
		require.NoError(t, err)

		var got []string
		require.NoError(t, seam.Unmarshal(data, &got))
		require.Equal(t, in, got)
	})

	t.Run("map key equal to MapEnd byte", func(t *testing.T) {
		in := map[uint8]bool{0x7d: true} // '}'
		data, err := seam.Marshal(in)
		require.NoError(t, err)

		var got map[uint8]bool
		require.NoError(t, seam.Unmarshal(data, &got))
		require.Equal(t, in, got)
	})

	t.Run("string key whose length prefix starts with MapEnd byte", func(t *testing.T) {
		in := map[string]uint8{strings.Repeat("k", 125): 7} // 125 = '}'
		data, err := seam.Marshal(in)
		require.NoError(t, err)

		var got map[string]uint8
		require.NoError(t, seam.Unmarshal(data, &got))
		require.Equal(t, in, got)
	})
}

func TestRoundTripEmptyCollections(t *testing.T) {
	type bag struct {
		S []uint16         `seam:"s"`
		M map[string]uint8 `seam:"m"`
		B []byte           `seam:"b"`
	}

	data, err := seam.Marshal(bag{})
	require.NoError(t, err)

	var got bag
	require.NoError(t, seam.Unmarshal(data, &got))
	require.Empty(t, got.S)
	require.Empty(t, got.M)
	require.Empty(t, got.B)
}

func TestRoundTripPointerPlumbing(t *testing.T) {
	// Pointers are transparent on both sides: encoding follows them and
	// decoding allocates through them.
	age := uint8(19)
	in := struct {
		Age *uint8 `seam:"age"`
	}{Age: &age}

	data, err := seam.Marshal(in)
	require.NoError(t, err)

	var got struct {
		Age *uint8 `seam:"age"`
	}
	require.NoError(t, seam.Unmarshal(data, &got))
	require.NotNil(t, got.Age)
	require.Equal(t, uint8(19), *got.Age)
}
