// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

/*
Package seam implements a basic encoding/decoding API for the seam binary
format, a delimiter-framed encoding where composite values are bracketed by
reserved token bytes and scalars are written as fixed-width little-endian
values. Strings and byte strings carry a little-endian uint64 length prefix.

The format is not self-describing. A decoder must be driven by a Go value of
the expected shape; there is no way to skip or enumerate items without
knowing their types, and decoding into an any/empty interface fails with
[ErrUnsupportedOperation].

Token bytes (reserved, never appearing as framing anywhere else):

	Unit      0x05        unit value, also the None case of an Option
	Some      0x2b '+'    precedes an Option payload or a first element
	SeqStart  0x5b '['    opens a sequence or tuple
	SeqSep    0x2c ','    between sequence elements
	SeqEnd    0x5d ']'    closes a sequence or tuple
	MapStart  0x7b '{'    opens a map or struct
	MapKeySep 0x3a ':'    between a key and its value
	MapSep    0x3b ';'    between map entries
	MapEnd    0x7d '}'    closes a map or struct
	Enum      0x40 '@'    precedes a variant ordinal

Not supported:

  - Decoding into interface types, including any
  - Nil pointers as values (use [Option] for absence; nil slices and maps
    encode as empty collections)
  - Complex numbers, channels, and funcs
  - Skipping unknown struct keys while decoding

However, the Marshaler/Unmarshaler interfaces allow any item to be encoded
to/from any Go type.

Element payloads may contain any byte, including token bytes, because the
decoder only looks for framing at element boundaries, where the grammar
guarantees a reserved byte: after a start token the next byte is the end
token (empty collection) or the Some marker (at least one element follows),
and after each decoded element it is the separator or the end token. Without
the non-empty marker, a first element whose encoding happens to begin with
the end-token byte, such as []uint16{93} (93 = 0x5d = ']'), would be
indistinguishable from an empty sequence.

# Encoding

Encoding can be done with [Marshal] or an [Encoder]. Using an [Encoder] is
more efficient when writing many items to one stream and allows setting
encoding options.

	var w bytes.Buffer
	enc := seam.NewEncoder(&w)

	# Simple
	_ = enc.Encode(true)        // 0x01
	_ = enc.Encode(false)       // 0x00
	_ = enc.Encode(seam.Unit{}) // 0x05

	# Numbers (fixed width, little endian)
	_ = enc.Encode(uint8(1))  // 0x01
	_ = enc.Encode(uint16(1)) // 0x01 0x00
	_ = enc.Encode(int32(-2)) // 0xfe 0xff 0xff 0xff
	_ = enc.Encode(int(1))    // 8 bytes, as int64

	# Binary/Text (uint64 LE length prefix)
	_ = enc.Encode([]byte{0x01, 0x02}) // 0x02 0x00 .. 0x00, 0x01, 0x02
	_ = enc.Encode("hi")               // 0x02 0x00 .. 0x00, 'h', 'i'

	# Sequences
	_ = enc.Encode([]uint16{1, 2}) // '[' '+' 0x01 0x00 ',' 0x02 0x00 ']'
	_ = enc.Encode([]uint16{})     // '[' ']'

	# Structs (maps keyed by field name)
	_ = enc.Encode(struct {
		A uint8
	}{A: 1}) // '{' '+' len "A" ':' 0x01 '}'

	// Struct tags: rename, skip, omit empty
	_ = enc.Encode(struct {
		A uint8  `seam:"a"`
		B string `seam:"-"`
		C uint8  `seam:",omitempty"`
	}{A: 1})

	# Maps (entries sorted bytewise by encoded key)
	_ = enc.Encode(map[uint8]bool{2: true, 1: false})
	// '{' '+' 0x01 ':' 0x00 ';' 0x02 ':' 0x01 '}'

	# Options
	_ = enc.Encode(seam.None[uint8]()) // 0x05
	_ = enc.Encode(seam.Some[uint8](7)) // '+' 0x07

	# Variants
	_ = enc.Encode(seam.Variant[seam.Unit]{Ord: 2})         // '@' ord
	_ = enc.Encode(seam.Variant[uint8]{Ord: 1, Val: 7})     // '@' ord 0x07

# Decoding

Decoding can be done with [Unmarshal] or [Decoder.Decode]. A [Decoder] reads
directly from a byte slice and can decode several consecutive items;
[Unmarshal] additionally requires that the item consume the whole input.

	# Simple
	var b bool
	_ = seam.Unmarshal([]byte{0x01}, &b) // b = true

	# Numbers
	var u uint16
	_ = seam.Unmarshal([]byte{0x01, 0x00}, &u) // u = 1

	# Binary/Text
	var s string
	_ = seam.Unmarshal([]byte{0x02, 0, 0, 0, 0, 0, 0, 0, 'h', 'i'}, &s)

	# Sequences
	var ints []uint16
	_ = seam.Unmarshal([]byte{'[', '+', 0x01, 0x00, ',', 0x02, 0x00, ']'}, &ints)

	# Structs
	var st struct{ A uint8 }
	_ = seam.Unmarshal([]byte{
		'{', '+', 1, 0, 0, 0, 0, 0, 0, 0, 'A', ':', 0x07, '}',
	}, &st) // st = {A: 7}

	# Options
	var opt seam.Option[uint8]
	_ = seam.Unmarshal([]byte{0x05}, &opt)      // opt.IsSome() == false
	_ = seam.Unmarshal([]byte{'+', 0x07}, &opt) // opt.Value() == 7

	# Variants
	var v seam.Variant[uint8]
	_ = seam.Unmarshal([]byte{'@', 1, 0, 0, 0, 0x07}, &v) // v = {Ord: 1, Val: 7}

Unions whose cases carry different payload shapes implement
Marshaler/Unmarshaler with [EncodeVariant] and [DecodeVariant]:

	type Shape struct {
		Kind   uint32
		Circle float64
		Rect   seam.Tuple[struct{ W, H float64 }]
	}

	func (s *Shape) UnmarshalSeam(d *seam.Decoder) error {
		ord, err := seam.DecodeVariant(d, &s.Circle, &s.Rect)
		s.Kind = ord
		return err
	}
*/
package seam
